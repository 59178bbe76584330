package repositories

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"veriflow/internal/database"
	"veriflow/internal/metrics"
	"veriflow/internal/models"
)

// OTPRepository is the keyed record store for OTP challenges. It is a dumb
// store: Get performs no expiry filtering, callers apply the eligibility
// rules themselves.
type OTPRepository interface {
	// Put unconditionally replaces any existing record for the identifier.
	Put(ctx context.Context, record *models.OTPRecord) error
	// Get returns the current record, or (nil, nil) when none exists.
	Get(ctx context.Context, identifier string) (*models.OTPRecord, error)
	// MarkConsumed flips the consumed flag with a conditional update and
	// reports whether this call performed the transition. Concurrent calls
	// for the same identifier see at most one true.
	MarkConsumed(ctx context.Context, identifier string) (bool, error)
	// DeleteExpiredBefore removes every record expiring strictly before the
	// instant and returns the removed count.
	DeleteExpiredBefore(ctx context.Context, instant time.Time) (int64, error)
}

type otpRepository struct {
	collection *mongo.Collection
}

func NewOTPRepository(db database.Service) OTPRepository {
	return &otpRepository{collection: db.Database().Collection("otps")}
}

func (r *otpRepository) Put(ctx context.Context, record *models.OTPRecord) error {
	queryType := "put"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.Identifier}, record, opts)
	if err != nil {
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("identifier", record.Identifier).Msg("Failed to store OTP record")
		return storageErr("put otp record", err)
	}
	return nil
}

func (r *otpRepository) Get(ctx context.Context, identifier string) (*models.OTPRecord, error) {
	queryType := "get"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var record models.OTPRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": identifier}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("identifier", identifier).Msg("Failed to read OTP record")
		return nil, storageErr("get otp record", err)
	}
	return &record, nil
}

func (r *otpRepository) MarkConsumed(ctx context.Context, identifier string) (bool, error) {
	queryType := "markConsumed"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	// Conditional update on consumed == false. The filter and the flag flip
	// run as one atomic document update, so of any number of racing
	// verifications exactly one observes ModifiedCount == 1.
	filter := bson.M{"_id": identifier, "consumed": false}
	update := bson.M{"$set": bson.M{"consumed": true}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("identifier", identifier).Msg("Failed to mark OTP record consumed")
		return false, storageErr("mark otp consumed", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *otpRepository) DeleteExpiredBefore(ctx context.Context, instant time.Time) (int64, error) {
	queryType := "deleteExpired"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	filter := bson.M{"expires_at": bson.M{"$lt": instant}}
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Msg("Failed to delete expired OTP records")
		return 0, storageErr("delete expired otp records", err)
	}
	return res.DeletedCount, nil
}
