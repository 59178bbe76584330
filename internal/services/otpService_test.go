package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"veriflow/internal/models"
	"veriflow/internal/repositories"
)

// fakeOTPRepo is an in-memory OTPRepository with the same conditional-update
// semantics as the Mongo implementation.
type fakeOTPRepo struct {
	mu       sync.Mutex
	records  map[string]*models.OTPRecord
	failures bool
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{records: make(map[string]*models.OTPRecord)}
}

func (f *fakeOTPRepo) Put(ctx context.Context, record *models.OTPRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures {
		return &repositories.StorageError{Op: "put otp record", Err: errors.New("engine unavailable")}
	}
	copied := *record
	f.records[record.Identifier] = &copied
	return nil
}

func (f *fakeOTPRepo) Get(ctx context.Context, identifier string) (*models.OTPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures {
		return nil, &repositories.StorageError{Op: "get otp record", Err: errors.New("engine unavailable")}
	}
	record, ok := f.records[identifier]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeOTPRepo) MarkConsumed(ctx context.Context, identifier string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[identifier]
	if !ok || record.Consumed {
		return false, nil
	}
	record.Consumed = true
	return true, nil
}

func (f *fakeOTPRepo) DeleteExpiredBefore(ctx context.Context, instant time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, record := range f.records {
		if record.ExpiresAt.Before(instant) {
			delete(f.records, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeOTPRepo) stored(identifier string) *models.OTPRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[identifier]
}

func (f *fakeOTPRepo) store(record *models.OTPRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.Identifier] = record
}

// fakeDeliverer captures delivered records and optionally fails.
type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []*models.OTPRecord
	err       error
}

func (d *fakeDeliverer) Deliver(ctx context.Context, record *models.OTPRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, record)
	return nil
}

func newTestOTPService(repo *fakeOTPRepo, deliverer *fakeDeliverer) OTPService {
	return NewOTPService(repo, deliverer, 10*time.Minute)
}

func TestRequestOTP(t *testing.T) {
	repo := newFakeOTPRepo()
	deliverer := &fakeDeliverer{}
	svc := newTestOTPService(repo, deliverer)

	err := svc.RequestOTP(context.Background(), "a@x.com", models.KindEmail)
	assert.NoError(t, err)

	record := repo.stored("a@x.com")
	assert.NotNil(t, record)
	assert.Len(t, record.Code, OTPCodeLength)
	assert.Equal(t, models.KindEmail, record.Kind)
	assert.False(t, record.Consumed)
	assert.WithinDuration(t, record.CreatedAt.Add(10*time.Minute), record.ExpiresAt, time.Second)

	assert.Len(t, deliverer.delivered, 1)
	assert.Equal(t, record.Code, deliverer.delivered[0].Code)
}

func TestVerifyOTP_SingleUse(t *testing.T) {
	repo := newFakeOTPRepo()
	svc := newTestOTPService(repo, &fakeDeliverer{})

	assert.NoError(t, svc.RequestOTP(context.Background(), "a@x.com", models.KindEmail))
	code := repo.stored("a@x.com").Code

	accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", code)
	assert.NoError(t, err)
	assert.True(t, accepted)

	// A second attempt with the same (correct) code is rejected.
	accepted, err = svc.VerifyOTP(context.Background(), "a@x.com", code)
	assert.NoError(t, err)
	assert.False(t, accepted)

	// And so is any other code.
	accepted, err = svc.VerifyOTP(context.Background(), "a@x.com", "000000")
	assert.NoError(t, err)
	assert.False(t, accepted)
}

func TestVerifyOTP_Expired(t *testing.T) {
	repo := newFakeOTPRepo()
	svc := newTestOTPService(repo, &fakeDeliverer{})

	repo.store(&models.OTPRecord{
		Identifier: "+15551234567",
		Code:       "123456",
		Kind:       models.KindPhone,
		CreatedAt:  time.Now().Add(-11 * time.Minute),
		ExpiresAt:  time.Now().Add(-time.Minute),
	})

	accepted, err := svc.VerifyOTP(context.Background(), "+15551234567", "123456")
	assert.NoError(t, err)
	assert.False(t, accepted, "correct code must be rejected once expired")
}

func TestRequestOTP_OverwritesPrevious(t *testing.T) {
	repo := newFakeOTPRepo()
	svc := newTestOTPService(repo, &fakeDeliverer{})

	assert.NoError(t, svc.RequestOTP(context.Background(), "a@x.com", models.KindEmail))
	first := repo.stored("a@x.com").Code

	assert.NoError(t, svc.RequestOTP(context.Background(), "a@x.com", models.KindEmail))
	second := repo.stored("a@x.com").Code
	assert.NotEqual(t, first, second)

	accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", first)
	assert.NoError(t, err)
	assert.False(t, accepted, "superseded code must be rejected")

	accepted, err = svc.VerifyOTP(context.Background(), "a@x.com", second)
	assert.NoError(t, err)
	assert.True(t, accepted)
}

func TestVerifyOTP_ExactMatch(t *testing.T) {
	repo := newFakeOTPRepo()
	svc := newTestOTPService(repo, &fakeDeliverer{})

	repo.store(&models.OTPRecord{
		Identifier: "a@x.com",
		Code:       "123456",
		Kind:       models.KindEmail,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	})

	for _, submitted := range []string{"123455", "023456", "12345", "1234567", " 123456", "123456 ", ""} {
		accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", submitted)
		assert.NoError(t, err)
		assert.False(t, accepted, "submitted %q must not match", submitted)
	}

	accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", "123456")
	assert.NoError(t, err)
	assert.True(t, accepted)
}

func TestVerifyOTP_UnknownIdentifier(t *testing.T) {
	svc := newTestOTPService(newFakeOTPRepo(), &fakeDeliverer{})

	accepted, err := svc.VerifyOTP(context.Background(), "never-requested@x.com", "123456")
	assert.NoError(t, err)
	assert.False(t, accepted)
}

func TestVerifyOTP_ConcurrentSingleWinner(t *testing.T) {
	repo := newFakeOTPRepo()
	svc := newTestOTPService(repo, &fakeDeliverer{})

	repo.store(&models.OTPRecord{
		Identifier: "a@x.com",
		Code:       "123456",
		Kind:       models.KindEmail,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	})

	const attempts = 16
	results := make(chan bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", "123456")
			assert.NoError(t, err)
			results <- accepted
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for accepted := range results {
		if accepted {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent verification may win")
}

func TestRequestOTP_DeliveryFailureKeepsRecord(t *testing.T) {
	repo := newFakeOTPRepo()
	deliverer := &fakeDeliverer{err: &ChannelError{
		Channel: models.KindEmail,
		Kind:    ChannelConnectivityFailure,
		Detail:  "failed to connect to SMTP server",
	}}
	svc := newTestOTPService(repo, deliverer)

	err := svc.RequestOTP(context.Background(), "a@x.com", models.KindEmail)

	var cerr *ChannelError
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, ChannelConnectivityFailure, cerr.Kind)

	// The record was persisted before dispatch, so the code is verifiable
	// even though the message never went out.
	record := repo.stored("a@x.com")
	assert.NotNil(t, record)

	accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", record.Code)
	assert.NoError(t, err)
	assert.True(t, accepted)
}

func TestRequestOTP_StorageFailure(t *testing.T) {
	repo := newFakeOTPRepo()
	repo.failures = true
	svc := newTestOTPService(repo, &fakeDeliverer{})

	err := svc.RequestOTP(context.Background(), "a@x.com", models.KindEmail)

	var serr *repositories.StorageError
	assert.ErrorAs(t, err, &serr)
}

func TestVerifyOTP_StorageFailure(t *testing.T) {
	repo := newFakeOTPRepo()
	repo.failures = true
	svc := newTestOTPService(repo, &fakeDeliverer{})

	accepted, err := svc.VerifyOTP(context.Background(), "a@x.com", "123456")
	assert.False(t, accepted)

	var serr *repositories.StorageError
	assert.ErrorAs(t, err, &serr)
}
