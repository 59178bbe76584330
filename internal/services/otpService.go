package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"veriflow/internal/metrics"
	"veriflow/internal/models"
	"veriflow/internal/repositories"
	"veriflow/internal/utils"
)

const OTPCodeLength = 6

// OTPService owns the OTP lifecycle: code generation, persistence with
// expiry, delivery dispatch, and single-use verification.
type OTPService interface {
	RequestOTP(ctx context.Context, identifier string, kind models.IdentifierKind) error
	VerifyOTP(ctx context.Context, identifier, submittedCode string) (bool, error)
}

type otpService struct {
	otpRepo   repositories.OTPRepository
	deliverer Deliverer
	ttl       time.Duration
}

func NewOTPService(otpRepo repositories.OTPRepository, deliverer Deliverer, ttl time.Duration) OTPService {
	return &otpService{otpRepo: otpRepo, deliverer: deliverer, ttl: ttl}
}

// RequestOTP generates and stores a fresh code for the identifier, replacing
// any previous record, then dispatches it out-of-band. The record is
// persisted before dispatch is attempted, so a delivery failure leaves a
// valid code behind and the caller can retry by sending again.
func (s *otpService) RequestOTP(ctx context.Context, identifier string, kind models.IdentifierKind) error {
	code, err := utils.GenerateOTP(OTPCodeLength)
	if err != nil {
		return err
	}

	now := time.Now()
	record := &models.OTPRecord{
		Identifier: identifier,
		Code:       code,
		Kind:       kind,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		Consumed:   false,
	}

	if err := s.otpRepo.Put(ctx, record); err != nil {
		return err
	}
	metrics.OTPRequestedTotal.WithLabelValues(string(kind)).Inc()
	log.Info().Str("identifier", identifier).Str("kind", string(kind)).Msg("OTP record stored")

	if err := s.deliverer.Deliver(ctx, record); err != nil {
		if cerr, ok := err.(*ChannelError); ok {
			metrics.OTPDeliveryFailuresTotal.WithLabelValues(string(cerr.Channel), string(cerr.Kind)).Inc()
		}
		log.Error().Err(err).Str("identifier", identifier).Msg("OTP delivery failed, record remains valid")
		return err
	}
	return nil
}

// VerifyOTP decides accept/reject for a submitted code and performs the
// single-use transition on acceptance. Every rejection reason collapses to
// a plain false so a caller cannot tell absence, expiry, consumption, and
// mismatch apart. Only a storage failure surfaces as an error.
func (s *otpService) VerifyOTP(ctx context.Context, identifier, submittedCode string) (bool, error) {
	record, err := s.otpRepo.Get(ctx, identifier)
	if err != nil {
		return false, err
	}
	if record == nil {
		return s.reject(identifier), nil
	}
	if record.Consumed {
		return s.reject(identifier), nil
	}
	if record.Expired(time.Now()) {
		return s.reject(identifier), nil
	}
	if submittedCode != record.Code {
		return s.reject(identifier), nil
	}

	// Conditional update: of concurrent verifications racing with the
	// correct code, only the one that wins this transition is accepted.
	won, err := s.otpRepo.MarkConsumed(ctx, identifier)
	if err != nil {
		return false, err
	}
	if !won {
		return s.reject(identifier), nil
	}

	metrics.OTPVerifiedTotal.WithLabelValues("accepted").Inc()
	log.Info().Str("identifier", identifier).Msg("OTP verified")
	return true, nil
}

func (s *otpService) reject(identifier string) bool {
	metrics.OTPVerifiedTotal.WithLabelValues("rejected").Inc()
	log.Info().Str("identifier", identifier).Msg("OTP verification rejected")
	return false
}
