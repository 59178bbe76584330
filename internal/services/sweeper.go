package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"veriflow/internal/metrics"
	"veriflow/internal/repositories"
)

// Sweeper reclaims expired OTP records on a schedule. Verification rejects
// expired records on its own, so the sweeper only bounds storage growth.
type Sweeper struct {
	otpRepo  repositories.OTPRepository
	interval time.Duration
}

func NewSweeper(otpRepo repositories.OTPRepository, interval time.Duration) *Sweeper {
	return &Sweeper{otpRepo: otpRepo, interval: interval}
}

// Sweep removes every record past expiry and returns the removed count.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.otpRepo.DeleteExpiredBefore(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("OTP sweep failed")
		return 0, err
	}
	if removed > 0 {
		metrics.OTPSweptTotal.Add(float64(removed))
		log.Info().Int64("removed", removed).Msg("Expired OTP records reclaimed")
	}
	return removed, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			_, _ = s.Sweep(sweepCtx)
			cancel()
		}
	}
}
