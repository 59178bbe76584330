package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"veriflow/internal/config"
	"veriflow/internal/database"
	"veriflow/internal/repositories"
	"veriflow/internal/services"
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	db         database.Service

	otpService     services.OTPService
	accountService services.AccountService
	sweeper        *services.Sweeper
	sweepCancel    context.CancelFunc
}

func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	otpRepo := repositories.NewOTPRepository(db)
	accountRepo := repositories.NewAccountRepository(db)

	deliverer := services.NewDeliveryDispatcher(
		services.NewEmailSender(cfg.SMTP),
		services.NewTwilioSender(cfg.Twilio),
	)

	s := &Server{
		cfg:            cfg,
		db:             db,
		otpService:     services.NewOTPService(otpRepo, deliverer, cfg.OTPTTL),
		accountService: services.NewAccountService(accountRepo),
		sweeper:        services.NewSweeper(otpRepo, cfg.SweepInterval),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

func (s *Server) Start() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	go s.sweeper.Run(sweepCtx)

	log.Info().Int("port", s.cfg.Port).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	if s.sweepCancel != nil {
		s.sweepCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}
	if err := s.db.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to close database connection")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
