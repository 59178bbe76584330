package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veriflow/internal/handlers"
	"veriflow/internal/middlewares"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.CORS(s.cfg.AllowedOrigins))
	r.Use(middlewares.RateLimit)
	r.Use(middlewares.NewPrometheusMiddleware().Instrument)

	ch := handlers.NewCommonHandler(s.db)
	r.HandleFunc("/", ch.HelloWorldHandler)
	r.HandleFunc("/health", ch.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	s.registerAuthRoutes(r)

	return r
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	ah := handlers.NewAuthHandler(s.otpService, s.accountService, s.cfg.JWTSecret)

	r.HandleFunc("/api/auth/send-otp/email", ah.SendEmailOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/send-otp/phone", ah.SendPhoneOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/verify-otp/email", ah.VerifyEmailOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/verify-otp/phone", ah.VerifyPhoneOTP).Methods("POST", "OPTIONS")
}
