package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/rs/zerolog/log"

	"veriflow/internal/models"
	"veriflow/internal/services"
	"veriflow/internal/utils"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

type AuthHandler struct {
	otpService     services.OTPService
	accountService services.AccountService
	jwtSecret      string
}

func NewAuthHandler(otpService services.OTPService, accountService services.AccountService, jwtSecret string) *AuthHandler {
	return &AuthHandler{otpService: otpService, accountService: accountService, jwtSecret: jwtSecret}
}

func (a *AuthHandler) SendEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		utils.SendJSONError(w, "Email is required", http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(req.Email) {
		utils.SendJSONError(w, "Invalid email format", http.StatusBadRequest)
		return
	}

	a.sendOTP(w, r, req.Email, models.KindEmail, "OTP sent to email successfully")
}

func (a *AuthHandler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Phone == "" {
		utils.SendJSONError(w, "Phone number is required", http.StatusBadRequest)
		return
	}
	if !phoneRegex.MatchString(req.Phone) {
		utils.SendJSONError(w, "Invalid phone format. Please use E.164 format (e.g., +1234567890)", http.StatusBadRequest)
		return
	}

	a.sendOTP(w, r, req.Phone, models.KindPhone, "OTP sent to phone successfully")
}

func (a *AuthHandler) sendOTP(w http.ResponseWriter, r *http.Request, identifier string, kind models.IdentifierKind, okMessage string) {
	if err := a.otpService.RequestOTP(r.Context(), identifier, kind); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Error sending OTP")

		var cerr *services.ChannelError
		if errors.As(err, &cerr) {
			utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to send OTP",
				"message": cerr.Detail,
			})
			return
		}
		utils.SendJSONError(w, "Failed to send OTP", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": okMessage,
	})
}

func (a *AuthHandler) VerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.OTP == "" {
		utils.SendJSONError(w, "Email and OTP are required", http.StatusBadRequest)
		return
	}

	a.verifyOTP(w, r, req.Email, models.KindEmail, req.OTP)
}

func (a *AuthHandler) VerifyPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Phone == "" || req.OTP == "" {
		utils.SendJSONError(w, "Phone and OTP are required", http.StatusBadRequest)
		return
	}

	a.verifyOTP(w, r, req.Phone, models.KindPhone, req.OTP)
}

func (a *AuthHandler) verifyOTP(w http.ResponseWriter, r *http.Request, identifier string, kind models.IdentifierKind, code string) {
	accepted, err := a.otpService.VerifyOTP(r.Context(), identifier, code)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Error verifying OTP")
		utils.SendJSONError(w, "Failed to verify OTP", http.StatusInternalServerError)
		return
	}
	if !accepted {
		// One uniform rejection for absence, expiry, consumption, and
		// mismatch alike.
		utils.SendJSONError(w, "Invalid or expired OTP", http.StatusBadRequest)
		return
	}

	account, err := a.accountService.GetOrCreate(r.Context(), identifier, kind)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Error resolving account after verification")
		utils.SendJSONError(w, "Failed to verify OTP", http.StatusInternalServerError)
		return
	}

	token, err := utils.GenerateJWT(account.ID, a.jwtSecret)
	if err != nil {
		log.Error().Err(err).Msg("Error signing token after verification")
		utils.SendJSONError(w, "Failed to verify OTP", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"uid":     account.ID.Hex(),
		"token":   token,
		"message": "OTP verified successfully",
	})
}
