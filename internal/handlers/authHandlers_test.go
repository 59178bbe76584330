package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"veriflow/internal/models"
	"veriflow/internal/services"
)

type fakeOTPService struct {
	requested  []string
	requestErr error
	accept     bool
	verifyErr  error
}

func (f *fakeOTPService) RequestOTP(ctx context.Context, identifier string, kind models.IdentifierKind) error {
	f.requested = append(f.requested, identifier)
	return f.requestErr
}

func (f *fakeOTPService) VerifyOTP(ctx context.Context, identifier, submittedCode string) (bool, error) {
	return f.accept, f.verifyErr
}

type fakeAccountService struct {
	account *models.Account
}

func (f *fakeAccountService) GetOrCreate(ctx context.Context, identifier string, kind models.IdentifierKind) (*models.Account, error) {
	return f.account, nil
}

func newTestHandler(otp *fakeOTPService) *AuthHandler {
	account := &models.Account{ID: primitive.NewObjectID(), Email: "a@x.com", EmailVerified: true}
	return NewAuthHandler(otp, &fakeAccountService{account: account}, "test-secret")
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSendEmailOTP(t *testing.T) {
	otp := &fakeOTPService{}
	h := newTestHandler(otp)

	rec := postJSON(t, h.SendEmailOTP, models.SendOTPRequest{Email: "a@x.com"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a@x.com"}, otp.requested)
}

func TestSendEmailOTP_InvalidFormat(t *testing.T) {
	otp := &fakeOTPService{}
	h := newTestHandler(otp)

	for _, email := range []string{"", "not-an-email", "a b@x.com", "a@x"} {
		rec := postJSON(t, h.SendEmailOTP, models.SendOTPRequest{Email: email})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "email %q must be rejected", email)
	}
	assert.Empty(t, otp.requested)
}

func TestSendPhoneOTP(t *testing.T) {
	otp := &fakeOTPService{}
	h := newTestHandler(otp)

	rec := postJSON(t, h.SendPhoneOTP, models.SendOTPRequest{Phone: "+15551234567"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"+15551234567"}, otp.requested)
}

func TestSendPhoneOTP_InvalidFormat(t *testing.T) {
	otp := &fakeOTPService{}
	h := newTestHandler(otp)

	for _, phone := range []string{"", "5551234567", "+0123", "phone"} {
		rec := postJSON(t, h.SendPhoneOTP, models.SendOTPRequest{Phone: phone})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "phone %q must be rejected", phone)
	}
	assert.Empty(t, otp.requested)
}

func TestSendEmailOTP_ChannelFailure(t *testing.T) {
	otp := &fakeOTPService{requestErr: &services.ChannelError{
		Channel: models.KindEmail,
		Kind:    services.ChannelAuthFailure,
		Detail:  "SMTP authentication failed",
	}}
	h := newTestHandler(otp)

	rec := postJSON(t, h.SendEmailOTP, models.SendOTPRequest{Email: "a@x.com"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to send OTP", body["error"])
	assert.Contains(t, body["message"], "SMTP authentication failed")
}

func TestVerifyEmailOTP_Accepted(t *testing.T) {
	otp := &fakeOTPService{accept: true}
	h := newTestHandler(otp)

	rec := postJSON(t, h.VerifyEmailOTP, models.VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["uid"])
	assert.NotEmpty(t, body["token"])
}

func TestVerifyEmailOTP_Rejected(t *testing.T) {
	otp := &fakeOTPService{accept: false}
	h := newTestHandler(otp)

	rec := postJSON(t, h.VerifyEmailOTP, models.VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// One uniform message regardless of the rejection reason.
	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid or expired OTP", body["error"])
}

func TestVerifyPhoneOTP_MissingFields(t *testing.T) {
	otp := &fakeOTPService{accept: true}
	h := newTestHandler(otp)

	rec := postJSON(t, h.VerifyPhoneOTP, models.VerifyOTPRequest{Phone: "+15551234567"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.VerifyPhoneOTP, models.VerifyOTPRequest{OTP: "123456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
