package models

import (
	"time"
)

// IdentifierKind tags which out-of-band channel an OTP record is bound to.
type IdentifierKind string

const (
	KindEmail IdentifierKind = "email"
	KindPhone IdentifierKind = "phone"
)

// OTPRecord is the single pending-or-consumed challenge for an identifier.
// The identifier doubles as the document key, so at most one record exists
// per email address or phone number; a new send replaces the previous one.
type OTPRecord struct {
	Identifier string         `bson:"_id" json:"identifier"`
	Code       string         `bson:"code" json:"-"`
	Kind       IdentifierKind `bson:"kind" json:"kind"`
	CreatedAt  time.Time      `bson:"created_at" json:"created_at"`
	ExpiresAt  time.Time      `bson:"expires_at" json:"expires_at"`
	Consumed   bool           `bson:"consumed" json:"consumed"`
}

// Expired reports whether the record is past its validity window.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type SendOTPRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	OTP   string `json:"otp"`
}
