package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the identity established once an identifier has been verified.
// Exactly one of Email/Phone is set, matching the record's kind tag.
type Account struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email         string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone         string             `json:"phone,omitempty" bson:"phone,omitempty"`
	EmailVerified bool               `json:"email_verified" bson:"email_verified"`
	PhoneVerified bool               `json:"phone_verified" bson:"phone_verified"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
