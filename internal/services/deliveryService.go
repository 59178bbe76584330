package services

import (
	"context"
	"fmt"
	"time"

	"veriflow/internal/models"
)

// Deliverer routes a stored OTP record to the out-of-band channel matching
// its kind. Delivery runs after the record has been persisted; a failure
// here never rolls the record back.
type Deliverer interface {
	Deliver(ctx context.Context, record *models.OTPRecord) error
}

type deliveryDispatcher struct {
	email EmailSender
	sms   SMSSender
}

func NewDeliveryDispatcher(email EmailSender, sms SMSSender) Deliverer {
	return &deliveryDispatcher{email: email, sms: sms}
}

func (d *deliveryDispatcher) Deliver(ctx context.Context, record *models.OTPRecord) error {
	minutes := int(time.Until(record.ExpiresAt).Round(time.Minute) / time.Minute)

	switch record.Kind {
	case models.KindEmail:
		subject := "Your OTP for Authentication"
		body := fmt.Sprintf(
			`<div style="font-family: Arial, sans-serif; padding: 20px;">
				<h2>Your OTP Code</h2>
				<p>Your OTP code is: <strong style="font-size: 24px;">%s</strong></p>
				<p>This code will expire in %d minutes.</p>
				<p>If you didn't request this code, please ignore this email.</p>
			</div>`, record.Code, minutes)
		return d.email.Send(record.Identifier, subject, body)
	case models.KindPhone:
		body := fmt.Sprintf("Your OTP code is: %s. This code will expire in %d minutes.", record.Code, minutes)
		return d.sms.Send(ctx, record.Identifier, body)
	default:
		return channelErr(record.Kind, ChannelOther, "unknown identifier kind", nil)
	}
}
