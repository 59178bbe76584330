package services

import (
	"fmt"

	"veriflow/internal/models"
)

// ChannelErrorKind classifies a delivery channel failure so callers can
// render an actionable message.
type ChannelErrorKind string

const (
	ChannelAuthFailure         ChannelErrorKind = "auth_failure"
	ChannelConnectivityFailure ChannelErrorKind = "connectivity_failure"
	ChannelInvalidDestination  ChannelErrorKind = "invalid_destination"
	ChannelOther               ChannelErrorKind = "other"
)

// ChannelError marks a delivery failure that happened after the OTP record
// was already persisted. The stored record stays valid until its natural
// expiry; the caller may retry by simply sending again.
type ChannelError struct {
	Channel models.IdentifierKind
	Kind    ChannelErrorKind
	Detail  string
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s channel: %s: %v", e.Channel, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s channel: %s", e.Channel, e.Detail)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func channelErr(channel models.IdentifierKind, kind ChannelErrorKind, detail string, err error) *ChannelError {
	return &ChannelError{Channel: channel, Kind: kind, Detail: detail, Err: err}
}
