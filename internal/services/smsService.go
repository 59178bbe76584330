package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"veriflow/internal/config"
	"veriflow/internal/models"
)

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type twilioSender struct {
	cfg    config.TwilioConfig
	client *http.Client
}

func NewTwilioSender(cfg config.TwilioConfig) SMSSender {
	return &twilioSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *twilioSender) Send(ctx context.Context, to, body string) error {
	if t.cfg.AccountSID == "" || t.cfg.AuthToken == "" {
		return channelErr(models.KindPhone, ChannelAuthFailure,
			"Twilio credentials not configured, set TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN", nil)
	}
	if !strings.HasPrefix(t.cfg.AccountSID, "AC") {
		return channelErr(models.KindPhone, ChannelAuthFailure,
			"invalid Twilio account SID, it must start with AC", nil)
	}
	if t.cfg.FromNumber == "" {
		return channelErr(models.KindPhone, ChannelOther,
			"Twilio sender number not configured, set TWILIO_PHONE_NUMBER in E.164 format", nil)
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", t.cfg.AccountSID)
	params := url.Values{
		"To":   []string{to},
		"From": []string{t.cfg.FromNumber},
		"Body": []string{body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return channelErr(models.KindPhone, ChannelOther, "failed to build SMS gateway request", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return channelErr(models.KindPhone, ChannelConnectivityFailure, "failed to reach SMS gateway", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return t.classify(resp, to)
}

func (t *twilioSender) classify(resp *http.Response, to string) error {
	var body twilioErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode == http.StatusUnauthorized {
		return channelErr(models.KindPhone, ChannelAuthFailure,
			"Twilio authentication failed, check TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN", nil)
	}
	switch body.Code {
	case 21211:
		return channelErr(models.KindPhone, ChannelInvalidDestination,
			"invalid destination phone number "+to+", use E.164 format", nil)
	case 21606, 21608:
		return channelErr(models.KindPhone, ChannelOther,
			"invalid Twilio sender number "+t.cfg.FromNumber, nil)
	default:
		detail := fmt.Sprintf("SMS gateway error code %d", resp.StatusCode)
		if body.Message != "" {
			detail = fmt.Sprintf("%s: %s", detail, body.Message)
		}
		return channelErr(models.KindPhone, ChannelOther, detail, nil)
	}
}
