package services

import (
	"net"
	"strings"

	"gopkg.in/gomail.v2"

	"veriflow/internal/config"
	"veriflow/internal/models"
)

type EmailSender interface {
	Send(to, subject, body string) error
}

type emailSender struct {
	cfg config.SMTPConfig
}

func NewEmailSender(cfg config.SMTPConfig) EmailSender {
	return &emailSender{cfg: cfg}
}

func (e *emailSender) Send(to, subject, body string) error {
	if e.cfg.Username == "" || e.cfg.Password == "" {
		return channelErr(models.KindEmail, ChannelAuthFailure,
			"SMTP credentials not configured, set SMTP_USERNAME and SMTP_PASSWORD", nil)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(e.cfg.Host, e.cfg.Port, e.cfg.Username, e.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return e.classify(err)
	}
	return nil
}

func (e *emailSender) classify(err error) error {
	if _, ok := err.(net.Error); ok {
		return channelErr(models.KindEmail, ChannelConnectivityFailure,
			"failed to connect to SMTP server "+e.cfg.Host, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "535") || strings.Contains(msg, "auth"):
		return channelErr(models.KindEmail, ChannelAuthFailure,
			"SMTP authentication failed, check SMTP_USERNAME and SMTP_PASSWORD", err)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "timeout"):
		return channelErr(models.KindEmail, ChannelConnectivityFailure,
			"failed to connect to SMTP server "+e.cfg.Host, err)
	default:
		return channelErr(models.KindEmail, ChannelOther, "failed to send email", err)
	}
}
