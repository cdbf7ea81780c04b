// Package announcer posts human-readable push events to a webhook.
package announcer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	webhookAnnouncePath = "/announcements"
	defaultTimeout      = 10 * time.Second
)

type Service interface {
	Do(ctx context.Context, message string) error
}

type Option func(*webhookAnnouncer)

func WithWebhookURL(webhookURL string) Option {
	return func(a *webhookAnnouncer) {
		a.baseURL = strings.TrimRight(strings.TrimSpace(webhookURL), "/")
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(a *webhookAnnouncer) {
		a.timeout = timeout
	}
}

type webhookAnnouncer struct {
	baseURL string
	timeout time.Duration
	client  *resty.Client
}

type announcement struct {
	Message string `json:"message"`
}

func New(opts ...Option) *webhookAnnouncer {
	a := &webhookAnnouncer{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(a)
	}
	a.client = resty.New().
		SetBaseURL(a.baseURL).
		SetTimeout(a.timeout)
	return a
}

// Enabled reports whether announcements go anywhere.
func (a *webhookAnnouncer) Enabled() bool {
	return a.baseURL != ""
}

// Do posts message. Without a webhook URL it does nothing.
func (a *webhookAnnouncer) Do(ctx context.Context, message string) error {
	if !a.Enabled() {
		return nil
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(announcement{Message: message}).
		Post(webhookAnnouncePath)
	if err != nil {
		return errors.Wrap(err, "post announcement")
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return errors.Errorf("reporting webhook returned status %s", resp.Status())
	}
	return nil
}
