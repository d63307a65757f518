package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

const defaultWebhookTimeout = 3 * time.Second

var ErrWebhookStatus = errors.New("webhook responded with a non 2xx status")

// WebhookEvent is the body posted to the webhook.
type WebhookEvent struct {
	Event string               `json:"event"`
	Match entity.MatchSnapshot `json:"match"`
}

type Webhook struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &Webhook{
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
			MaxConnsPerHost: 16,
		},
	}
}

func (that *Webhook) Notify(ctx context.Context, snapshot entity.MatchSnapshot) error {
	payload, err := json.Marshal(WebhookEvent{Event: "match." + string(snapshot.Status), Match: snapshot})
	if err != nil {
		return fmt.Errorf("could not marshal webhook event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(that.url)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	deadline := time.Now().Add(that.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err = that.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("%w: %d", ErrWebhookStatus, status)
	}

	return nil
}
