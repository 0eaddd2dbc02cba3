package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/qs3c/group_sub_server/internal/pkg/queue"
)

// Deliverer 把一条通知真正送达群组
type Deliverer interface {
	Deliver(ctx context.Context, msg *queue.NotifyMessage) error
}

// WebhookDeliverer 以 JSON POST 的形式推送给 bot 网关
type WebhookDeliverer struct {
	url    string
	client *http.Client
}

func NewWebhookDeliverer(url string) *WebhookDeliverer {
	return &WebhookDeliverer{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	ID      string `json:"id"`
	GroupID int64  `json:"group_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, msg *queue.NotifyMessage) error {
	body, err := json.Marshal(&webhookPayload{
		ID:      msg.ID,
		GroupID: msg.GroupID,
		Kind:    msg.Kind,
		Message: msg.Message,
	})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	default:
		// 4xx 重试无意义
		return backoff.Permanent(fmt.Errorf("webhook rejected message: %d", resp.StatusCode))
	}
}

// Mailer 邮件发送
type Mailer interface {
	SendNotification(groupID int64, kind, message string) error
}

// EmailDeliverer 把通知抄送到运营邮箱
type EmailDeliverer struct {
	mailer Mailer
}

func NewEmailDeliverer(mailer Mailer) *EmailDeliverer {
	return &EmailDeliverer{mailer: mailer}
}

func (d *EmailDeliverer) Deliver(_ context.Context, msg *queue.NotifyMessage) error {
	return d.mailer.SendNotification(msg.GroupID, msg.Kind, msg.Message)
}
