package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/group_sub_server/internal/pkg/metrics"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/pkg/queue"
)

// Notifier 向群组发送渲染好的消息
type Notifier interface {
	Notify(ctx context.Context, groupID int64, message string) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, groupID int64, message string) error

func (f NotifierFunc) Notify(ctx context.Context, groupID int64, message string) error {
	return f(ctx, groupID, message)
}

// EventPublisher 生命周期事件发布
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *pubsub.EntitlementEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, int64, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishEvent(context.Context, *pubsub.EntitlementEvent) error { return nil }

// QueueNotifier 把通知写入 Redis 队列，由 worker 投递
type QueueNotifier struct {
	queue *queue.Queue
	kind  string
}

func NewQueueNotifier(q *queue.Queue) *QueueNotifier {
	return &QueueNotifier{queue: q, kind: queue.KindExpiryAlert}
}

func (n *QueueNotifier) Notify(ctx context.Context, groupID int64, message string) error {
	err := n.queue.Push(ctx, &queue.NotifyMessage{
		GroupID:   groupID,
		Kind:      n.kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.NotificationsTotal.WithLabelValues("queued").Inc()
	return nil
}

// publish 发布失败只记录日志
func publish(ctx context.Context, events EventPublisher, ev *pubsub.EntitlementEvent) {
	if events == nil {
		return
	}
	if err := events.PublishEvent(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("event", ev.Type).
			Int64("group_id", ev.GroupID).
			Msg("failed to publish entitlement event")
	}
}
