package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/pkg/metrics"
	"github.com/qs3c/group_sub_server/internal/pkg/queue"
)

const defaultPopTimeout = 5 * time.Second

// Processor 消费通知队列并限速投递
type Processor struct {
	deliverer  Deliverer
	limiter    *rate.Limiter
	maxRetries int
	popTimeout time.Duration
	newBackOff func() backoff.BackOff
	popBackOff func() backoff.BackOff
}

// NewProcessor 创建通知处理器
func NewProcessor(deliverer Deliverer, cfg *config.NotifyConfig) *Processor {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Processor{
		deliverer:  deliverer,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		popTimeout: defaultPopTimeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
		popBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Process 投递一条通知，失败按退避重试，用尽后丢弃
func (p *Processor) Process(ctx context.Context, msg *queue.NotifyMessage) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.maxRetries)), ctx)
	err := backoff.Retry(func() error {
		attempt++
		return p.deliverer.Deliver(ctx, msg)
	}, b)
	msg.Attempt = attempt

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return err
	}
	metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
	return nil
}

// Consume 循环拉取队列直到 ctx 取消，拉取失败时按退避等待，成功后重置
func (p *Processor) Consume(ctx context.Context, q *queue.Queue, workerID int) {
	logger := log.With().Int("worker", workerID).Logger()
	popRetry := p.popBackOff()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker shutting down")
			return
		default:
		}

		msg, err := q.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := popRetry.NextBackOff()
			if wait == backoff.Stop {
				logger.Error().Err(err).Msg("failed to pop notification, giving up")
				return
			}
			logger.Error().Err(err).Dur("retry_in", wait).Msg("failed to pop notification")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		popRetry.Reset()
		if msg == nil {
			continue
		}

		if err := p.Process(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).
				Str("id", msg.ID).
				Int64("group_id", msg.GroupID).
				Int("attempts", msg.Attempt).
				Msg("notification dropped")
			continue
		}
		logger.Debug().Str("id", msg.ID).Int64("group_id", msg.GroupID).Msg("notification delivered")
	}
}
