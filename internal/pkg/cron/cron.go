package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/group_sub_server/internal/model/dto"
)

// Sweeper 一次到期巡检
type Sweeper interface {
	Sweep(ctx context.Context) (*dto.SweepResult, error)
}

// Service 周期执行到期巡检：成功后等待完整间隔，失败后改用较短的重试间隔
type Service struct {
	sweeper    Sweeper
	clock      clockwork.Clock
	interval   time.Duration
	retryDelay time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewService(sweeper Sweeper, clock clockwork.Clock, interval, retryDelay time.Duration) *Service {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if retryDelay <= 0 || retryDelay > interval {
		retryDelay = interval
	}
	return &Service{
		sweeper:    sweeper,
		clock:      clock,
		interval:   interval,
		retryDelay: retryDelay,
		stopChan:   make(chan struct{}),
	}
}

// Start 在后台启动巡检循环
func (s *Service) Start(ctx context.Context) {
	go s.Run(ctx)
	log.Info().
		Dur("interval", s.interval).
		Dur("retry_delay", s.retryDelay).
		Msg("expiry sweep scheduler started")
}

// Run 阻塞执行巡检循环，ctx 结束或 Stop 后返回
func (s *Service) Run(ctx context.Context) {
	wait := s.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-s.clock.After(wait):
		}

		if _, err := s.RunNow(ctx); err != nil {
			log.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("scheduled expiry sweep failed")
			wait = s.retryDelay
			continue
		}
		wait = s.interval
	}
}

// Stop 停止巡检循环，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Info().Msg("expiry sweep scheduler stopped")
	})
}

// RunNow 立即执行一次巡检，panic 转为错误返回
func (s *Service) RunNow(ctx context.Context) (result *dto.SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	return s.sweeper.Sweep(ctx)
}
