package worker

import (
	"context"
	"errors"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务。队列关闭时不起 asynq 消费端，仅保留兜底扫描。
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	svc := &Service{
		name:     "worker",
		consumer: consumer,
	}
	if cfg == nil || !cfg.Enabled {
		return svc, nil
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	svc.server = asynq.NewServer(opt, serverCfg)
	svc.mux = asynq.NewServeMux()
	consumer.Register(svc.mux)
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务。无 asynq 消费端时阻塞至上下文取消，扫描协程照常运行。
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer.CommissionService != nil {
		go s.runCommissionSweepLoop(ctx)
		go s.runCommissionReleaseLoop(ctx)
	}
	if s.consumer.QueueClient != nil && s.consumer.UserRepo != nil {
		go s.runMarketerScanLoop(ctx)
	}
	if s.server == nil {
		<-ctx.Done()
		return nil
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runCommissionSweepLoop 兜底扫描已送达但未结算佣金的订单
func (s *Service) runCommissionSweepLoop(ctx context.Context) {
	interval := time.Duration(s.consumer.Config.Commission.ProcessIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	runOnce := func() {
		processed, err := s.consumer.CommissionService.ProcessDeliveredOrders()
		if err != nil {
			logger.Warnw("worker_commission_sweep_failed", "error", err)
			return
		}
		if processed > 0 {
			logger.Infow("worker_commission_sweep_done", "processed", processed)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runCommissionReleaseLoop 按保留期释放佣金（earned → approved）
func (s *Service) runCommissionReleaseLoop(ctx context.Context) {
	interval := time.Duration(s.consumer.Config.Commission.ReleaseIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	runOnce := func() {
		released, err := s.consumer.CommissionService.ReleaseHeldCommissions()
		if err != nil {
			logger.Warnw("worker_commission_release_failed", "error", err)
			return
		}
		if released > 0 {
			logger.Infow("worker_commission_release_done", "released", released)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runMarketerScanLoop 周期性为每个活跃推广员入队风控扫描任务
func (s *Service) runMarketerScanLoop(ctx context.Context) {
	intervalHours := s.consumer.Config.Fraud.MarketerScanIntervalHr
	if intervalHours <= 0 {
		intervalHours = 24
	}
	interval := time.Duration(intervalHours) * time.Hour

	runOnce := func() {
		ids, err := s.consumer.UserRepo.ListActiveIDsByRole(constants.UserRoleMarketer)
		if err != nil {
			logger.Warnw("worker_marketer_scan_list_failed", "error", err)
			return
		}
		enqueued := 0
		for _, id := range ids {
			if err := s.consumer.QueueClient.EnqueueFraudScanMarketer(queue.FraudScanMarketerPayload{MarketerID: id}); err != nil {
				logger.Warnw("worker_marketer_scan_enqueue_failed", "marketer_id", id, "error", err)
				continue
			}
			enqueued++
		}
		if enqueued > 0 {
			logger.Infow("worker_marketer_scan_enqueued", "count", enqueued)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
