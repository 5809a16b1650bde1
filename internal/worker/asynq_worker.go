package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/provider"
	"github.com/linkway-core/internal/queue"
	"github.com/linkway-core/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionProcess, c.handleCommissionProcess)
	mux.HandleFunc(queue.TaskFraudScanMarketer, c.handleFraudScanMarketer)
	mux.HandleFunc(queue.TaskPayoutResultEmail, c.handlePayoutResultEmail)
}

func (c *Consumer) handleCommissionProcess(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_process_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_process_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_process_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_process_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	_, err := c.CommissionService.ProcessOrder(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_commission_process_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_commission_process_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleFraudScanMarketer(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_fraud_scan_marketer_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.FraudScanMarketerPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_fraud_scan_marketer_unmarshal_failed", "error", err)
		return err
	}
	if payload.MarketerID == 0 {
		logger.Debugw("worker_fraud_scan_marketer_skip_invalid_payload", "marketer_id", payload.MarketerID)
		return nil
	}
	if c.FraudService == nil {
		logger.Warnw("worker_fraud_scan_marketer_skip_service_nil", "marketer_id", payload.MarketerID)
		return nil
	}
	result, err := c.FraudService.ScoreMarketer(payload.MarketerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_fraud_scan_marketer_skip_not_found", "marketer_id", payload.MarketerID)
			return nil
		}
		logger.Warnw("worker_fraud_scan_marketer_failed", "marketer_id", payload.MarketerID, "error", err)
		return err
	}
	if result != nil && result.Score > 0 {
		logger.Infow("worker_fraud_scan_marketer_scored",
			"marketer_id", payload.MarketerID,
			"score", result.Score,
			"action", result.Action,
		)
	}
	return nil
}

func (c *Consumer) handlePayoutResultEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payout_result_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PayoutResultEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payout_result_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.PayoutID == 0 {
		logger.Debugw("worker_payout_result_email_skip_invalid_payload", "payout_id", payload.PayoutID)
		return nil
	}
	payout, err := c.PayoutRepo.GetByID(payload.PayoutID)
	if err != nil {
		logger.Warnw("worker_payout_result_email_fetch_payout_failed", "payout_id", payload.PayoutID, "error", err)
		return err
	}
	if payout == nil {
		logger.Debugw("worker_payout_result_email_skip_payout_not_found", "payout_id", payload.PayoutID)
		return nil
	}
	marketer, err := c.UserRepo.GetByID(payout.MarketerID)
	if err != nil {
		logger.Warnw("worker_payout_result_email_fetch_marketer_failed",
			"payout_id", payout.ID, "marketer_id", payout.MarketerID, "error", err)
		return err
	}
	if marketer == nil || strings.TrimSpace(marketer.Email) == "" {
		logger.Debugw("worker_payout_result_email_skip_empty_receiver", "payout_id", payout.ID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_payout_result_email_skip_email_service_nil", "payout_id", payout.ID)
		return nil
	}
	input := service.PayoutResultEmailInput{
		Reference:     payout.Reference,
		Result:        payload.Result,
		Amount:        payout.TotalAmount,
		Currency:      c.Config.Payout.Currency,
		FailureReason: payout.FailureReason,
	}
	if err := c.EmailService.SendPayoutResultEmail(marketer.Email, input); err != nil {
		if errors.Is(err, service.ErrEmailServiceDisabled) || errors.Is(err, service.ErrEmailServiceNotConfigured) {
			logger.Debugw("worker_payout_result_email_skip_disabled", "payout_id", payout.ID)
			return nil
		}
		logger.Warnw("worker_payout_result_email_send_failed",
			"payout_id", payout.ID,
			"reference", payout.Reference,
			"receiver_email", marketer.Email,
			"result", payload.Result,
			"error", err,
		)
		return err
	}
	return nil
}
