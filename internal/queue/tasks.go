package queue

import (
	"encoding/json"

	"github.com/linkway-core/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionProcess 订单佣金结算任务
	TaskCommissionProcess = constants.TaskCommissionProcess
	// TaskFraudScanMarketer 推广员风控扫描任务
	TaskFraudScanMarketer = constants.TaskFraudScanMarketer
	// TaskPayoutResultEmail 打款结果邮件通知任务
	TaskPayoutResultEmail = constants.TaskPayoutResultEmail
)

// CommissionProcessPayload 订单佣金结算任务载荷
type CommissionProcessPayload struct {
	OrderID uint `json:"order_id"`
}

// NewCommissionProcessTask 创建佣金结算任务
func NewCommissionProcessTask(payload CommissionProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionProcess, data), nil
}

// FraudScanMarketerPayload 推广员风控扫描任务载荷
type FraudScanMarketerPayload struct {
	MarketerID uint `json:"marketer_id"`
}

// NewFraudScanMarketerTask 创建推广员风控扫描任务
func NewFraudScanMarketerTask(payload FraudScanMarketerPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFraudScanMarketer, data), nil
}

// PayoutResultEmailPayload 打款结果邮件任务载荷
type PayoutResultEmailPayload struct {
	PayoutID uint   `json:"payout_id"`
	Result   string `json:"result"` // completed / failed
}

// NewPayoutResultEmailTask 创建打款结果邮件任务
func NewPayoutResultEmailTask(payload PayoutResultEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutResultEmail, data), nil
}
