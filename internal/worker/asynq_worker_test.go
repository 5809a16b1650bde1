package worker

import (
	"context"
	"testing"

	"github.com/linkway-core/internal/provider"
	"github.com/linkway-core/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleCommissionProcessInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskCommissionProcess, []byte("{not json"))
	if err := consumer.handleCommissionProcess(context.Background(), task); err == nil {
		t.Fatal("expected unmarshal error for malformed payload")
	}
}

func TestHandleCommissionProcessSkipZeroOrderID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewCommissionProcessTask(queue.CommissionProcessPayload{OrderID: 0})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := consumer.handleCommissionProcess(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero order id, got %v", err)
	}
}

func TestHandleCommissionProcessSkipServiceNil(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewCommissionProcessTask(queue.CommissionProcessPayload{OrderID: 42})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := consumer.handleCommissionProcess(context.Background(), task); err != nil {
		t.Fatalf("expected nil when commission service missing, got %v", err)
	}
}

func TestHandleFraudScanMarketerSkipZeroID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewFraudScanMarketerTask(queue.FraudScanMarketerPayload{MarketerID: 0})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := consumer.handleFraudScanMarketer(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero marketer id, got %v", err)
	}
}

func TestHandlePayoutResultEmailSkipZeroID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewPayoutResultEmailTask(queue.PayoutResultEmailPayload{PayoutID: 0})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := consumer.handlePayoutResultEmail(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero payout id, got %v", err)
	}
}
