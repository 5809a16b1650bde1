package worker

import (
	"context"
	"testing"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/provider"
)

func TestNewServiceWithoutQueue(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	svc, err := NewService(&config.QueueConfig{Enabled: false}, consumer)
	if err != nil {
		t.Fatalf("expected service despite disabled queue, got %v", err)
	}
	if svc == nil || svc.server != nil {
		t.Fatalf("expected service without asynq server, got %+v", svc)
	}

	svc, err = NewService(nil, consumer)
	if err != nil || svc == nil {
		t.Fatalf("expected service for nil queue config, got svc=%v err=%v", svc, err)
	}

	if _, err := NewService(nil, nil); err == nil {
		t.Fatal("expected error for nil consumer")
	}
}

func TestStartWithoutQueueBlocksUntilCancel(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	svc, err := NewService(&config.QueueConfig{Enabled: false}, consumer)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("start returned before cancel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("start did not return after cancel")
	}
}
