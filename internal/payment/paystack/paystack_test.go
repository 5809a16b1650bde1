package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestVerifyWebhookSignature(t *testing.T) {
	cfg := &Config{SecretKey: "sk_test_secret"}
	body := []byte(`{"event":"transfer.success","data":{"reference":"LW-PO-1"}}`)

	mac := hmac.New(sha512.New, []byte(cfg.SecretKey))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	if err := VerifyWebhookSignature(cfg, body, valid); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifyWebhookSignature(cfg, body, "deadbeef"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if err := VerifyWebhookSignature(cfg, body, ""); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for empty signature, got %v", err)
	}
	if err := VerifyWebhookSignature(&Config{}, body, valid); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid without secret, got %v", err)
	}
}

func TestParseWebhookEvent(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"event":"transfer.failed","data":{"reference":"LW-PO-2","reason":"insufficient balance"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.Event != "transfer.failed" {
		t.Fatalf("expected transfer.failed, got %s", event.Event)
	}
	if event.Reference() != "LW-PO-2" {
		t.Fatalf("expected reference LW-PO-2, got %s", event.Reference())
	}
	if event.FailureReason() != "insufficient balance" {
		t.Fatalf("expected failure reason, got %s", event.FailureReason())
	}

	if _, err := ParseWebhookEvent([]byte(`not json`)); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for bad json, got %v", err)
	}
	if _, err := ParseWebhookEvent([]byte(`{"data":{}}`)); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for missing event, got %v", err)
	}
}

func TestFailureReasonFallsBackToMessage(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"event":"transfer.failed","data":{"reference":"LW-PO-3","message":"account closed"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.FailureReason() != "account closed" {
		t.Fatalf("expected message fallback, got %s", event.FailureReason())
	}
}

func TestSimulatedTransferWithoutSecretKey(t *testing.T) {
	cfg := &Config{}

	recipient, err := CreateRecipient(context.Background(), cfg, RecipientInput{Name: "Test"})
	if err != nil {
		t.Fatalf("simulated recipient failed: %v", err)
	}
	if recipient.RecipientCode != "TEST_RECIPIENT_CODE" {
		t.Fatalf("expected simulated recipient code, got %s", recipient.RecipientCode)
	}

	transfer, err := InitiateTransfer(context.Background(), cfg, TransferInput{
		Amount: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("simulated transfer failed: %v", err)
	}
	if transfer.TransferCode != "TEST_TRANSFER_CODE" || transfer.Status != "pending" {
		t.Fatalf("expected simulated transfer, got %+v", transfer)
	}
}

func TestInitiateTransferConvertsNairaToKobo(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_live" {
			t.Errorf("unexpected authorization header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"data":{"transfer_code":"TRF_abc123","status":"pending"}}`))
	}))
	defer server.Close()

	cfg := &Config{SecretKey: "sk_test_live", BaseURL: server.URL}
	transfer, err := InitiateTransfer(context.Background(), cfg, TransferInput{
		RecipientCode: "RCP_x",
		Amount:        decimal.RequireFromString("5123.45"),
		Reference:     "LW-PO-kobo",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if transfer.TransferCode != "TRF_abc123" {
		t.Fatalf("expected TRF_abc123, got %s", transfer.TransferCode)
	}
	// 5123.45 奈拉折算 512345 kobo
	if amount, ok := captured["amount"].(float64); !ok || amount != 512345 {
		t.Fatalf("expected amount 512345 kobo, got %v", captured["amount"])
	}
	if captured["currency"] != "NGN" {
		t.Fatalf("expected NGN default currency, got %v", captured["currency"])
	}
}

func TestInitiateTransferGatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"insufficient balance"}`))
	}))
	defer server.Close()

	cfg := &Config{SecretKey: "sk_test_live", BaseURL: server.URL}
	_, err := InitiateTransfer(context.Background(), cfg, TransferInput{
		RecipientCode: "RCP_x",
		Amount:        decimal.NewFromInt(5000),
		Reference:     "LW-PO-reject",
	})
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestCreateRecipientRequiresBankDetails(t *testing.T) {
	cfg := &Config{SecretKey: "sk_test_live"}
	_, err := CreateRecipient(context.Background(), cfg, RecipientInput{Name: "No Bank"})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}
