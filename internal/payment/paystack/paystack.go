package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("paystack config invalid")
	ErrRequestFailed    = errors.New("paystack request failed")
	ErrResponseInvalid  = errors.New("paystack response invalid")
	ErrTransferFailed   = errors.New("paystack transfer failed")
	ErrSignatureInvalid = errors.New("paystack signature invalid")
)

const (
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 10 * time.Second

	// SignatureHeader 回调验签请求头
	SignatureHeader = "x-paystack-signature"

	// simulatedTransferCode 未配置密钥时的模拟转账码
	simulatedTransferCode = "TEST_TRANSFER_CODE"
)

var koboPerNaira = decimal.NewFromInt(100)

// Config Paystack 渠道配置。
type Config struct {
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
	TimeoutMS int    `json:"timeout_ms"`
}

// Simulated 未配置密钥时走模拟打款，便于本地联调。
func (c *Config) Simulated() bool {
	return c == nil || strings.TrimSpace(c.SecretKey) == ""
}

// RecipientInput 创建收款人输入。
type RecipientInput struct {
	Name          string
	AccountNumber string
	BankName      string
	Currency      string
}

// RecipientResult 创建收款人返回。
type RecipientResult struct {
	RecipientCode string
	Raw           map[string]interface{}
}

// TransferInput 发起转账输入。
type TransferInput struct {
	RecipientCode string
	Amount        decimal.Decimal // 单位奈拉，调用内折算为 kobo
	Reference     string
	Reason        string
	Currency      string
}

// TransferResult 发起转账返回。
type TransferResult struct {
	TransferCode string
	Status       string
	Raw          map[string]interface{}
}

// WebhookEvent Paystack 回调事件。
type WebhookEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
	Raw   map[string]interface{}
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return nil
}

// CreateRecipient 创建银行转账收款人。
func CreateRecipient(ctx context.Context, cfg *Config, input RecipientInput) (*RecipientResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Simulated() {
		return &RecipientResult{RecipientCode: "TEST_RECIPIENT_CODE"}, nil
	}
	if strings.TrimSpace(input.AccountNumber) == "" || strings.TrimSpace(input.BankName) == "" {
		return nil, fmt.Errorf("%w: recipient bank details required", ErrConfigInvalid)
	}
	currency := input.Currency
	if currency == "" {
		currency = "NGN"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":           "nuban",
		"name":           input.Name,
		"account_number": input.AccountNumber,
		"bank_code":      input.BankName,
		"currency":       currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal recipient failed", ErrRequestFailed)
	}

	raw, err := doJSONRequest(ctx, cfg, http.MethodPost, "/transferrecipient", payload)
	if err != nil {
		return nil, err
	}
	code := readString(raw, "data", "recipient_code")
	if code == "" {
		return nil, fmt.Errorf("%w: recipient_code missing", ErrResponseInvalid)
	}
	return &RecipientResult{RecipientCode: code, Raw: raw}, nil
}

// InitiateTransfer 发起银行转账，金额折算为 kobo。
func InitiateTransfer(ctx context.Context, cfg *Config, input TransferInput) (*TransferResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Simulated() {
		return &TransferResult{TransferCode: simulatedTransferCode, Status: "pending"}, nil
	}
	if strings.TrimSpace(input.RecipientCode) == "" {
		return nil, fmt.Errorf("%w: recipient_code required", ErrConfigInvalid)
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, fmt.Errorf("%w: reference required", ErrConfigInvalid)
	}
	currency := input.Currency
	if currency == "" {
		currency = "NGN"
	}

	amountKobo := input.Amount.Mul(koboPerNaira).Round(0).IntPart()
	payload, err := json.Marshal(map[string]interface{}{
		"source":    "balance",
		"amount":    amountKobo,
		"recipient": input.RecipientCode,
		"reference": input.Reference,
		"reason":    input.Reason,
		"currency":  currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal transfer failed", ErrRequestFailed)
	}

	raw, err := doJSONRequest(ctx, cfg, http.MethodPost, "/transfer", payload)
	if err != nil {
		return nil, err
	}
	code := readString(raw, "data", "transfer_code")
	if code == "" {
		return nil, fmt.Errorf("%w: transfer_code missing", ErrResponseInvalid)
	}
	return &TransferResult{
		TransferCode: code,
		Status:       readString(raw, "data", "status"),
		Raw:          raw,
	}, nil
}

// VerifyWebhookSignature 校验回调签名（对原始报文做 HMAC-SHA512）。
func VerifyWebhookSignature(cfg *Config, body []byte, signature string) error {
	if cfg == nil || strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key required for webhook verify", ErrConfigInvalid)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrSignatureInvalid
	}
	mac := hmac.New(sha512.New, []byte(cfg.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// ParseWebhookEvent 解析回调报文。
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook payload", ErrResponseInvalid)
	}
	event := &WebhookEvent{Raw: raw}
	event.Event = readString(raw, "event")
	if data, ok := raw["data"].(map[string]interface{}); ok {
		event.Data = data
	}
	if event.Event == "" {
		return nil, fmt.Errorf("%w: event type missing", ErrResponseInvalid)
	}
	return event, nil
}

// Reference 取回调里的业务参考号。
func (e *WebhookEvent) Reference() string {
	return readString(e.Data, "reference")
}

// FailureReason 取回调里的失败原因。
func (e *WebhookEvent) FailureReason() string {
	if reason := readString(e.Data, "reason"); reason != "" {
		return reason
	}
	return readString(e.Data, "message")
}

func doJSONRequest(ctx context.Context, cfg *Config, method, endpoint string, body []byte) (map[string]interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := withDefaultTimeout(ctx, cfg)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(cfg.BaseURL, "/")+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cfg.SecretKey))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed", ErrRequestFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json response", ErrResponseInvalid)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readString(raw, "message")
		return nil, fmt.Errorf("%w: status=%d message=%s", ErrTransferFailed, resp.StatusCode, msg)
	}
	if status, ok := raw["status"].(bool); ok && !status {
		return nil, fmt.Errorf("%w: message=%s", ErrTransferFailed, readString(raw, "message"))
	}
	return raw, nil
}

func withDefaultTimeout(ctx context.Context, cfg *Config) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := defaultTimeout
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return context.WithTimeout(ctx, timeout)
}

func readString(raw map[string]interface{}, path ...string) string {
	if raw == nil {
		return ""
	}
	var current interface{} = raw
	for _, seg := range path {
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := current.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return ""
			}
			current = arr[idx]
			continue
		}
		next, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next[seg]
	}
	if current == nil {
		return ""
	}
	if str, ok := current.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", current)
}
