package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/payment/paystack"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestRequestPayoutGreedySelection(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-greedy@example.com")
	base := time.Now().Add(-time.Hour)
	first := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(3000), base)
	second := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(2000), base.Add(time.Minute))
	third := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(4000), base.Add(2*time.Minute))

	payout, err := svc.RequestPayout(RequestPayoutInput{
		MarketerID: marketer.ID,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(6000)),
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	// 按解冻先后凑单：3000+2000=5000，再取 4000 会超出 6000
	if payout.TotalAmount.StringFixed(2) != "5000.00" {
		t.Fatalf("expected total 5000.00, got %s", payout.TotalAmount.StringFixed(2))
	}
	if payout.CommissionCount != 2 {
		t.Fatalf("expected 2 commissions claimed, got %d", payout.CommissionCount)
	}
	if payout.Reference == "" {
		t.Fatal("expected payout reference")
	}
	// 网关未配置密钥时走模拟转账，批次停留在 processing 等回调
	if payout.Status != constants.PayoutStatusProcessing {
		t.Fatalf("expected processing, got %s", payout.Status)
	}
	if payout.TransferCode != "TEST_TRANSFER_CODE" {
		t.Fatalf("expected simulated transfer code, got %s", payout.TransferCode)
	}
	if payout.ProcessedAt == nil {
		t.Fatal("expected processed_at set")
	}
	if payout.BankName != marketer.BankName || payout.AccountNumber != marketer.AccountNumber {
		t.Fatal("expected bank details snapshot on payout")
	}

	assertCommissionClaim(t, db, first.ID, &payout.ID)
	assertCommissionClaim(t, db, second.ID, &payout.ID)
	assertCommissionClaim(t, db, third.ID, nil)
}

func TestRequestPayoutFullBalanceWhenAmountZero(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-full@example.com")
	base := time.Now().Add(-time.Hour)
	createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(3000), base)
	createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(2500), base.Add(time.Minute))

	payout, err := svc.RequestPayout(RequestPayoutInput{MarketerID: marketer.ID})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	if payout.TotalAmount.StringFixed(2) != "5500.00" {
		t.Fatalf("expected total 5500.00, got %s", payout.TotalAmount.StringFixed(2))
	}
	if payout.CommissionCount != 2 {
		t.Fatalf("expected 2 commissions claimed, got %d", payout.CommissionCount)
	}
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-min@example.com")
	createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(4000), time.Now().Add(-time.Hour))

	if _, err := svc.RequestPayout(RequestPayoutInput{MarketerID: marketer.ID}); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected ErrPayoutBelowMinimum, got %v", err)
	}
}

func TestRequestPayoutSelectedBelowMinimum(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-selmin@example.com")
	base := time.Now().Add(-time.Hour)
	first := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(4000), base)
	second := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(4000), base.Add(time.Minute))
	third := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(2000), base.Add(2*time.Minute))

	// 余额 10000 够门槛，但按 5500 凑单只能取到 4000，仍低于 5000
	if _, err := svc.RequestPayout(RequestPayoutInput{
		MarketerID: marketer.ID,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(5500)),
	}); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected ErrPayoutBelowMinimum, got %v", err)
	}

	var payoutCount int64
	if err := db.Model(&models.Payout{}).Where("marketer_id = ?", marketer.ID).Count(&payoutCount).Error; err != nil {
		t.Fatalf("count payouts failed: %v", err)
	}
	if payoutCount != 0 {
		t.Fatalf("expected no payout row, got %d", payoutCount)
	}
	assertCommissionClaim(t, db, first.ID, nil)
	assertCommissionClaim(t, db, second.ID, nil)
	assertCommissionClaim(t, db, third.ID, nil)
}

func TestRequestPayoutRequiresBankDetails(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "payout-nobank@example.com")
	createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(8000), time.Now().Add(-time.Hour))

	if _, err := svc.RequestPayout(RequestPayoutInput{MarketerID: marketer.ID}); !errors.Is(err, ErrBankDetailsMissing) {
		t.Fatalf("expected ErrBankDetailsMissing, got %v", err)
	}
}

func TestRequestPayoutExcludesClaimedCommissions(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-claimed@example.com")
	otherPayoutID := uint(777)
	claimed := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(6000), time.Now().Add(-2*time.Hour))
	if err := db.Model(&models.Commission{}).Where("id = ?", claimed.ID).
		Update("payout_id", otherPayoutID).Error; err != nil {
		t.Fatalf("claim commission failed: %v", err)
	}
	createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(2000), time.Now().Add(-time.Hour))

	// 已占位的 6000 不计入可用余额，剩余 2000 低于 5000 门槛
	if _, err := svc.RequestPayout(RequestPayoutInput{MarketerID: marketer.ID}); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected ErrPayoutBelowMinimum, got %v", err)
	}
}

func TestHandlePaystackWebhookTransferSuccess(t *testing.T) {
	svc, db, cfg := setupPayoutServiceTest(t)
	cfg.Paystack.SecretKey = "sk_test_webhook_secret"

	marketer := createPayoutTestMarketer(t, db, "payout-hook-ok@example.com")
	payout := createPayoutTestPayout(t, db, marketer.ID, constants.PayoutStatusProcessing, "LW-PO-hook-ok")
	commission := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(5000), time.Now().Add(-time.Hour))
	if err := db.Model(&models.Commission{}).Where("id = ?", commission.ID).
		Update("payout_id", payout.ID).Error; err != nil {
		t.Fatalf("claim commission failed: %v", err)
	}

	body := []byte(`{"event":"transfer.success","data":{"reference":"LW-PO-hook-ok"}}`)
	if err := svc.HandlePaystackWebhook(body, signPayoutTestBody(cfg.Paystack.SecretKey, body)); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	var reloadedPayout models.Payout
	if err := db.First(&reloadedPayout, payout.ID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if reloadedPayout.Status != constants.PayoutStatusCompleted || reloadedPayout.CompletedAt == nil {
		t.Fatalf("expected completed payout, got status=%s", reloadedPayout.Status)
	}

	var reloadedCommission models.Commission
	if err := db.First(&reloadedCommission, commission.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if reloadedCommission.Status != constants.CommissionStatusPaid || reloadedCommission.PaidAt == nil {
		t.Fatalf("expected paid commission, got status=%s", reloadedCommission.Status)
	}

	assertPaymentEventAudit(t, db, "transfer.success", true)
}

func TestHandlePaystackWebhookTransferFailed(t *testing.T) {
	svc, db, cfg := setupPayoutServiceTest(t)
	cfg.Paystack.SecretKey = "sk_test_webhook_secret"

	marketer := createPayoutTestMarketer(t, db, "payout-hook-fail@example.com")
	payout := createPayoutTestPayout(t, db, marketer.ID, constants.PayoutStatusProcessing, "LW-PO-hook-fail")
	commission := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(5000), time.Now().Add(-time.Hour))
	if err := db.Model(&models.Commission{}).Where("id = ?", commission.ID).
		Update("payout_id", payout.ID).Error; err != nil {
		t.Fatalf("claim commission failed: %v", err)
	}

	body := []byte(`{"event":"transfer.failed","data":{"reference":"LW-PO-hook-fail","reason":"insufficient balance"}}`)
	if err := svc.HandlePaystackWebhook(body, signPayoutTestBody(cfg.Paystack.SecretKey, body)); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	var reloadedPayout models.Payout
	if err := db.First(&reloadedPayout, payout.ID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if reloadedPayout.Status != constants.PayoutStatusFailed {
		t.Fatalf("expected failed payout, got %s", reloadedPayout.Status)
	}
	if reloadedPayout.FailureReason != "insufficient balance" {
		t.Fatalf("expected failure reason, got %q", reloadedPayout.FailureReason)
	}
	if reloadedPayout.ProcessedAt == nil {
		t.Fatal("expected processed_at on failed payout")
	}
	if reloadedPayout.CompletedAt != nil {
		t.Fatal("failed payout must not carry completed_at")
	}

	// 失败批次不自动释放占位，留给管理员复核
	assertCommissionClaim(t, db, commission.ID, &payout.ID)
}

func TestHandlePaystackWebhookInvalidSignature(t *testing.T) {
	svc, db, cfg := setupPayoutServiceTest(t)
	cfg.Paystack.SecretKey = "sk_test_webhook_secret"

	body := []byte(`{"event":"transfer.success","data":{"reference":"LW-PO-bad-sig"}}`)
	err := svc.HandlePaystackWebhook(body, "deadbeef")
	if !errors.Is(err, paystack.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}

	// 验签失败也要留痕
	assertPaymentEventAudit(t, db, "transfer.success", false)
}

func TestHandlePaystackWebhookChargeSuccess(t *testing.T) {
	svc, db, cfg := setupPayoutServiceTest(t)
	cfg.Paystack.SecretKey = "sk_test_webhook_secret"

	product := createServiceTestProduct(t, db, "payout-charge-product")
	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusPending,
	})
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"payment_status":    constants.OrderPaymentStatusPending,
			"payment_reference": "LW-CHG-0001",
		}).Error; err != nil {
		t.Fatalf("set payment reference failed: %v", err)
	}

	body := []byte(`{"event":"charge.success","data":{"reference":"LW-CHG-0001"}}`)
	if err := svc.HandlePaystackWebhook(body, signPayoutTestBody(cfg.Paystack.SecretKey, body)); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.OrderPaymentStatusPaid || reloaded.PaidAt == nil {
		t.Fatalf("expected paid order, got payment_status=%s", reloaded.PaymentStatus)
	}
	if reloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("expected order status paid, got %s", reloaded.Status)
	}
}

func TestCancelPayoutReleasesClaims(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-cancel@example.com")
	payout := createPayoutTestPayout(t, db, marketer.ID, constants.PayoutStatusProcessing, "LW-PO-cancel")
	commission := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(5000), time.Now().Add(-time.Hour))
	if err := db.Model(&models.Commission{}).Where("id = ?", commission.ID).
		Update("payout_id", payout.ID).Error; err != nil {
		t.Fatalf("claim commission failed: %v", err)
	}

	cancelled, err := svc.CancelPayout(payout.ID)
	if err != nil {
		t.Fatalf("cancel payout failed: %v", err)
	}
	if cancelled.Status != constants.PayoutStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	assertCommissionClaim(t, db, commission.ID, nil)

	if _, err := svc.CancelPayout(payout.ID); !errors.Is(err, ErrPayoutStatusInvalid) {
		t.Fatalf("expected ErrPayoutStatusInvalid on second cancel, got %v", err)
	}
}

func TestReleaseFailedPayout(t *testing.T) {
	svc, db, _ := setupPayoutServiceTest(t)

	marketer := createPayoutTestMarketer(t, db, "payout-release@example.com")
	failed := createPayoutTestPayout(t, db, marketer.ID, constants.PayoutStatusFailed, "LW-PO-release")
	commission := createPayoutTestCommission(t, db, marketer.ID, decimal.NewFromInt(5000), time.Now().Add(-time.Hour))
	if err := db.Model(&models.Commission{}).Where("id = ?", commission.ID).
		Update("payout_id", failed.ID).Error; err != nil {
		t.Fatalf("claim commission failed: %v", err)
	}

	released, err := svc.ReleaseFailedPayout(failed.ID)
	if err != nil {
		t.Fatalf("release failed payout: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released commission, got %d", released)
	}
	assertCommissionClaim(t, db, commission.ID, nil)

	pending := createPayoutTestPayout(t, db, marketer.ID, constants.PayoutStatusPending, "LW-PO-pending")
	if _, err := svc.ReleaseFailedPayout(pending.ID); !errors.Is(err, ErrPayoutStatusInvalid) {
		t.Fatalf("expected ErrPayoutStatusInvalid for pending payout, got %v", err)
	}
}

func setupPayoutServiceTest(t *testing.T) (*PayoutService, *gorm.DB, *config.Config) {
	t.Helper()

	db := openServiceTestDB(t, "payout_service")
	cfg := newServiceTestConfig()
	svc := NewPayoutService(
		cfg,
		repository.NewPayoutRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewOrderRepository(db),
		repository.NewUserRepository(db),
		repository.NewFraudRepository(db),
		nil,
	)
	return svc, db, cfg
}

func createPayoutTestMarketer(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := createServiceTestMarketer(t, db, email)
	row.BankName = "GTBank"
	row.AccountNumber = "0123456789"
	row.AccountName = "Test Marketer"
	if err := db.Save(&row).Error; err != nil {
		t.Fatalf("set bank details failed: %v", err)
	}
	return row
}

var payoutTestCommissionSeq int

func createPayoutTestCommission(t *testing.T, db *gorm.DB, marketerID uint, net decimal.Decimal, approvedAt time.Time) models.Commission {
	t.Helper()

	payoutTestCommissionSeq++
	row := models.Commission{
		OrderID:       uint(50000 + payoutTestCommissionSeq),
		MarketerID:    marketerID,
		ProductID:     1,
		NetCommission: models.NewMoneyFromDecimal(net),
		Status:        constants.CommissionStatusApproved,
		ApprovedAt:    &approvedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return row
}

var payoutTestPayoutSeq int

func createPayoutTestPayout(t *testing.T, db *gorm.DB, marketerID uint, status, reference string) models.Payout {
	t.Helper()

	payoutTestPayoutSeq++
	row := models.Payout{
		MarketerID:      marketerID,
		Method:          constants.PayoutMethodBankTransfer,
		TotalAmount:     models.NewMoneyFromDecimal(decimal.NewFromInt(5000)),
		CommissionCount: 1,
		BankName:        "GTBank",
		AccountNumber:   "0123456789",
		AccountName:     fmt.Sprintf("Test Marketer %d", payoutTestPayoutSeq),
		Status:          status,
		Reference:       reference,
		RequestedAt:     time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	return row
}

func signPayoutTestBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func assertCommissionClaim(t *testing.T, db *gorm.DB, commissionID uint, wantPayoutID *uint) {
	t.Helper()

	var row models.Commission
	if err := db.First(&row, commissionID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if wantPayoutID == nil {
		if row.PayoutID != nil {
			t.Fatalf("expected unclaimed commission %d, got payout_id=%d", commissionID, *row.PayoutID)
		}
		return
	}
	if row.PayoutID == nil || *row.PayoutID != *wantPayoutID {
		t.Fatalf("expected commission %d claimed by payout %d, got %v", commissionID, *wantPayoutID, row.PayoutID)
	}
}

func assertPaymentEventAudit(t *testing.T, db *gorm.DB, event string, signatureValid bool) {
	t.Helper()

	var row models.PaymentEvent
	if err := db.Where("event = ? AND signature_valid = ?", event, signatureValid).First(&row).Error; err != nil {
		t.Fatalf("expected payment event audit row (event=%s valid=%v): %v", event, signatureValid, err)
	}
	if row.Provider != constants.PaymentProviderPaystack {
		t.Fatalf("expected paystack provider, got %s", row.Provider)
	}
}
