package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestProcessOrderPercentageCommission(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-pct@example.com")
	product := createServiceTestProduct(t, db, "comm-pct-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "commpct0001")
	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Rate:     decimal.NewFromInt(10),
		Status:   constants.OrderStatusDelivered,
	})

	commission, err := svc.ProcessOrder(order.ID)
	if err != nil {
		t.Fatalf("process order failed: %v", err)
	}

	// 10000 的 10% = 1000 毛佣金，平台费 2.5% = 25，净佣金 975
	if got := commission.CommissionAmount.StringFixed(2); got != "1000.00" {
		t.Fatalf("expected gross 1000.00, got %s", got)
	}
	if got := commission.PlatformFeeAmount.StringFixed(2); got != "25.00" {
		t.Fatalf("expected fee 25.00, got %s", got)
	}
	if got := commission.NetCommission.StringFixed(2); got != "975.00" {
		t.Fatalf("expected net 975.00, got %s", got)
	}
	if commission.Status != constants.CommissionStatusEarned {
		t.Fatalf("expected earned status, got %s", commission.Status)
	}
	if commission.HoldbackUntil == nil {
		t.Fatal("expected holdback_until set")
	}
	wantHoldback := order.DeliveredAt.Add(14 * 24 * time.Hour)
	if diff := commission.HoldbackUntil.Sub(wantHoldback); diff < -time.Second || diff > time.Second {
		t.Fatalf("expected holdback 14 days after delivery, diff %v", diff)
	}

	var reloaded models.AffiliateLink
	if err := db.First(&reloaded, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloaded.ConversionCount != 1 {
		t.Fatalf("expected conversion_count 1, got %d", reloaded.ConversionCount)
	}
	if got := reloaded.TotalRevenue.StringFixed(2); got != "10000.00" {
		t.Fatalf("expected total_revenue 10000.00, got %s", got)
	}
	if got := reloaded.TotalCommission.StringFixed(2); got != "1000.00" {
		t.Fatalf("expected total_commission 1000.00, got %s", got)
	}
}

func TestProcessOrderIdempotentPerOrder(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-idem@example.com")
	product := createServiceTestProduct(t, db, "comm-idem-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "commidem001")
	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Rate:     decimal.NewFromInt(10),
		Status:   constants.OrderStatusDelivered,
	})

	first, err := svc.ProcessOrder(order.ID)
	if err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	second, err := svc.ProcessOrder(order.ID)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same commission, got %d and %d", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single commission row, got %d", count)
	}

	// 重复处理不得重复累加链接成交聚合
	var reloaded models.AffiliateLink
	if err := db.First(&reloaded, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloaded.ConversionCount != 1 {
		t.Fatalf("expected conversion_count 1 after replay, got %d", reloaded.ConversionCount)
	}
}

func TestProcessOrderFixedCommission(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-fixed@example.com")
	product := createServiceTestProduct(t, db, "comm-fixed-product")
	product.CommissionType = constants.CommissionTypeFixed
	product.FixedCommissionAmount = models.NewMoneyFromDecimal(decimal.NewFromInt(2500))
	if err := db.Save(&product).Error; err != nil {
		t.Fatalf("update product failed: %v", err)
	}
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "commfix0001")
	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 2,
		Subtotal: decimal.NewFromInt(20000),
		Status:   constants.OrderStatusDelivered,
	})

	commission, err := svc.ProcessOrder(order.ID)
	if err != nil {
		t.Fatalf("process order failed: %v", err)
	}
	// 固定佣金按件数叠加：2500 × 2 = 5000
	if got := commission.CommissionAmount.StringFixed(2); got != "5000.00" {
		t.Fatalf("expected gross 5000.00, got %s", got)
	}
	if !commission.CommissionRate.IsZero() {
		t.Fatalf("fixed commission must snapshot zero rate, got %s", commission.CommissionRate.String())
	}
	if got := commission.NetCommission.StringFixed(2); got != "4875.00" {
		t.Fatalf("expected net 4875.00, got %s", got)
	}
}

func TestProcessOrderNotEligible(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-inel@example.com")
	product := createServiceTestProduct(t, db, "comm-inel-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "comminel001")

	pending := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Rate:     decimal.NewFromInt(10),
		Status:   constants.OrderStatusPending,
	})
	commission, err := svc.ProcessOrder(pending.ID)
	if err != nil {
		t.Fatalf("ProcessOrder pending order: %v", err)
	}
	if commission != nil {
		t.Fatalf("expected no commission for pending order, got %+v", commission)
	}

	organic := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusDelivered,
	})
	commission, err = svc.ProcessOrder(organic.ID)
	if err != nil {
		t.Fatalf("ProcessOrder organic order: %v", err)
	}
	if commission != nil {
		t.Fatalf("expected no commission for organic order, got %+v", commission)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count commissions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero commission rows, got %d", count)
	}

	if _, err := svc.ProcessOrder(99999); err != ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestReleaseHeldCommissions(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-release@example.com")
	due := createTestCommission(t, db, marketer.ID, decimal.NewFromInt(975), constants.CommissionStatusEarned, nil)
	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Commission{}).Where("id = ?", due.ID).Update("holdback_until", past).Error; err != nil {
		t.Fatalf("set holdback failed: %v", err)
	}
	notDue := createTestCommission(t, db, marketer.ID, decimal.NewFromInt(500), constants.CommissionStatusEarned, nil)
	future := time.Now().Add(24 * time.Hour)
	if err := db.Model(&models.Commission{}).Where("id = ?", notDue.ID).Update("holdback_until", future).Error; err != nil {
		t.Fatalf("set holdback failed: %v", err)
	}

	released, err := svc.ReleaseHeldCommissions()
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released, got %d", released)
	}

	var reloaded models.Commission
	if err := db.First(&reloaded, due.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if reloaded.Status != constants.CommissionStatusApproved || reloaded.ApprovedAt == nil {
		t.Fatalf("expected approved with timestamp, got %s", reloaded.Status)
	}

	reloaded = models.Commission{}
	if err := db.First(&reloaded, notDue.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if reloaded.Status != constants.CommissionStatusEarned {
		t.Fatalf("not-due commission must stay earned, got %s", reloaded.Status)
	}
}

func TestApproveAndReverseCommission(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-state@example.com")

	earned := createTestCommission(t, db, marketer.ID, decimal.NewFromInt(975), constants.CommissionStatusEarned, nil)
	approved, err := svc.Approve(earned.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.CommissionStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("expected approved, got %+v", approved)
	}
	if _, err := svc.Approve(earned.ID); err != ErrCommissionStatusInvalid {
		t.Fatalf("expected ErrCommissionStatusInvalid on double approve, got %v", err)
	}

	reversed, err := svc.Reverse(approved.ID, "order refunded")
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if reversed.Status != constants.CommissionStatusReversed || reversed.ReversalReason != "order refunded" {
		t.Fatalf("expected reversed with reason, got %+v", reversed)
	}
	if _, err := svc.Reverse(reversed.ID, "again"); err != ErrCommissionStatusInvalid {
		t.Fatalf("expected ErrCommissionStatusInvalid on double reverse, got %v", err)
	}

	payoutID := uint(77)
	claimed := createTestCommission(t, db, marketer.ID, decimal.NewFromInt(500), constants.CommissionStatusApproved, &payoutID)
	if _, err := svc.Reverse(claimed.ID, "refund"); err != ErrCommissionAlreadyClaimed {
		t.Fatalf("expected ErrCommissionAlreadyClaimed, got %v", err)
	}

	paid := createTestCommission(t, db, marketer.ID, decimal.NewFromInt(600), constants.CommissionStatusPaid, nil)
	if _, err := svc.Reverse(paid.ID, "refund"); err != ErrCommissionStatusInvalid {
		t.Fatalf("expected ErrCommissionStatusInvalid for paid commission, got %v", err)
	}
}

func TestCommissionSummary(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "comm-summary@example.com")
	other := createServiceTestMarketer(t, db, "comm-summary-other@example.com")

	createTestCommission(t, db, marketer.ID, decimal.NewFromInt(100), constants.CommissionStatusEarned, nil)
	createTestCommission(t, db, marketer.ID, decimal.NewFromInt(200), constants.CommissionStatusApproved, nil)
	createTestCommission(t, db, marketer.ID, decimal.NewFromInt(300), constants.CommissionStatusPaid, nil)
	createTestCommission(t, db, marketer.ID, decimal.NewFromInt(400), constants.CommissionStatusReversed, nil)
	createTestCommission(t, db, other.ID, decimal.NewFromInt(999), constants.CommissionStatusEarned, nil)

	summary, err := svc.Summary(marketer.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if got := summary.EarnedTotal.StringFixed(2); got != "100.00" {
		t.Fatalf("expected earned 100.00, got %s", got)
	}
	if got := summary.ApprovedTotal.StringFixed(2); got != "200.00" {
		t.Fatalf("expected approved 200.00, got %s", got)
	}
	if got := summary.PaidTotal.StringFixed(2); got != "300.00" {
		t.Fatalf("expected paid 300.00, got %s", got)
	}
	// 逆向佣金不计入累计收益
	if got := summary.LifetimeTotal.StringFixed(2); got != "600.00" {
		t.Fatalf("expected lifetime 600.00, got %s", got)
	}
}

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "commission_service")
	cfg := newServiceTestConfig()
	return NewCommissionService(
		cfg,
		repository.NewCommissionRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewAffiliateRepository(db),
	), db
}

type commissionTestOrder struct {
	Product  models.Product
	Marketer *models.User
	Link     *models.AffiliateLink
	Quantity int
	Subtotal decimal.Decimal
	Rate     decimal.Decimal
	Status   string
}

var commissionTestOrderSeq int

func createCommissionTestOrder(t *testing.T, db *gorm.DB, input commissionTestOrder) models.Order {
	t.Helper()

	commissionTestOrderSeq++
	now := time.Now()
	row := models.Order{
		OrderNo:       fmt.Sprintf("LWTEST%d%d", now.UnixNano(), commissionTestOrderSeq),
		BuyerID:       1,
		SellerID:      input.Product.SellerID,
		ProductID:     input.Product.ID,
		Quantity:      input.Quantity,
		UnitPrice:     input.Product.Price,
		Subtotal:      models.NewMoneyFromDecimal(input.Subtotal),
		TotalAmount:   models.NewMoneyFromDecimal(input.Subtotal),
		Status:        input.Status,
		PaymentStatus: constants.OrderPaymentStatusPaid,
	}
	if !input.Rate.IsZero() {
		row.CommissionRate = models.NewMoneyFromDecimal(input.Rate)
	}
	if input.Marketer != nil {
		row.MarketerID = &input.Marketer.ID
	}
	if input.Link != nil {
		row.AffiliateLinkID = &input.Link.ID
	}
	if input.Status == constants.OrderStatusDelivered {
		deliveredAt := now.Add(-time.Minute)
		row.DeliveredAt = &deliveredAt
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return row
}

var commissionTestSeq int

func createTestCommission(t *testing.T, db *gorm.DB, marketerID uint, net decimal.Decimal, status string, payoutID *uint) models.Commission {
	t.Helper()

	commissionTestSeq++
	row := models.Commission{
		OrderID:       uint(10000 + commissionTestSeq),
		MarketerID:    marketerID,
		ProductID:     1,
		NetCommission: models.NewMoneyFromDecimal(net),
		Status:        status,
		PayoutID:      payoutID,
	}
	if status == constants.CommissionStatusApproved {
		now := time.Now()
		row.ApprovedAt = &now
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return row
}
