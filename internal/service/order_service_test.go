package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"gorm.io/gorm"
)

func TestCreateOrderSnapshotsAttribution(t *testing.T) {
	orderSvc, attributionSvc, db := setupOrderServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "order-attr-marketer@example.com")
	buyer := createServiceTestBuyer(t, db, "order-attr-buyer@example.com")
	product := createServiceTestProduct(t, db, "order-attr-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "orderattr001")

	clickResult, err := attributionSvc.RecordClick(RecordClickInput{
		Slug:     link.Slug,
		CookieID: "order-attr-cookie",
		ClientIP: "203.0.113.40",
	})
	if err != nil {
		t.Fatalf("record click failed: %v", err)
	}

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		BuyerID:   buyer.ID,
		ProductID: product.ID,
		Quantity:  2,
		CookieID:  clickResult.CookieID,
		ClientIP:  "203.0.113.40",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !strings.HasPrefix(order.OrderNo, "LW") {
		t.Fatalf("expected LW order no, got %q", order.OrderNo)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if order.Subtotal.StringFixed(2) != "20000.00" || order.TotalAmount.StringFixed(2) != "20000.00" {
		t.Fatalf("expected subtotal 20000.00, got %s", order.Subtotal.StringFixed(2))
	}
	if order.MarketerID == nil || *order.MarketerID != marketer.ID {
		t.Fatalf("expected marketer snapshot %d, got %v", marketer.ID, order.MarketerID)
	}
	if order.AffiliateLinkID == nil || *order.AffiliateLinkID != link.ID {
		t.Fatalf("expected link snapshot %d, got %v", link.ID, order.AffiliateLinkID)
	}
	if order.CommissionRate.StringFixed(2) != "10.00" {
		t.Fatalf("expected rate snapshot 10.00, got %s", order.CommissionRate.StringFixed(2))
	}
	if order.AttributionCookieID != "order-attr-cookie" {
		t.Fatalf("expected cookie snapshot, got %q", order.AttributionCookieID)
	}

	// 下单同时冻结归因记录
	var record models.AttributionRecord
	if err := db.Where("cookie_id = ?", "order-attr-cookie").First(&record).Error; err != nil {
		t.Fatalf("reload attribution failed: %v", err)
	}
	if !record.Converted || record.OrderID == nil || *record.OrderID != order.ID {
		t.Fatalf("expected converted attribution for order %d, got %+v", order.ID, record)
	}
}

func TestCreateOrderSkipsSelfPurchase(t *testing.T) {
	orderSvc, attributionSvc, db := setupOrderServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "order-self@example.com")
	product := createServiceTestProduct(t, db, "order-self-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "orderself001")

	clickResult, err := attributionSvc.RecordClick(RecordClickInput{
		Slug:     link.Slug,
		CookieID: "order-self-cookie",
	})
	if err != nil {
		t.Fatalf("record click failed: %v", err)
	}

	// 推广员通过自己的链接下单：不计佣，归因也不冻结，但 cookie 留痕供风控
	order, err := orderSvc.CreateOrder(CreateOrderInput{
		BuyerID:   marketer.ID,
		ProductID: product.ID,
		Quantity:  1,
		CookieID:  clickResult.CookieID,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.MarketerID != nil || order.AffiliateLinkID != nil {
		t.Fatalf("expected no credit snapshot, got %+v", order)
	}
	if order.AttributionCookieID != "order-self-cookie" {
		t.Fatalf("expected cookie kept on order, got %q", order.AttributionCookieID)
	}

	var record models.AttributionRecord
	if err := db.Where("cookie_id = ?", "order-self-cookie").First(&record).Error; err != nil {
		t.Fatalf("reload attribution failed: %v", err)
	}
	if record.Converted {
		t.Fatal("self purchase must not freeze attribution")
	}
}

func TestCreateOrderWithoutCookie(t *testing.T) {
	orderSvc, _, db := setupOrderServiceTest(t)

	buyer := createServiceTestBuyer(t, db, "order-nocookie@example.com")
	product := createServiceTestProduct(t, db, "order-nocookie-product")

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		BuyerID:   buyer.ID,
		ProductID: product.ID,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.MarketerID != nil {
		t.Fatalf("expected organic order, got marketer %v", order.MarketerID)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	orderSvc, _, db := setupOrderServiceTest(t)

	buyer := createServiceTestBuyer(t, db, "order-valid@example.com")
	disabled := createServiceTestBuyer(t, db, "order-disabled@example.com")
	if err := db.Model(&models.User{}).Where("id = ?", disabled.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable buyer failed: %v", err)
	}
	product := createServiceTestProduct(t, db, "order-valid-product")
	inactive := createServiceTestProduct(t, db, "order-valid-inactive")
	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	if _, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: buyer.ID, ProductID: product.ID, Quantity: 0}); !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
	if _, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: disabled.ID, ProductID: product.ID, Quantity: 1}); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
	if _, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: buyer.ID, ProductID: 99999, Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: buyer.ID, ProductID: inactive.ID, Quantity: 1}); !errors.Is(err, ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	orderSvc, _, db := setupOrderServiceTest(t)

	buyer := createServiceTestBuyer(t, db, "order-state@example.com")
	product := createServiceTestProduct(t, db, "order-state-product")
	order, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: buyer.ID, ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// pending 不能直接发货
	if _, err := orderSvc.UpdateStatus(order.ID, constants.OrderStatusShipped); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid for pending->shipped, got %v", err)
	}

	paid, err := orderSvc.UpdateStatus(order.ID, constants.OrderStatusPaid)
	if err != nil {
		t.Fatalf("pending->paid failed: %v", err)
	}
	if paid.PaymentStatus != constants.OrderPaymentStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid payment status, got %s", paid.PaymentStatus)
	}

	shipped, err := orderSvc.UpdateStatus(order.ID, constants.OrderStatusShipped)
	if err != nil {
		t.Fatalf("paid->shipped failed: %v", err)
	}
	if shipped.ShippedAt == nil {
		t.Fatal("expected shipped_at set")
	}

	delivered, err := orderSvc.UpdateStatus(order.ID, constants.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("shipped->delivered failed: %v", err)
	}
	if delivered.DeliveredAt == nil {
		t.Fatal("expected delivered_at set")
	}

	refunded, err := orderSvc.UpdateStatus(order.ID, constants.OrderStatusRefunded)
	if err != nil {
		t.Fatalf("delivered->refunded failed: %v", err)
	}
	if refunded.PaymentStatus != constants.OrderPaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %s", refunded.PaymentStatus)
	}

	// 终态不再迁移
	if _, err := orderSvc.UpdateStatus(order.ID, constants.OrderStatusPaid); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid from refunded, got %v", err)
	}
}

func TestCancelOrderBuyerOnly(t *testing.T) {
	orderSvc, _, db := setupOrderServiceTest(t)

	buyer := createServiceTestBuyer(t, db, "order-cancel@example.com")
	stranger := createServiceTestBuyer(t, db, "order-stranger@example.com")
	product := createServiceTestProduct(t, db, "order-cancel-product")
	order, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: buyer.ID, ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := orderSvc.CancelOrder(order.ID, stranger.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	cancelled, err := orderSvc.CancelOrder(order.ID, buyer.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled order, got %s", cancelled.Status)
	}

	paidOrder, err := orderSvc.CreateOrder(CreateOrderInput{BuyerID: buyer.ID, ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := orderSvc.UpdateStatus(paidOrder.ID, constants.OrderStatusPaid); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if _, err := orderSvc.CancelOrder(paidOrder.ID, buyer.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid for paid order, got %v", err)
	}
}

func setupOrderServiceTest(t *testing.T) (*OrderService, *AttributionService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "order_service")
	cfg := newServiceTestConfig()
	affiliateRepo := repository.NewAffiliateRepository(db)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	fraudSvc := NewFraudService(cfg, repository.NewFraudRepository(db), affiliateRepo, orderRepo, userRepo)
	attributionSvc := NewAttributionService(cfg, affiliateRepo, productRepo, fraudSvc)
	orderSvc := NewOrderService(cfg, orderRepo, productRepo, userRepo, attributionSvc, fraudSvc, nil)
	return orderSvc, attributionSvc, db
}
