package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/queue"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 订单状态机：仅允许表内迁移
var orderStatusTransitions = map[string][]string{
	constants.OrderStatusPending:   {constants.OrderStatusPaid, constants.OrderStatusCancelled},
	constants.OrderStatusPaid:      {constants.OrderStatusShipped, constants.OrderStatusCancelled, constants.OrderStatusRefunded},
	constants.OrderStatusShipped:   {constants.OrderStatusDelivered, constants.OrderStatusCancelled},
	constants.OrderStatusDelivered: {constants.OrderStatusRefunded},
}

// OrderService 订单服务
type OrderService struct {
	cfg                *config.Config
	orderRepo          repository.OrderRepository
	productRepo        repository.ProductRepository
	userRepo           repository.UserRepository
	attributionService *AttributionService
	fraudService       *FraudService
	queueClient        *queue.Client
}

// NewOrderService 创建订单服务实例
func NewOrderService(
	cfg *config.Config,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	attributionService *AttributionService,
	fraudService *FraudService,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		cfg:                cfg,
		orderRepo:          orderRepo,
		productRepo:        productRepo,
		userRepo:           userRepo,
		attributionService: attributionService,
		fraudService:       fraudService,
		queueClient:        queueClient,
	}
}

// CreateOrderInput 创建订单入参
type CreateOrderInput struct {
	BuyerID   uint
	ProductID uint
	Quantity  int
	CookieID  string
	ClientIP  string
}

// CreateOrder 创建订单：下单时快照归因（推广员/链接/佣金比例），
// 冻结归因记录，落库后同步跑一次订单风控评分。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.Quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	buyer, err := s.userRepo.GetByID(input.BuyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, ErrNotFound
	}
	if buyer.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	quantity := decimal.NewFromInt(int64(input.Quantity))
	subtotal := models.NewMoneyFromDecimal(product.Price.Mul(quantity))

	order := &models.Order{
		OrderNo:       generateOrderNo(),
		BuyerID:       buyer.ID,
		SellerID:      product.SellerID,
		ProductID:     product.ID,
		Quantity:      input.Quantity,
		UnitPrice:     product.Price,
		Subtotal:      subtotal,
		TotalAmount:   subtotal,
		Status:        constants.OrderStatusPending,
		PaymentStatus: constants.OrderPaymentStatusPending,
		ClientIP:      input.ClientIP,
	}
	order.PaymentReference = order.OrderNo

	// 归因快照：cookie 只要有归因记录就落在订单上（供风控判有无归因），
	// 买家即推广员或记录已转化时不计佣
	record, link, err := s.attributionService.ResolveCredit(input.CookieID)
	if err != nil {
		return nil, err
	}
	creditAssigned := false
	if record != nil {
		order.AttributionCookieID = record.CookieID
	}
	if link != nil && link.MarketerID != buyer.ID {
		marketerID := link.MarketerID
		linkID := link.ID
		order.MarketerID = &marketerID
		order.AffiliateLinkID = &linkID
		order.CommissionRate = product.CommissionRate
		creditAssigned = true
	}

	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}
		if creditAssigned {
			return s.attributionService.MarkConverted(tx, order.AttributionCookieID, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"buyer_id", order.BuyerID,
		"marketer_id", order.MarketerID,
		"total", order.TotalAmount.String(),
	)

	if _, err := s.fraudService.ScoreOrder(order.ID); err != nil {
		logger.Errorw("order_fraud_score_failed", "order_id", order.ID, "error", err)
	}

	return s.orderRepo.GetByID(order.ID)
}

// UpdateStatus 按状态机推进订单状态；转 delivered 时触发佣金结算任务
func (s *OrderService) UpdateStatus(orderID uint, targetStatus string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	target := strings.TrimSpace(targetStatus)
	if order.Status == target {
		return order, nil
	}
	if !isOrderTransitionAllowed(order.Status, target) {
		return nil, ErrOrderStatusInvalid
	}

	now := time.Now()
	switch target {
	case constants.OrderStatusPaid:
		order.PaymentStatus = constants.OrderPaymentStatusPaid
		order.PaidAt = &now
	case constants.OrderStatusShipped:
		order.ShippedAt = &now
	case constants.OrderStatusDelivered:
		order.DeliveredAt = &now
	case constants.OrderStatusCancelled:
		order.CancelledAt = &now
	case constants.OrderStatusRefunded:
		order.PaymentStatus = constants.OrderPaymentStatusRefunded
	}
	order.Status = target
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	logger.Infow("order_status_updated", "order_id", order.ID, "status", target)

	if target == constants.OrderStatusDelivered && order.MarketerID != nil && s.queueClient != nil {
		if err := s.queueClient.EnqueueCommissionProcess(queue.CommissionProcessPayload{OrderID: order.ID}); err != nil {
			logger.Warnw("commission_process_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// CancelOrder 买家取消自己的待支付订单
func (s *OrderService) CancelOrder(orderID, buyerID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.BuyerID != buyerID {
		return nil, ErrPermissionDenied
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderStatusInvalid
	}
	return s.UpdateStatus(orderID, constants.OrderStatusCancelled)
}

// GetOrderByUser 买家查询自己的订单
func (s *OrderService) GetOrderByUser(orderID, buyerID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.BuyerID != buyerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByUser 买家订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// GetOrderForAdmin 管理端查询订单
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func isOrderTransitionAllowed(from, to string) bool {
	for _, allowed := range orderStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// generateOrderNo 生成订单编号
func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("LW%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
