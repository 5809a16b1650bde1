package service

import (
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var percentBase = decimal.NewFromInt(100)

// CommissionService 佣金结算服务
type CommissionService struct {
	cfg            *config.Config
	commissionRepo repository.CommissionRepository
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	affiliateRepo  repository.AffiliateRepository
}

// NewCommissionService 创建佣金结算服务实例
func NewCommissionService(
	cfg *config.Config,
	commissionRepo repository.CommissionRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	affiliateRepo repository.AffiliateRepository,
) *CommissionService {
	return &CommissionService{
		cfg:            cfg,
		commissionRepo: commissionRepo,
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		affiliateRepo:  affiliateRepo,
	}
}

// ProcessOrder 为已签收订单生成佣金。按订单幂等：已有佣金时直接返回；
// 未签收或无归因推广员的订单视为无事发生，返回 (nil, nil)。
func (s *CommissionService) ProcessOrder(orderID uint) (*models.Commission, error) {
	existing, err := s.commissionRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusDelivered || order.MarketerID == nil {
		return nil, nil
	}

	product, err := s.productRepo.GetByID(order.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	gross, rate := calcGrossCommission(order, product)
	feeRate, err := decimal.NewFromString(s.cfg.Commission.PlatformFeeRate)
	if err != nil {
		return nil, err
	}
	fee := gross.Mul(feeRate).Div(percentBase).Round(2)
	net := gross.Sub(fee).Round(2)

	now := time.Now()
	deliveredAt := now
	if order.DeliveredAt != nil {
		deliveredAt = *order.DeliveredAt
	}
	holdbackUntil := deliveredAt.Add(time.Duration(s.cfg.Commission.HoldbackDays) * 24 * time.Hour)

	commission := &models.Commission{
		OrderID:           order.ID,
		MarketerID:        *order.MarketerID,
		ProductID:         order.ProductID,
		AffiliateLinkID:   order.AffiliateLinkID,
		GrossSaleAmount:   order.Subtotal,
		CommissionRate:    models.NewMoneyFromDecimal(rate),
		CommissionAmount:  models.NewMoneyFromDecimal(gross),
		PlatformFeeRate:   models.NewMoneyFromDecimal(feeRate),
		PlatformFeeAmount: models.NewMoneyFromDecimal(fee),
		NetCommission:     models.NewMoneyFromDecimal(net),
		Status:            constants.CommissionStatusEarned,
		EarnedAt:          &now,
		HoldbackUntil:     &holdbackUntil,
	}

	err = s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.commissionRepo.WithTx(tx).Create(commission); err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return err
		}
		if order.AffiliateLinkID != nil {
			return s.affiliateRepo.WithTx(tx).IncrementLinkConversion(
				*order.AffiliateLinkID,
				order.Subtotal,
				models.NewMoneyFromDecimal(gross),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 并发落库时读回先写入的一条
	if commission.ID == 0 {
		return s.commissionRepo.GetByOrderID(orderID)
	}

	logger.Infow("commission_created",
		"order_id", order.ID,
		"marketer_id", *order.MarketerID,
		"gross", gross.StringFixed(2),
		"net", net.StringFixed(2),
		"holdback_until", holdbackUntil,
	)
	return commission, nil
}

// ProcessDeliveredOrders 兜底扫描：为漏结算的已签收订单补生成佣金
func (s *CommissionService) ProcessDeliveredOrders() (int, error) {
	orders, err := s.orderRepo.ListDeliveredWithoutCommission(s.cfg.Commission.ProcessBatchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, order := range orders {
		commission, err := s.ProcessOrder(order.ID)
		if err != nil {
			logger.Errorw("commission_sweep_process_failed", "order_id", order.ID, "error", err)
			continue
		}
		if commission != nil {
			processed++
		}
	}
	return processed, nil
}

// ReleaseHeldCommissions 批量解冻冻结期已满的佣金
func (s *CommissionService) ReleaseHeldCommissions() (int64, error) {
	released, err := s.commissionRepo.ReleaseHeldBefore(time.Now())
	if err != nil {
		return 0, err
	}
	if released > 0 {
		logger.Infow("commissions_released", "count", released)
	}
	return released, nil
}

// Approve 管理员提前解冻单条佣金
func (s *CommissionService) Approve(commissionID uint) (*models.Commission, error) {
	commission, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrCommissionNotFound
	}
	if commission.Status != constants.CommissionStatusEarned {
		return nil, ErrCommissionStatusInvalid
	}
	now := time.Now()
	commission.Status = constants.CommissionStatusApproved
	commission.ApprovedAt = &now
	if err := s.commissionRepo.Update(commission); err != nil {
		return nil, err
	}
	return commission, nil
}

// Reverse 逆向佣金（退款/风控）。已打款或已被批次占位的佣金不可逆向。
func (s *CommissionService) Reverse(commissionID uint, reason string) (*models.Commission, error) {
	commission, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrCommissionNotFound
	}
	if commission.Status == constants.CommissionStatusPaid || commission.Status == constants.CommissionStatusReversed {
		return nil, ErrCommissionStatusInvalid
	}
	if commission.PayoutID != nil {
		return nil, ErrCommissionAlreadyClaimed
	}
	now := time.Now()
	commission.Status = constants.CommissionStatusReversed
	commission.ReversedAt = &now
	commission.ReversalReason = reason
	if err := s.commissionRepo.Update(commission); err != nil {
		return nil, err
	}
	logger.Infow("commission_reversed", "commission_id", commission.ID, "reason", reason)
	return commission, nil
}

// List 佣金列表
func (s *CommissionService) List(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissionRepo.List(filter)
}

// GetByID 按 ID 获取佣金（校验归属）
func (s *CommissionService) GetByID(marketerID, commissionID uint) (*models.Commission, error) {
	commission, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrCommissionNotFound
	}
	if marketerID > 0 && commission.MarketerID != marketerID {
		return nil, ErrPermissionDenied
	}
	return commission, nil
}

// CommissionSummary 推广员佣金汇总
type CommissionSummary struct {
	EarnedTotal   models.Money `json:"earned_total"`
	ApprovedTotal models.Money `json:"approved_total"`
	PaidTotal     models.Money `json:"paid_total"`
	LifetimeTotal models.Money `json:"lifetime_total"`
}

// Summary 汇总推广员各状态佣金净额
func (s *CommissionService) Summary(marketerID uint) (*CommissionSummary, error) {
	earned, err := s.commissionRepo.SumNetByMarketerAndStatus(marketerID, constants.CommissionStatusEarned)
	if err != nil {
		return nil, err
	}
	approved, err := s.commissionRepo.SumNetByMarketerAndStatus(marketerID, constants.CommissionStatusApproved)
	if err != nil {
		return nil, err
	}
	paid, err := s.commissionRepo.SumNetByMarketerAndStatus(marketerID, constants.CommissionStatusPaid)
	if err != nil {
		return nil, err
	}
	lifetime, err := s.commissionRepo.SumNetByMarketer(marketerID)
	if err != nil {
		return nil, err
	}
	return &CommissionSummary{
		EarnedTotal:   earned,
		ApprovedTotal: approved,
		PaidTotal:     paid,
		LifetimeTotal: lifetime,
	}, nil
}

// calcGrossCommission 计算毛佣金与费率快照：
// 百分比佣金按小计折算，固定佣金按件数叠加。
func calcGrossCommission(order *models.Order, product *models.Product) (decimal.Decimal, decimal.Decimal) {
	if product.CommissionType == constants.CommissionTypeFixed {
		gross := product.FixedCommissionAmount.Mul(decimal.NewFromInt(int64(order.Quantity))).Round(2)
		return gross, decimal.Zero
	}
	rate := order.CommissionRate.Decimal
	if rate.IsZero() {
		rate = product.CommissionRate.Decimal
	}
	gross := order.Subtotal.Mul(rate).Div(percentBase).Round(2)
	return gross, rate
}
