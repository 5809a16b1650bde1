package service

import (
	"context"
	"fmt"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/payment/paystack"
	"github.com/linkway-core/internal/queue"
	"github.com/linkway-core/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutService 打款批次服务
type PayoutService struct {
	cfg            *config.Config
	payoutRepo     repository.PayoutRepository
	commissionRepo repository.CommissionRepository
	orderRepo      repository.OrderRepository
	userRepo       repository.UserRepository
	fraudRepo      repository.FraudRepository
	queueClient    *queue.Client
}

// NewPayoutService 创建打款批次服务实例
func NewPayoutService(
	cfg *config.Config,
	payoutRepo repository.PayoutRepository,
	commissionRepo repository.CommissionRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	fraudRepo repository.FraudRepository,
	queueClient *queue.Client,
) *PayoutService {
	return &PayoutService{
		cfg:            cfg,
		payoutRepo:     payoutRepo,
		commissionRepo: commissionRepo,
		orderRepo:      orderRepo,
		userRepo:       userRepo,
		fraudRepo:      fraudRepo,
		queueClient:    queueClient,
	}
}

// RequestPayoutInput 申请打款入参
type RequestPayoutInput struct {
	MarketerID uint
	Amount     models.Money // 目标金额，零值表示全部可用余额
}

// RequestPayout 申请打款：加锁圈选已解冻佣金，贪心按解冻先后凑单，
// 创建批次并调用网关转账。网关失败时批次置 failed，佣金占位保留待人工处理。
func (s *PayoutService) RequestPayout(input RequestPayoutInput) (*models.Payout, error) {
	marketer, err := s.userRepo.GetByID(input.MarketerID)
	if err != nil {
		return nil, err
	}
	if marketer == nil {
		return nil, ErrNotFound
	}
	if !marketer.HasBankDetails() {
		return nil, ErrBankDetailsMissing
	}

	minimum, err := decimal.NewFromString(s.cfg.Payout.MinimumAmount)
	if err != nil {
		return nil, err
	}

	var payout *models.Payout
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		claimable, err := commissionRepo.ListClaimableForUpdate(input.MarketerID)
		if err != nil {
			return err
		}

		available := decimal.Zero
		for _, c := range claimable {
			available = available.Add(c.NetCommission.Decimal)
		}
		if available.LessThan(minimum) {
			return ErrPayoutBelowMinimum
		}

		target := available
		if !input.Amount.IsZero() {
			target = input.Amount.Decimal
			if target.GreaterThan(available) {
				target = available
			}
		}

		// 贪心：按解冻先后取前缀，直到再取一条会超出目标金额
		running := decimal.Zero
		var selected []uint
		for _, c := range claimable {
			next := running.Add(c.NetCommission.Decimal)
			if next.GreaterThan(target) {
				break
			}
			running = next
			selected = append(selected, c.ID)
		}
		if len(selected) == 0 {
			return ErrPayoutNothingToPay
		}
		// 凑单后的实付金额仍需达到最低门槛，不开低于门槛的批次
		if running.LessThan(minimum) {
			return ErrPayoutBelowMinimum
		}

		payout = &models.Payout{
			MarketerID:      input.MarketerID,
			Method:          constants.PayoutMethodBankTransfer,
			TotalAmount:     models.NewMoneyFromDecimal(running),
			CommissionCount: len(selected),
			BankName:        marketer.BankName,
			AccountNumber:   marketer.AccountNumber,
			AccountName:     marketer.PayoutAccountName(),
			Status:          constants.PayoutStatusProcessing,
			Reference:       generatePayoutReference(),
			RequestedAt:     time.Now(),
		}
		if err := s.payoutRepo.WithTx(tx).Create(payout); err != nil {
			return err
		}
		return commissionRepo.BatchClaim(selected, payout.ID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.executeTransfer(payout); err != nil {
		now := time.Now()
		payout.Status = constants.PayoutStatusFailed
		payout.FailureReason = err.Error()
		payout.ProcessedAt = &now
		if updateErr := s.payoutRepo.Update(payout); updateErr != nil {
			return nil, updateErr
		}
		logger.Errorw("payout_transfer_failed",
			"payout_id", payout.ID,
			"reference", payout.Reference,
			"error", err,
		)
		s.notifyResult(payout.ID, constants.PayoutStatusFailed)
		return payout, nil
	}

	now := time.Now()
	payout.ProcessedAt = &now
	if err := s.payoutRepo.Update(payout); err != nil {
		return nil, err
	}

	logger.Infow("payout_transfer_initiated",
		"payout_id", payout.ID,
		"marketer_id", payout.MarketerID,
		"amount", payout.TotalAmount.String(),
		"reference", payout.Reference,
	)
	return payout, nil
}

// executeTransfer 调用 Paystack 创建收款人并发起转账
func (s *PayoutService) executeTransfer(payout *models.Payout) error {
	gatewayCfg := s.gatewayConfig()
	ctx := context.Background()

	recipient, err := paystack.CreateRecipient(ctx, gatewayCfg, paystack.RecipientInput{
		Name:          payout.AccountName,
		AccountNumber: payout.AccountNumber,
		BankName:      payout.BankName,
		Currency:      s.cfg.Payout.Currency,
	})
	if err != nil {
		return err
	}

	transfer, err := paystack.InitiateTransfer(ctx, gatewayCfg, paystack.TransferInput{
		RecipientCode: recipient.RecipientCode,
		Amount:        payout.TotalAmount.Decimal,
		Reference:     payout.Reference,
		Reason:        "Affiliate commission payout",
		Currency:      s.cfg.Payout.Currency,
	})
	if err != nil {
		return err
	}

	payout.TransferCode = transfer.TransferCode
	return nil
}

// HandlePaystackWebhook 处理 Paystack 回调。所有请求都会留痕；
// 验签失败返回 ErrSignatureInvalid，由调用方折算为 4xx。
func (s *PayoutService) HandlePaystackWebhook(body []byte, signature string) error {
	verifyErr := paystack.VerifyWebhookSignature(s.gatewayConfig(), body, signature)

	event, parseErr := paystack.ParseWebhookEvent(body)
	eventName := ""
	reference := ""
	if event != nil {
		eventName = event.Event
		reference = event.Reference()
	}
	if auditErr := s.fraudRepo.CreatePaymentEvent(&models.PaymentEvent{
		Provider:       constants.PaymentProviderPaystack,
		Event:          eventName,
		Reference:      reference,
		RawPayload:     string(body),
		SignatureValid: verifyErr == nil,
		ReceivedAt:     time.Now(),
	}); auditErr != nil {
		return auditErr
	}
	if verifyErr != nil {
		return verifyErr
	}
	if parseErr != nil {
		return parseErr
	}

	switch event.Event {
	case constants.PaystackEventTransferOK:
		return s.completeTransfer(event)
	case constants.PaystackEventTransferFailed:
		return s.failTransfer(event)
	case constants.PaystackEventChargeSuccess:
		return s.markOrderPaid(event)
	default:
		logger.Infow("paystack_event_ignored", "event", event.Event)
		return nil
	}
}

// completeTransfer 转账成功：批次完成，批次内佣金转已打款
func (s *PayoutService) completeTransfer(event *paystack.WebhookEvent) error {
	payout, err := s.payoutRepo.GetByReference(event.Reference())
	if err != nil {
		return err
	}
	if payout == nil {
		logger.Warnw("paystack_transfer_unknown_reference", "reference", event.Reference())
		return nil
	}
	if payout.Status == constants.PayoutStatusCompleted {
		return nil
	}

	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		locked, err := s.payoutRepo.WithTx(tx).GetByIDForUpdate(payout.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Status == constants.PayoutStatusCompleted {
			return nil
		}
		now := time.Now()
		locked.Status = constants.PayoutStatusCompleted
		locked.CompletedAt = &now
		if err := s.payoutRepo.WithTx(tx).Update(locked); err != nil {
			return err
		}
		_, err = s.commissionRepo.WithTx(tx).MarkPaidByPayoutID(locked.ID, now)
		return err
	})
	if err != nil {
		return err
	}

	logger.Infow("payout_completed", "payout_id", payout.ID, "reference", payout.Reference)
	s.notifyResult(payout.ID, constants.PayoutStatusCompleted)
	return nil
}

// failTransfer 转账失败：批次置 failed，佣金占位保留待人工释放
func (s *PayoutService) failTransfer(event *paystack.WebhookEvent) error {
	payout, err := s.payoutRepo.GetByReference(event.Reference())
	if err != nil {
		return err
	}
	if payout == nil {
		logger.Warnw("paystack_transfer_unknown_reference", "reference", event.Reference())
		return nil
	}
	if payout.Status == constants.PayoutStatusFailed || payout.Status == constants.PayoutStatusCompleted {
		return nil
	}

	now := time.Now()
	payout.Status = constants.PayoutStatusFailed
	payout.FailureReason = event.FailureReason()
	payout.ProcessedAt = &now
	if err := s.payoutRepo.Update(payout); err != nil {
		return err
	}

	logger.Warnw("payout_failed",
		"payout_id", payout.ID,
		"reference", payout.Reference,
		"reason", payout.FailureReason,
	)
	s.notifyResult(payout.ID, constants.PayoutStatusFailed)
	return nil
}

// markOrderPaid 收款成功：订单转已支付
func (s *PayoutService) markOrderPaid(event *paystack.WebhookEvent) error {
	order, err := s.orderRepo.GetByPaymentReference(event.Reference())
	if err != nil {
		return err
	}
	if order == nil {
		logger.Warnw("paystack_charge_unknown_reference", "reference", event.Reference())
		return nil
	}
	if order.PaymentStatus == constants.OrderPaymentStatusPaid {
		return nil
	}
	now := time.Now()
	order.PaymentStatus = constants.OrderPaymentStatusPaid
	order.PaidAt = &now
	if order.Status == constants.OrderStatusPending {
		order.Status = constants.OrderStatusPaid
	}
	return s.orderRepo.Update(order)
}

// CancelPayout 取消尚未完成的批次并释放佣金占位
func (s *PayoutService) CancelPayout(payoutID uint) (*models.Payout, error) {
	var payout *models.Payout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		locked, err := s.payoutRepo.WithTx(tx).GetByIDForUpdate(payoutID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPayoutNotFound
		}
		if locked.Status != constants.PayoutStatusPending && locked.Status != constants.PayoutStatusProcessing {
			return ErrPayoutStatusInvalid
		}
		locked.Status = constants.PayoutStatusCancelled
		if err := s.payoutRepo.WithTx(tx).Update(locked); err != nil {
			return err
		}
		if _, err := s.commissionRepo.WithTx(tx).ReleaseByPayoutID(locked.ID); err != nil {
			return err
		}
		payout = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payout_cancelled", "payout_id", payout.ID)
	return payout, nil
}

// ReleaseFailedPayout 管理员释放失败批次占位的佣金，批次状态保持 failed
func (s *PayoutService) ReleaseFailedPayout(payoutID uint) (int64, error) {
	var released int64
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		locked, err := s.payoutRepo.WithTx(tx).GetByIDForUpdate(payoutID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPayoutNotFound
		}
		if locked.Status != constants.PayoutStatusFailed {
			return ErrPayoutStatusInvalid
		}
		released, err = s.commissionRepo.WithTx(tx).ReleaseByPayoutID(locked.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Infow("payout_commissions_released", "payout_id", payoutID, "count", released)
	return released, nil
}

// GetByID 按 ID 获取批次（校验归属）
func (s *PayoutService) GetByID(marketerID, payoutID uint) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrPayoutNotFound
	}
	if marketerID > 0 && payout.MarketerID != marketerID {
		return nil, ErrPermissionDenied
	}
	return payout, nil
}

// List 批次列表
func (s *PayoutService) List(filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	return s.payoutRepo.List(filter)
}

// notifyResult 推送打款结果邮件任务（队列不可用时忽略）
func (s *PayoutService) notifyResult(payoutID uint, result string) {
	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueuePayoutResultEmail(queue.PayoutResultEmailPayload{
		PayoutID: payoutID,
		Result:   result,
	}); err != nil {
		logger.Warnw("payout_result_email_enqueue_failed", "payout_id", payoutID, "error", err)
	}
}

// gatewayConfig 转换为网关配置
func (s *PayoutService) gatewayConfig() *paystack.Config {
	return &paystack.Config{
		SecretKey: s.cfg.Paystack.SecretKey,
		BaseURL:   s.cfg.Paystack.BaseURL,
		TimeoutMS: s.cfg.Paystack.TimeoutMS,
	}
}

// generatePayoutReference 生成打款参考号
func generatePayoutReference() string {
	return fmt.Sprintf("%s-%s", constants.PayoutReferencePrefix, uuid.NewString())
}
