package repository

import (
	"errors"
	"time"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	WithTx(tx *gorm.DB) CommissionRepository
	Transaction(fn func(tx *gorm.DB) error) error

	Create(commission *models.Commission) error
	Update(commission *models.Commission) error
	GetByID(id uint) (*models.Commission, error)
	GetByOrderID(orderID uint) (*models.Commission, error)
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListByPayoutID(payoutID uint) ([]models.Commission, error)

	ListClaimableForUpdate(marketerID uint) ([]models.Commission, error)
	BatchClaim(commissionIDs []uint, payoutID uint) error
	ReleaseByPayoutID(payoutID uint) (int64, error)
	MarkPaidByPayoutID(payoutID uint, paidAt time.Time) (int64, error)
	ReleaseHeldBefore(deadline time.Time) (int64, error)

	SumNetByMarketerAndStatus(marketerID uint, status string) (models.Money, error)
	SumNetByMarketer(marketerID uint) (models.Money, error)
	CountByMarketerAndStatus(marketerID uint, status string) (int64, error)
}

// GormCommissionRepository 基于 GORM 的佣金数据访问实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金数据访问实例
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	return &GormCommissionRepository{db: tx}
}

// Transaction 在事务中执行回调
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建佣金
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// Update 更新佣金
func (r *GormCommissionRepository) Update(commission *models.Commission) error {
	return r.db.Save(commission).Error
}

// GetByID 按 ID 获取佣金
func (r *GormCommissionRepository) GetByID(id uint) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByOrderID 按订单获取佣金（幂等检查）
func (r *GormCommissionRepository) GetByOrderID(orderID uint) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.Where("order_id = ?", orderID).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// List 佣金列表
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{})

	if filter.MarketerID > 0 {
		query = query.Where("marketer_id = ?", filter.MarketerID)
	}
	if filter.OrderID > 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PayoutID > 0 {
		query = query.Where("payout_id = ?", filter.PayoutID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var commissions []models.Commission
	if err := query.Order("id DESC").Find(&commissions).Error; err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

// ListByPayoutID 按打款批次列出佣金
func (r *GormCommissionRepository) ListByPayoutID(payoutID uint) ([]models.Commission, error) {
	var commissions []models.Commission
	err := r.db.Where("payout_id = ?", payoutID).
		Order("id ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// ListClaimableForUpdate 加锁列出可打款佣金（已解冻且未被批次占位），
// 按解冻先后排序，须在事务内调用
func (r *GormCommissionRepository) ListClaimableForUpdate(marketerID uint) ([]models.Commission, error) {
	var commissions []models.Commission
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("marketer_id = ? AND status = ? AND payout_id IS NULL",
			marketerID, constants.CommissionStatusApproved).
		Order("approved_at ASC, created_at ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// BatchClaim 将选中佣金批量占位到打款批次
func (r *GormCommissionRepository) BatchClaim(commissionIDs []uint, payoutID uint) error {
	if len(commissionIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.Commission{}).
		Where("id IN ? AND payout_id IS NULL", commissionIDs).
		Update("payout_id", payoutID).Error
}

// ReleaseByPayoutID 释放批次占位的佣金（管理员处理失败批次时用）
func (r *GormCommissionRepository) ReleaseByPayoutID(payoutID uint) (int64, error) {
	result := r.db.Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, constants.CommissionStatusApproved).
		Update("payout_id", nil)
	return result.RowsAffected, result.Error
}

// MarkPaidByPayoutID 将批次内佣金标记为已打款
func (r *GormCommissionRepository) MarkPaidByPayoutID(payoutID uint, paidAt time.Time) (int64, error) {
	result := r.db.Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, constants.CommissionStatusApproved).
		Updates(map[string]interface{}{
			"status":  constants.CommissionStatusPaid,
			"paid_at": paidAt,
		})
	return result.RowsAffected, result.Error
}

// ReleaseHeldBefore 批量解冻冻结期已满的佣金
func (r *GormCommissionRepository) ReleaseHeldBefore(deadline time.Time) (int64, error) {
	now := time.Now()
	result := r.db.Model(&models.Commission{}).
		Where("status = ? AND holdback_until IS NOT NULL AND holdback_until <= ?",
			constants.CommissionStatusEarned, deadline).
		Updates(map[string]interface{}{
			"status":      constants.CommissionStatusApproved,
			"approved_at": now,
		})
	return result.RowsAffected, result.Error
}

// SumNetByMarketerAndStatus 汇总推广员某状态下的净佣金
func (r *GormCommissionRepository) SumNetByMarketerAndStatus(marketerID uint, status string) (models.Money, error) {
	var sum models.Money
	err := r.db.Model(&models.Commission{}).
		Select("COALESCE(SUM(net_commission), 0)").
		Where("marketer_id = ? AND status = ?", marketerID, status).
		Scan(&sum).Error
	if err != nil {
		return models.Money{}, err
	}
	return sum, nil
}

// SumNetByMarketer 汇总推广员全部未逆向的净佣金
func (r *GormCommissionRepository) SumNetByMarketer(marketerID uint) (models.Money, error) {
	var sum models.Money
	err := r.db.Model(&models.Commission{}).
		Select("COALESCE(SUM(net_commission), 0)").
		Where("marketer_id = ? AND status <> ?", marketerID, constants.CommissionStatusReversed).
		Scan(&sum).Error
	if err != nil {
		return models.Money{}, err
	}
	return sum, nil
}

// CountByMarketerAndStatus 统计推广员某状态下的佣金条数
func (r *GormCommissionRepository) CountByMarketerAndStatus(marketerID uint, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Commission{}).
		Where("marketer_id = ? AND status = ?", marketerID, status).
		Count(&count).Error
	return count, err
}
