package repository

import (
	"errors"

	"github.com/linkway-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 打款批次数据访问接口
type PayoutRepository interface {
	WithTx(tx *gorm.DB) PayoutRepository
	Transaction(fn func(tx *gorm.DB) error) error

	Create(payout *models.Payout) error
	Update(payout *models.Payout) error
	GetByID(id uint) (*models.Payout, error)
	GetByIDForUpdate(id uint) (*models.Payout, error)
	GetByReference(reference string) (*models.Payout, error)
	List(filter PayoutListFilter) ([]models.Payout, int64, error)
}

// GormPayoutRepository 基于 GORM 的打款批次数据访问实现
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建打款批次数据访问实例
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	return &GormPayoutRepository{db: tx}
}

// Transaction 在事务中执行回调
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建打款批次
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// Update 更新打款批次
func (r *GormPayoutRepository) Update(payout *models.Payout) error {
	return r.db.Save(payout).Error
}

// GetByID 按 ID 获取打款批次
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByIDForUpdate 按 ID 加锁获取打款批次，须在事务内调用
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payout, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByReference 按打款参考号获取批次（回调处理用）
func (r *GormPayoutRepository) GetByReference(reference string) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.Where("reference = ?", reference).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// List 打款批次列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{})

	if filter.MarketerID > 0 {
		query = query.Where("marketer_id = ?", filter.MarketerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
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

	var payouts []models.Payout
	if err := query.Order("id DESC").Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}
