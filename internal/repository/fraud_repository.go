package repository

import (
	"errors"

	"github.com/linkway-core/internal/models"

	"gorm.io/gorm"
)

// FraudRepository 风控信号与回调审计数据访问接口
type FraudRepository interface {
	WithTx(tx *gorm.DB) FraudRepository

	CreateSignal(signal *models.FraudSignal) error
	GetSignalByID(id uint) (*models.FraudSignal, error)
	UpdateSignal(signal *models.FraudSignal) error
	ListSignals(filter FraudSignalListFilter) ([]models.FraudSignal, int64, error)
	LatestSignalByEntity(entityType string, entityID uint) (*models.FraudSignal, error)

	CreatePaymentEvent(event *models.PaymentEvent) error
}

// GormFraudRepository 基于 GORM 的风控数据访问实现
type GormFraudRepository struct {
	db *gorm.DB
}

// NewFraudRepository 创建风控数据访问实例
func NewFraudRepository(db *gorm.DB) *GormFraudRepository {
	return &GormFraudRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormFraudRepository) WithTx(tx *gorm.DB) FraudRepository {
	return &GormFraudRepository{db: tx}
}

// CreateSignal 写入一条风控评分记录
func (r *GormFraudRepository) CreateSignal(signal *models.FraudSignal) error {
	return r.db.Create(signal).Error
}

// GetSignalByID 按 ID 获取风控记录
func (r *GormFraudRepository) GetSignalByID(id uint) (*models.FraudSignal, error) {
	var signal models.FraudSignal
	if err := r.db.First(&signal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &signal, nil
}

// UpdateSignal 更新风控记录（人工复核）
func (r *GormFraudRepository) UpdateSignal(signal *models.FraudSignal) error {
	return r.db.Save(signal).Error
}

// ListSignals 风控记录列表
func (r *GormFraudRepository) ListSignals(filter FraudSignalListFilter) ([]models.FraudSignal, int64, error) {
	query := r.db.Model(&models.FraudSignal{})

	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID > 0 {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Reviewed != nil {
		query = query.Where("reviewed = ?", *filter.Reviewed)
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

	var signals []models.FraudSignal
	if err := query.Order("id DESC").Find(&signals).Error; err != nil {
		return nil, 0, err
	}
	return signals, total, nil
}

// LatestSignalByEntity 获取实体最近一次评分记录
func (r *GormFraudRepository) LatestSignalByEntity(entityType string, entityID uint) (*models.FraudSignal, error) {
	var signal models.FraudSignal
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id DESC").
		First(&signal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &signal, nil
}

// CreatePaymentEvent 写入一条支付回调审计记录
func (r *GormFraudRepository) CreatePaymentEvent(event *models.PaymentEvent) error {
	return r.db.Create(event).Error
}
