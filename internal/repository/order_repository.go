package repository

import (
	"errors"
	"time"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Transaction(fn func(tx *gorm.DB) error) error

	Create(order *models.Order) error
	Update(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByPaymentReference(reference string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)

	ListDeliveredWithoutCommission(limit int) ([]models.Order, error)
	CountDistinctByCookiesSince(cookieIDs []string, since time.Time) (int64, error)
}

// GormOrderRepository 基于 GORM 的订单数据访问实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单数据访问实例
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: tx}
}

// Transaction 在事务中执行回调
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// Update 更新订单
func (r *GormOrderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// GetByID 按 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Product").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 按 ID 加锁获取订单，须在事务内调用
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 按订单编号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Product").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByPaymentReference 按支付参考号获取订单（回调处理用）
func (r *GormOrderRepository) GetByPaymentReference(reference string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("payment_reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})

	if filter.UserID > 0 {
		query = query.Where("buyer_id = ?", filter.UserID)
	}
	if filter.MarketerID > 0 {
		query = query.Where("marketer_id = ?", filter.MarketerID)
	}
	if filter.LinkID > 0 {
		query = query.Where("affiliate_link_id = ?", filter.LinkID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
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

	var orders []models.Order
	if err := query.Preload("Product").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListDeliveredWithoutCommission 列出已签收但尚未生成佣金的带归因订单（兜底扫描用）
func (r *GormOrderRepository) ListDeliveredWithoutCommission(limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.Order
	err := r.db.
		Where("status = ? AND marketer_id IS NOT NULL", constants.OrderStatusDelivered).
		Where("id NOT IN (?)", r.db.Model(&models.Commission{}).Select("order_id")).
		Order("delivered_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CountDistinctByCookiesSince 统计窗口内归因到给定 cookie 集合的订单数
func (r *GormOrderRepository) CountDistinctByCookiesSince(cookieIDs []string, since time.Time) (int64, error) {
	if len(cookieIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("attribution_cookie_id IN ? AND created_at >= ?", cookieIDs, since).
		Count(&count).Error
	return count, err
}
