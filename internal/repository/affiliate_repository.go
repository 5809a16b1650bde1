package repository

import (
	"errors"
	"time"

	"github.com/linkway-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广域数据访问接口（链接 / 点击 / 归因）
type AffiliateRepository interface {
	WithTx(tx *gorm.DB) AffiliateRepository
	Transaction(fn func(tx *gorm.DB) error) error

	CreateLink(link *models.AffiliateLink) error
	GetLinkByID(id uint) (*models.AffiliateLink, error)
	GetLinkBySlug(slug string) (*models.AffiliateLink, error)
	GetLinkByOwner(marketerID, productID uint) (*models.AffiliateLink, error)
	UpdateLink(link *models.AffiliateLink) error
	ListLinks(filter LinkListFilter) ([]models.AffiliateLink, int64, error)
	IncrementLinkClick(linkID uint, clickedAt time.Time) error
	IncrementLinkConversion(linkID uint, revenue, commission models.Money) error
	DisableLinksByMarketer(marketerID uint) error
	SumLinkStatsByMarketer(marketerID uint) (*LinkStats, error)

	CreateClick(click *models.ClickEvent) error
	GetClickByID(id uint) (*models.ClickEvent, error)
	UpdateClickFraud(clickID uint, isBot, isSuspicious bool, fraudScore float64) error
	ListClicks(filter ClickListFilter) ([]models.ClickEvent, int64, error)
	CountClicksByIPAndLink(clientIP string, linkID uint, since time.Time) (int64, error)
	CountClicksByIP(clientIP string, since time.Time) (int64, error)
	GetEarliestClickIPByCookie(cookieID string) (string, error)
	ListCookieIDsByIP(clientIP string) ([]string, error)

	CreateAttribution(record *models.AttributionRecord) error
	GetAttributionByCookie(cookieID string) (*models.AttributionRecord, error)
	GetAttributionByCookieForUpdate(cookieID string) (*models.AttributionRecord, error)
	UpdateAttribution(record *models.AttributionRecord) error
	CountConversionsByMarketer(marketerID uint) (clicks int64, conversions int64, err error)
}

// GormAffiliateRepository 基于 GORM 的推广域数据访问实现
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广域数据访问实例
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	return &GormAffiliateRepository{db: tx}
}

// Transaction 在事务中执行回调
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// CreateLink 创建推广链接
func (r *GormAffiliateRepository) CreateLink(link *models.AffiliateLink) error {
	return r.db.Create(link).Error
}

// GetLinkByID 按 ID 获取推广链接
func (r *GormAffiliateRepository) GetLinkByID(id uint) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	if err := r.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkBySlug 按短码获取推广链接
func (r *GormAffiliateRepository) GetLinkBySlug(slug string) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	if err := r.db.Where("slug = ?", slug).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByOwner 按推广员与商品获取链接（业务上至多一条）
func (r *GormAffiliateRepository) GetLinkByOwner(marketerID, productID uint) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	err := r.db.Where("marketer_id = ? AND product_id = ?", marketerID, productID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// UpdateLink 更新推广链接
func (r *GormAffiliateRepository) UpdateLink(link *models.AffiliateLink) error {
	return r.db.Save(link).Error
}

// ListLinks 推广链接列表
func (r *GormAffiliateRepository) ListLinks(filter LinkListFilter) ([]models.AffiliateLink, int64, error) {
	query := r.db.Model(&models.AffiliateLink{})

	if filter.MarketerID > 0 {
		query = query.Where("marketer_id = ?", filter.MarketerID)
	}
	if filter.ProductID > 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Slug != "" {
		query = query.Where("slug = ?", filter.Slug)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var links []models.AffiliateLink
	if err := query.Preload("Product").Order("id DESC").Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// IncrementLinkClick 原子累加点击计数并刷新最近点击时间
func (r *GormAffiliateRepository) IncrementLinkClick(linkID uint, clickedAt time.Time) error {
	return r.db.Model(&models.AffiliateLink{}).
		Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"click_count":     gorm.Expr("click_count + 1"),
			"last_clicked_at": clickedAt,
		}).Error
}

// IncrementLinkConversion 原子累加成交计数与金额聚合
func (r *GormAffiliateRepository) IncrementLinkConversion(linkID uint, revenue, commission models.Money) error {
	return r.db.Model(&models.AffiliateLink{}).
		Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"conversion_count": gorm.Expr("conversion_count + 1"),
			"total_revenue":    gorm.Expr("total_revenue + ?", revenue),
			"total_commission": gorm.Expr("total_commission + ?", commission),
		}).Error
}

// DisableLinksByMarketer 停用推广员名下全部链接
func (r *GormAffiliateRepository) DisableLinksByMarketer(marketerID uint) error {
	return r.db.Model(&models.AffiliateLink{}).
		Where("marketer_id = ? AND is_active = ?", marketerID, true).
		Update("is_active", false).Error
}

// LinkStats 推广员链接运行聚合
type LinkStats struct {
	LinkCount       int64        `json:"link_count"`
	ClickCount      int64        `json:"click_count"`
	ConversionCount int64        `json:"conversion_count"`
	TotalRevenue    models.Money `json:"total_revenue"`
	TotalCommission models.Money `json:"total_commission"`
}

// SumLinkStatsByMarketer 汇总推广员名下全部链接的计数字段
func (r *GormAffiliateRepository) SumLinkStatsByMarketer(marketerID uint) (*LinkStats, error) {
	var stats LinkStats
	err := r.db.Model(&models.AffiliateLink{}).
		Select(
			"COUNT(*) AS link_count",
			"COALESCE(SUM(click_count), 0) AS click_count",
			"COALESCE(SUM(conversion_count), 0) AS conversion_count",
			"COALESCE(SUM(total_revenue), 0) AS total_revenue",
			"COALESCE(SUM(total_commission), 0) AS total_commission",
		).
		Where("marketer_id = ?", marketerID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateClick 写入点击事件
func (r *GormAffiliateRepository) CreateClick(click *models.ClickEvent) error {
	return r.db.Create(click).Error
}

// GetClickByID 按 ID 获取点击事件
func (r *GormAffiliateRepository) GetClickByID(id uint) (*models.ClickEvent, error) {
	var click models.ClickEvent
	if err := r.db.First(&click, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &click, nil
}

// UpdateClickFraud 回写风控评分结果
func (r *GormAffiliateRepository) UpdateClickFraud(clickID uint, isBot, isSuspicious bool, fraudScore float64) error {
	return r.db.Model(&models.ClickEvent{}).
		Where("id = ?", clickID).
		Updates(map[string]interface{}{
			"is_bot":        isBot,
			"is_suspicious": isSuspicious,
			"fraud_score":   fraudScore,
		}).Error
}

// ListClicks 点击事件列表
func (r *GormAffiliateRepository) ListClicks(filter ClickListFilter) ([]models.ClickEvent, int64, error) {
	query := r.db.Model(&models.ClickEvent{})

	if filter.LinkID > 0 {
		query = query.Where("link_id = ?", filter.LinkID)
	}
	if filter.IPAddress != "" {
		query = query.Where("client_ip = ?", filter.IPAddress)
	}
	if filter.OnlySuspicious {
		query = query.Where("is_suspicious = ?", true)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("clicked_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("clicked_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var clicks []models.ClickEvent
	if err := query.Order("id DESC").Find(&clicks).Error; err != nil {
		return nil, 0, err
	}
	return clicks, total, nil
}

// CountClicksByIPAndLink 统计窗口内同 IP 对同链接的点击数
func (r *GormAffiliateRepository) CountClicksByIPAndLink(clientIP string, linkID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClickEvent{}).
		Where("client_ip = ? AND link_id = ? AND clicked_at >= ?", clientIP, linkID, since).
		Count(&count).Error
	return count, err
}

// CountClicksByIP 统计窗口内同 IP 的全站点击数
func (r *GormAffiliateRepository) CountClicksByIP(clientIP string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClickEvent{}).
		Where("client_ip = ? AND clicked_at >= ?", clientIP, since).
		Count(&count).Error
	return count, err
}

// GetEarliestClickIPByCookie 获取某 cookie 最早点击的来源 IP，无记录时返回空串
func (r *GormAffiliateRepository) GetEarliestClickIPByCookie(cookieID string) (string, error) {
	var click models.ClickEvent
	err := r.db.Where("cookie_id = ?", cookieID).
		Order("clicked_at ASC").
		First(&click).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return click.ClientIP, nil
}

// ListCookieIDsByIP 列出某 IP 产生过点击的全部 cookie 标识
func (r *GormAffiliateRepository) ListCookieIDsByIP(clientIP string) ([]string, error) {
	var cookieIDs []string
	err := r.db.Model(&models.ClickEvent{}).
		Where("client_ip = ? AND cookie_id <> ''", clientIP).
		Distinct().
		Pluck("cookie_id", &cookieIDs).Error
	if err != nil {
		return nil, err
	}
	return cookieIDs, nil
}

// CreateAttribution 创建归因记录
func (r *GormAffiliateRepository) CreateAttribution(record *models.AttributionRecord) error {
	return r.db.Create(record).Error
}

// GetAttributionByCookie 按 cookie 获取归因记录
func (r *GormAffiliateRepository) GetAttributionByCookie(cookieID string) (*models.AttributionRecord, error) {
	var record models.AttributionRecord
	if err := r.db.Where("cookie_id = ?", cookieID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetAttributionByCookieForUpdate 按 cookie 加锁获取归因记录，须在事务内调用
func (r *GormAffiliateRepository) GetAttributionByCookieForUpdate(cookieID string) (*models.AttributionRecord, error) {
	var record models.AttributionRecord
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cookie_id = ?", cookieID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// UpdateAttribution 更新归因记录
func (r *GormAffiliateRepository) UpdateAttribution(record *models.AttributionRecord) error {
	return r.db.Save(record).Error
}

// CountConversionsByMarketer 汇总推广员名下链接的点击数与归因到该推广员的订单数
func (r *GormAffiliateRepository) CountConversionsByMarketer(marketerID uint) (int64, int64, error) {
	var clicks int64
	err := r.db.Model(&models.AffiliateLink{}).
		Select("COALESCE(SUM(click_count), 0)").
		Where("marketer_id = ?", marketerID).
		Scan(&clicks).Error
	if err != nil {
		return 0, 0, err
	}
	var conversions int64
	err = r.db.Model(&models.Order{}).
		Where("marketer_id = ?", marketerID).
		Count(&conversions).Error
	if err != nil {
		return 0, 0, err
	}
	return clicks, conversions, nil
}
