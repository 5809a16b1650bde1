package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateLink 推广链接表
// 说明：每个推广员对同一商品至多一条有效链接；计数字段为运行聚合，
// 仅通过存储层的原子自增更新，停用（is_active=false）后历史保留。
type AffiliateLink struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                                        // 主键
	MarketerID      uint           `gorm:"not null;index;index:idx_affiliate_link_owner,unique" json:"marketer_id"`     // 推广员用户ID
	ProductID       uint           `gorm:"not null;index;index:idx_affiliate_link_owner,unique" json:"product_id"`      // 商品ID
	Slug            string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"slug"`                           // 链接短码
	FullURL         string         `gorm:"type:varchar(512)" json:"full_url"`                                           // 完整推广地址
	ClickCount      int64          `gorm:"not null;default:0" json:"click_count"`                                       // 点击次数
	ConversionCount int64          `gorm:"not null;default:0" json:"conversion_count"`                                  // 成交次数
	TotalRevenue    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"`                  // 累计成交金额
	TotalCommission Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission"`               // 累计佣金（毛额）
	LastClickedAt   *time.Time     `gorm:"index" json:"last_clicked_at"`                                                // 最近点击时间
	IsActive        bool           `gorm:"not null;default:true;index" json:"is_active"`                                // 是否有效
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at,omitempty"`                                           // 链接过期时间（可空）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                                     // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                                     // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                              // 软删除时间

	Marketer User    `gorm:"foreignKey:MarketerID" json:"marketer,omitempty"` // 推广员信息
	Product  Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`   // 商品信息
}

// TableName 指定表名
func (AffiliateLink) TableName() string {
	return "affiliate_links"
}
