package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                           // 主键
	SellerID              uint           `gorm:"not null;index" json:"seller_id"`                                // 卖家用户ID
	Name                  string         `gorm:"not null" json:"name"`                                           // 商品名称
	Slug                  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`             // 商品标识
	Description           string         `gorm:"type:text" json:"description"`                                   // 商品描述
	Price                 Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`             // 售价
	CommissionType        string         `gorm:"type:varchar(20);not null;default:'percentage'" json:"commission_type"` // 佣金类型（percentage/fixed）
	CommissionRate        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"commission_rate"`   // 佣金比例（百分比）
	FixedCommissionAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"fixed_commission_amount"` // 单件固定佣金
	Images                StringArray    `gorm:"type:json" json:"images"`                                        // 图片数组
	IsActive              bool           `gorm:"not null;default:true;index" json:"is_active"`                   // 是否上架
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间

	Seller User `gorm:"foreignKey:SellerID" json:"seller,omitempty"` // 卖家信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
