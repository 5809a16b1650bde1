package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（单商品订单，结算归属在下单时快照）
type Order struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                       // 主键
	OrderNo             string         `gorm:"uniqueIndex;not null" json:"order_no"`                       // 订单编号
	BuyerID             uint           `gorm:"index;not null" json:"buyer_id"`                             // 买家用户ID
	SellerID            uint           `gorm:"index;not null" json:"seller_id"`                            // 卖家用户ID
	MarketerID          *uint          `gorm:"index" json:"marketer_id,omitempty"`                         // 归因推广员ID（下单时快照）
	ProductID           uint           `gorm:"index;not null" json:"product_id"`                           // 商品ID
	AffiliateLinkID     *uint          `gorm:"index" json:"affiliate_link_id,omitempty"`                   // 归因推广链接ID（下单时快照）
	Quantity            int            `gorm:"not null;default:1" json:"quantity"`                         // 购买数量
	UnitPrice           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`    // 单价
	Subtotal            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`      // 商品小计
	TotalAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`  // 订单总额
	CommissionRate      Money          `gorm:"type:decimal(10,2);not null;default:0" json:"commission_rate"` // 佣金比例快照
	Status              string         `gorm:"index;not null;default:'pending'" json:"status"`             // 订单状态
	PaymentStatus       string         `gorm:"index;not null;default:'pending'" json:"payment_status"`     // 支付状态
	PaymentReference    string         `gorm:"type:varchar(100);index" json:"payment_reference"`           // 支付参考号
	AttributionCookieID string         `gorm:"type:varchar(100);index" json:"attribution_cookie_id"`       // 归因 Cookie 标识
	ClientIP            string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                // 下单客户端IP
	PaidAt              *time.Time     `gorm:"index" json:"paid_at"`                                       // 支付时间
	ShippedAt           *time.Time     `json:"shipped_at"`                                                 // 发货时间
	DeliveredAt         *time.Time     `gorm:"index" json:"delivered_at"`                                  // 签收时间
	CancelledAt         *time.Time     `json:"cancelled_at"`                                               // 取消时间
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Product  Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`   // 商品信息
	Marketer *User   `gorm:"foreignKey:MarketerID" json:"marketer,omitempty"` // 推广员信息
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
