package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 佣金表
// 说明：每订单至多一条（order_id 唯一）；状态机
// pending→earned→approved→paid，任意非 paid 状态可转 reversed；
// holdback_until 到期后由后台批量转 approved；payout_id 为打款占位标记，
// 一经写入不自动释放（失败打款需管理员手工释放）。
type Commission struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                            // 主键
	OrderID           uint           `gorm:"not null;uniqueIndex" json:"order_id"`                            // 订单ID（幂等键）
	MarketerID        uint           `gorm:"not null;index" json:"marketer_id"`                               // 推广员用户ID
	ProductID         uint           `gorm:"not null;index" json:"product_id"`                                // 商品ID
	AffiliateLinkID   *uint          `gorm:"index" json:"affiliate_link_id,omitempty"`                        // 推广链接ID
	GrossSaleAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"gross_sale_amount"`  // 成交金额（订单小计）
	CommissionRate    Money          `gorm:"type:decimal(10,2);not null;default:0" json:"commission_rate"`    // 佣金比例快照
	CommissionAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`  // 毛佣金
	PlatformFeeRate   Money          `gorm:"type:decimal(10,2);not null;default:0" json:"platform_fee_rate"`  // 平台费率快照
	PlatformFeeAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"platform_fee_amount"` // 平台费
	NetCommission     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"net_commission"`     // 净佣金（可打款金额）
	Status            string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // 佣金状态
	EarnedAt          *time.Time     `json:"earned_at"`                                                       // 入账时间
	HoldbackUntil     *time.Time     `gorm:"index" json:"holdback_until"`                                     // 冻结期截止时间
	ApprovedAt        *time.Time     `gorm:"index" json:"approved_at"`                                        // 解冻时间
	PaidAt            *time.Time     `json:"paid_at"`                                                         // 打款完成时间
	ReversedAt        *time.Time     `json:"reversed_at"`                                                     // 逆向时间
	ReversalReason    string         `gorm:"type:varchar(255)" json:"reversal_reason"`                        // 逆向原因
	PayoutID          *uint          `gorm:"index" json:"payout_id,omitempty"`                                // 打款批次ID（占位标记）
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt         time.Time      `json:"updated_at"`                                                      // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                  // 软删除时间

	Order    Order   `gorm:"foreignKey:OrderID" json:"order,omitempty"`       // 订单信息
	Marketer User    `gorm:"foreignKey:MarketerID" json:"marketer,omitempty"` // 推广员信息
	Payout   *Payout `gorm:"foreignKey:PayoutID" json:"payout,omitempty"`     // 打款批次
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
