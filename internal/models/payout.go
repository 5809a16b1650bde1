package models

import (
	"time"

	"gorm.io/gorm"
)

// Payout 打款批次表
// 说明：打款时快照银行信息；状态机 pending→processing→completed|failed|cancelled。
// 失败批次不自动释放其占位的佣金。
type Payout struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                                 // 主键
	MarketerID      uint           `gorm:"not null;index" json:"marketer_id"`                                    // 推广员用户ID
	Method          string         `gorm:"type:varchar(30);not null;default:'bank_transfer'" json:"method"`      // 打款方式
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`            // 批次总额（净佣金合计）
	CommissionCount int            `gorm:"not null;default:0" json:"commission_count"`                           // 批次佣金条数
	BankName        string         `gorm:"type:varchar(100)" json:"bank_name"`                                   // 收款银行（快照）
	AccountNumber   string         `gorm:"type:varchar(20)" json:"account_number"`                               // 收款账号（快照）
	AccountName     string         `gorm:"type:varchar(255)" json:"account_name"`                                // 收款户名（快照）
	Status          string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`      // 批次状态
	Reference       string         `gorm:"type:varchar(100);uniqueIndex" json:"reference"`                       // 打款参考号
	TransferCode    string         `gorm:"type:varchar(100)" json:"transfer_code"`                               // 网关转账码
	FailureReason   string         `gorm:"type:varchar(512)" json:"failure_reason"`                              // 失败原因
	RequestedAt     time.Time      `gorm:"not null;index" json:"requested_at"`                                   // 申请时间
	ProcessedAt     *time.Time     `json:"processed_at"`                                                         // 发起打款时间
	CompletedAt     *time.Time     `json:"completed_at"`                                                         // 完成时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                              // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                           // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                       // 软删除时间

	Marketer User `gorm:"foreignKey:MarketerID" json:"marketer,omitempty"` // 推广员信息
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
