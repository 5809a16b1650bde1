package models

import "time"

// PaymentEvent 支付网关回调审计表
// 说明：每次回调写一行（含验签失败的请求），仅追加。
type PaymentEvent struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                      // 主键
	Provider       string    `gorm:"type:varchar(30);not null;index" json:"provider"`           // 支付提供方（paystack）
	Event          string    `gorm:"type:varchar(50);not null;index" json:"event"`              // 事件类型
	Reference      string    `gorm:"type:varchar(100);index" json:"reference"`                  // 业务参考号
	RawPayload     string    `gorm:"type:text" json:"raw_payload"`                              // 原始报文
	SignatureValid bool      `gorm:"not null;default:false" json:"signature_valid"`             // 验签是否通过
	ReceivedAt     time.Time `gorm:"not null;index" json:"received_at"`                         // 接收时间
	CreatedAt      time.Time `json:"created_at"`                                                // 创建时间
}

// TableName 指定表名
func (PaymentEvent) TableName() string {
	return "payment_events"
}
