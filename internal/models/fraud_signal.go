package models

import "time"

// FraudSignal 风控评分审计表
// 说明：仅追加，每次评分写一行；同一实体可被多次评分。
type FraudSignal struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                                       // 主键
	EntityType string     `gorm:"type:varchar(20);not null;index;index:idx_fraud_entity" json:"entity_type"`  // 实体类型（click/order/marketer）
	EntityID   uint       `gorm:"not null;index:idx_fraud_entity" json:"entity_id"`                           // 实体ID
	Score      float64    `gorm:"type:decimal(3,2);not null;default:0" json:"score"`                          // 综合评分（[0,1]）
	Signals    string     `gorm:"type:varchar(512)" json:"signals"`                                           // 命中信号（逗号拼接，无则 none）
	Indicators JSON       `gorm:"type:json" json:"indicators"`                                                // 结构化指标（signals + timestamp）
	Action     string     `gorm:"type:varchar(20);not null;index" json:"action"`                              // 处理动作（none/flagged/blocked）
	Reviewed   bool       `gorm:"not null;default:false;index" json:"reviewed"`                               // 是否已人工复核
	ReviewedBy *uint      `json:"reviewed_by,omitempty"`                                                      // 复核管理员ID
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`                                                      // 复核时间
	ReviewNote string     `gorm:"type:varchar(512)" json:"review_note"`                                       // 复核备注
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                                                    // 评分时间
}

// TableName 指定表名
func (FraudSignal) TableName() string {
	return "fraud_signals"
}
