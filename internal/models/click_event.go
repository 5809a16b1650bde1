package models

import "time"

// ClickEvent 推广点击事件表
// 说明：点击写入一次，仅在风控评分后回写一次 is_bot/is_suspicious/fraud_score。
type ClickEvent struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                       // 主键
	LinkID       uint      `gorm:"not null;index;index:idx_click_ip_link" json:"link_id"`      // 推广链接ID
	ClientIP     string    `gorm:"type:varchar(64);index;index:idx_click_ip_link" json:"client_ip"` // 客户端IP
	UserAgent    string    `gorm:"type:varchar(1024)" json:"user_agent"`                       // 客户端UA
	Referrer     string    `gorm:"type:varchar(1024)" json:"referrer"`                         // 来源地址
	LandingURL   string    `gorm:"type:varchar(512)" json:"landing_url"`                       // 落地页地址
	SessionID    string    `gorm:"type:varchar(100)" json:"session_id"`                        // 会话标识
	CookieID     string    `gorm:"type:varchar(100);index" json:"cookie_id"`                   // 归因 Cookie 标识
	IsBot        bool      `gorm:"not null;default:false" json:"is_bot"`                       // UA 命中爬虫特征
	IsSuspicious bool      `gorm:"not null;default:false;index" json:"is_suspicious"`          // 是否可疑
	FraudScore   float64   `gorm:"type:decimal(3,2);not null;default:0" json:"fraud_score"`    // 风控评分
	ClickedAt    time.Time `gorm:"index;not null" json:"clicked_at"`                           // 点击时间

	Link AffiliateLink `gorm:"foreignKey:LinkID" json:"link,omitempty"` // 推广链接
}

// TableName 指定表名
func (ClickEvent) TableName() string {
	return "click_events"
}
