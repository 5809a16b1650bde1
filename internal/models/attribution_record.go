package models

import "time"

// AttributionRecord 访客归因记录表
// 说明：按 cookie_id 唯一；first_click_link_id 创建后不再变更，
// last_click_link_id 随每次点击覆盖（last-click 模型），触点链仅追加。
// 转化后（converted=true）记录冻结但不删除。
type AttributionRecord struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                            // 主键
	CookieID         string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"cookie_id"`         // 归因 Cookie 标识
	SessionID        string     `gorm:"type:varchar(100)" json:"session_id"`                             // 会话标识
	FirstClickLinkID uint       `gorm:"not null;index" json:"first_click_link_id"`                       // 首次点击链接ID（不可变）
	LastClickLinkID  uint       `gorm:"not null;index" json:"last_click_link_id"`                        // 最近点击链接ID
	AttributionModel string     `gorm:"type:varchar(20);not null;default:'last_click'" json:"attribution_model"` // 归因模型
	ClickChain       TouchChain `gorm:"type:json" json:"click_chain"`                                    // 触点链（仅追加）
	ExpiresAt        time.Time  `gorm:"not null;index" json:"expires_at"`                                // 滑动过期时间（每次触点重置为 now+30d）
	Converted        bool       `gorm:"not null;default:false;index" json:"converted"`                   // 是否已转化
	ConvertedAt      *time.Time `json:"converted_at"`                                                    // 转化时间
	OrderID          *uint      `gorm:"index" json:"order_id,omitempty"`                                 // 转化订单ID
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                      // 更新时间

	FirstClickLink AffiliateLink `gorm:"foreignKey:FirstClickLinkID" json:"first_click_link,omitempty"` // 首触链接
	LastClickLink  AffiliateLink `gorm:"foreignKey:LastClickLinkID" json:"last_click_link,omitempty"`   // 末触链接
}

// TableName 指定表名
func (AttributionRecord) TableName() string {
	return "attribution_records"
}
