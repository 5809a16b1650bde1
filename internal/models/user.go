package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（买家/推广员/卖家共用，按 role 区分）
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                          // 主键
	Email              string         `gorm:"uniqueIndex;not null" json:"email"`             // 邮箱
	PasswordHash       string         `gorm:"not null" json:"-"`                             // 密码哈希（不返回给前端）
	FullName           string         `gorm:"default:''" json:"full_name"`                   // 姓名
	Phone              string         `gorm:"type:varchar(20);default:''" json:"phone"`      // 手机号
	Role               string         `gorm:"type:varchar(20);not null;index" json:"role"`   // 角色（buyer/marketer/seller/admin）
	Status             string         `gorm:"default:'active';index" json:"status"`          // 账号状态
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                   // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                                // 该时间点前签发的 Token 失效
	BankName           string         `gorm:"type:varchar(100);default:''" json:"bank_name"` // 收款银行名称
	AccountNumber      string         `gorm:"type:varchar(20);index" json:"account_number"`  // 收款账号（NUBAN 10位）
	AccountName        string         `gorm:"default:''" json:"account_name"`                // 收款户名
	NicheCategories    StringArray    `gorm:"type:json" json:"niche_categories"`             // 推广领域标签
	AudienceSize       int            `gorm:"default:0" json:"audience_size"`                // 受众规模
	LastLoginAt        *time.Time     `json:"last_login_at"`                                 // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// HasBankDetails 是否已配置收款银行信息
func (u *User) HasBankDetails() bool {
	return u != nil && u.BankName != "" && u.AccountNumber != ""
}

// PayoutAccountName 打款收款户名（缺省回退到姓名）
func (u *User) PayoutAccountName() string {
	if u == nil {
		return ""
	}
	if u.AccountName != "" {
		return u.AccountName
	}
	return u.FullName
}
