package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	MarketerID  uint
	LinkID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// LinkListFilter 查询推广链接列表的过滤条件
type LinkListFilter struct {
	Page       int
	PageSize   int
	MarketerID uint
	ProductID  uint
	Slug       string
	OnlyActive bool
}

// ClickListFilter 查询点击事件列表的过滤条件
type ClickListFilter struct {
	Page           int
	PageSize       int
	LinkID         uint
	IPAddress      string
	OnlySuspicious bool
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	MarketerID  uint
	OrderID     uint
	Status      string
	PayoutID    uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PayoutListFilter 查询提现批次列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	MarketerID  uint
	Status      string
	Reference   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// FraudSignalListFilter 查询风控信号列表的过滤条件
type FraudSignalListFilter struct {
	Page        int
	PageSize    int
	EntityType  string
	EntityID    uint
	Action      string
	Reviewed    *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	Role          string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	LastLoginFrom *time.Time
	LastLoginTo   *time.Time
}

// UserLoginLogListFilter 查询用户登录日志列表的过滤条件
type UserLoginLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
