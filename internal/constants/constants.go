package constants

// 用户角色常量
const (
	UserRoleBuyer    = "buyer"
	UserRoleMarketer = "marketer"
	UserRoleSeller   = "seller"
	UserRoleAdmin    = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// 订单支付状态常量
const (
	OrderPaymentStatusPending  = "pending"
	OrderPaymentStatusPaid     = "paid"
	OrderPaymentStatusFailed   = "failed"
	OrderPaymentStatusRefunded = "refunded"
)

// 商品佣金类型常量
const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFixed      = "fixed"
)

// 佣金状态常量
const (
	CommissionStatusPending  = "pending"
	CommissionStatusEarned   = "earned"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"
	CommissionStatusReversed = "reversed"
)

// 打款批次状态常量
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusCancelled  = "cancelled"
)

// 打款方式常量
const (
	PayoutMethodBankTransfer = "bank_transfer"
)

// 归因模型常量
const (
	AttributionModelLastClick = "last_click"
)

// 反作弊实体类型常量
const (
	FraudEntityClick    = "click"
	FraudEntityOrder    = "order"
	FraudEntityMarketer = "marketer"
)

// 反作弊处理动作常量
const (
	FraudActionNone    = "none"
	FraudActionFlagged = "flagged"
	FraudActionBlocked = "blocked"
)

// Paystack 回调事件常量
const (
	PaystackEventChargeSuccess  = "charge.success"
	PaystackEventTransferOK     = "transfer.success"
	PaystackEventTransferFailed = "transfer.failed"
)

// 支付提供方常量
const (
	PaymentProviderPaystack = "paystack"
)

// 管理员状态常量
const (
	AdminStatusActive   = "active"
	AdminStatusDisabled = "disabled"
)

// 验证码提供方常量
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 验证码场景常量
const (
	CaptchaSceneLogin    = "login"
	CaptchaSceneRegister = "register"
)

// 登录日志状态常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"
)

// 登录日志失败原因常量
const (
	LoginLogFailReasonBadRequest           = "bad_request"
	LoginLogFailReasonCaptchaRequired      = "captcha_required"
	LoginLogFailReasonCaptchaInvalid       = "captcha_invalid"
	LoginLogFailReasonCaptchaConfigInvalid = "captcha_config_invalid"
	LoginLogFailReasonCaptchaVerifyFailed  = "captcha_verify_failed"
	LoginLogFailReasonInvalidEmail         = "invalid_email"
	LoginLogFailReasonInvalidCredentials   = "invalid_credentials"
	LoginLogFailReasonUserDisabled         = "user_disabled"
	LoginLogFailReasonInternalError        = "internal_error"
)

// 登录来源常量
const (
	LoginLogSourceWeb = "web"
)

// 队列常量
const (
	QueueDefault          = "default"
	TaskCommissionProcess = "commission:process_order"
	TaskFraudScanMarketer = "fraud:scan_marketer"
	TaskPayoutResultEmail = "payout:result_email"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "lw"
)

// 归因 Cookie 常量
const (
	AttributionCookieName = "linkway_attr"
)

// 币种常量
const (
	SiteCurrencyDefault = "NGN"
)

// 打款参考号前缀常量
const (
	PayoutReferencePrefix = "linkway-payout"
)
