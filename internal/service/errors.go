package service

import "errors"

// 通用错误
var (
	ErrNotFound         = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// 认证相关错误
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrUserDisabled         = errors.New("user disabled")
	ErrEmailExists          = errors.New("email already registered")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")
	ErrProfileEmpty         = errors.New("profile update is empty")
	ErrBankDetailsInvalid   = errors.New("bank details invalid")
	ErrRoleNotMarketer      = errors.New("user is not a marketer")
	ErrRoleInvalid          = errors.New("role invalid")
	ErrWeakPassword         = errors.New("password too weak")
)

// 邮件相关错误
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

// 商品相关错误
var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product inactive")
	ErrProductInvalid  = errors.New("product data invalid")
	ErrSlugExists      = errors.New("slug already exists")
)

// 推广链接相关错误
var (
	ErrLinkNotFound       = errors.New("affiliate link not found")
	ErrLinkInactive       = errors.New("affiliate link inactive")
	ErrLinkExpired        = errors.New("affiliate link expired")
	ErrLinkLimitExceeded  = errors.New("link creation rate limit exceeded")
	ErrSlugGenerateFailed = errors.New("slug generation failed")
	ErrMarketerDisabled   = errors.New("marketer disabled")
)

// 订单相关错误
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStatusInvalid = errors.New("order status transition invalid")
	ErrQuantityInvalid    = errors.New("quantity invalid")
)

// 佣金相关错误
var (
	ErrCommissionNotFound       = errors.New("commission not found")
	ErrCommissionStatusInvalid  = errors.New("commission status transition invalid")
	ErrCommissionAlreadyClaimed = errors.New("commission already claimed by a payout")
)

// 打款相关错误
var (
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrPayoutBelowMinimum  = errors.New("available balance below payout minimum")
	ErrPayoutNothingToPay  = errors.New("no approved commissions to pay")
	ErrPayoutStatusInvalid = errors.New("payout status transition invalid")
	ErrBankDetailsMissing  = errors.New("bank details not configured")
)
