package public

import (
	"errors"

	handlershared "github.com/linkway-core/internal/http/handlers/shared"
	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var linkCreateErrorRules = []mappedHandlerError{
	{target: service.ErrRoleNotMarketer, code: response.CodeForbidden, msg: "only marketers can create links"},
	{target: service.ErrMarketerDisabled, code: response.CodeForbidden, msg: "account disabled"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, msg: "product not found"},
	{target: service.ErrProductInactive, code: response.CodeBadRequest, msg: "product is not active"},
	{target: service.ErrLinkLimitExceeded, code: response.CodeTooManyRequests, msg: "link creation limit reached, try again later"},
	{target: service.ErrSlugGenerateFailed, code: response.CodeInternal, msg: "could not allocate a link slug"},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrQuantityInvalid, code: response.CodeBadRequest, msg: "quantity must be positive"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "account disabled"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, msg: "product not found"},
	{target: service.ErrProductInactive, code: response.CodeBadRequest, msg: "product is not active"},
}

var payoutRequestErrorRules = []mappedHandlerError{
	{target: service.ErrRoleNotMarketer, code: response.CodeForbidden, msg: "only marketers can request payouts"},
	{target: service.ErrBankDetailsMissing, code: response.CodeBadRequest, msg: "bank details required before requesting a payout"},
	{target: service.ErrPayoutBelowMinimum, code: response.CodeBadRequest, msg: "claimable balance is below the payout minimum"},
	{target: service.ErrPayoutNothingToPay, code: response.CodeBadRequest, msg: "no approved commissions to pay out"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "user not found"},
}

func respondLinkCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, linkCreateErrorRules, response.CodeInternal, "link create failed")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "order create failed")
}

func respondPayoutRequestError(c *gin.Context, err error) {
	respondWithMappedError(c, err, payoutRequestErrorRules, response.CodeInternal, "payout request failed")
}
