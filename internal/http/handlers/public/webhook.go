package public

import (
	"errors"
	"io"
	"net/http"

	"github.com/linkway-core/internal/payment/paystack"

	"github.com/gin-gonic/gin"
)

const webhookBodyLimit = 1 << 20

// PaystackWebhook 处理 Paystack 回调。
// 签名校验失败返回 401，避免网关重试伪造请求；处理失败返回 5xx 让网关重试。
func (h *Handler) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	signature := c.GetHeader(paystack.SignatureHeader)

	if err := h.PayoutService.HandlePaystackWebhook(body, signature); err != nil {
		switch {
		case errors.Is(err, paystack.ErrSignatureInvalid), errors.Is(err, paystack.ErrConfigInvalid):
			c.Status(http.StatusUnauthorized)
		case errors.Is(err, paystack.ErrResponseInvalid):
			c.Status(http.StatusBadRequest)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.Status(http.StatusOK)
}
