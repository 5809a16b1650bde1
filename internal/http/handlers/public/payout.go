package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PayoutRequestRequest 申请打款请求，amount 为空表示全部可用余额
type PayoutRequestRequest struct {
	Amount string `json:"amount"`
}

// RequestPayout 申请打款
func (h *Handler) RequestPayout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req PayoutRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	var amount models.Money
	if trimmed := strings.TrimSpace(req.Amount); trimmed != "" {
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil || parsed.IsNegative() {
			respondError(c, response.CodeBadRequest, "invalid amount", nil)
			return
		}
		amount = models.NewMoneyFromDecimal(parsed)
	}

	payout, err := h.PayoutService.RequestPayout(service.RequestPayoutInput{
		MarketerID: uid,
		Amount:     amount,
	})
	if err != nil {
		respondPayoutRequestError(c, err)
		return
	}
	response.Success(c, payout)
}

// ListMyPayouts 查询我的打款批次
func (h *Handler) ListMyPayouts(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.PayoutService.List(repository.PayoutListFilter{
		Page:       page,
		PageSize:   pageSize,
		MarketerID: uid,
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "payout list failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetMyPayout 查询我的打款批次详情
func (h *Handler) GetMyPayout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	payoutID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || payoutID == 0 {
		respondError(c, response.CodeBadRequest, "invalid payout id", nil)
		return
	}
	payout, err := h.PayoutService.GetByID(uid, uint(payoutID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutNotFound):
			respondError(c, response.CodeNotFound, "payout not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "forbidden", nil)
		default:
			respondError(c, response.CodeInternal, "payout fetch failed", err)
		}
		return
	}
	response.Success(c, payout)
}
