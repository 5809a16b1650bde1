package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminCommissions 获取佣金列表 (Admin)
func (h *Handler) GetAdminCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CommissionListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}

	if raw := strings.TrimSpace(c.Query("marketer_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		filter.MarketerID = uint(id)
	}
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		filter.OrderID = uint(id)
	}
	if raw := strings.TrimSpace(c.Query("payout_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		filter.PayoutID = uint(id)
	}

	var err error
	if filter.CreatedFrom, err = parseTimeNullable(strings.TrimSpace(c.Query("created_from"))); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if filter.CreatedTo, err = parseTimeNullable(strings.TrimSpace(c.Query("created_to"))); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	commissions, total, err := h.CommissionService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch commissions", err)
		return
	}

	response.SuccessWithPage(c, commissions, response.BuildPagination(page, pageSize, total))
}

// ApproveCommission 提前放款：将冻结佣金标记为可提现
func (h *Handler) ApproveCommission(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	commission, err := h.CommissionService.Approve(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrCommissionNotFound) {
			respondError(c, response.CodeNotFound, "commission not found", nil)
			return
		}
		if errors.Is(err, service.ErrCommissionStatusInvalid) {
			respondError(c, response.CodeBadRequest, "commission status does not allow approval", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to approve commission", err)
		return
	}

	response.Success(c, commission)
}

// ReverseCommissionRequest 撤销佣金请求
type ReverseCommissionRequest struct {
	Reason string `json:"reason"`
}

// ReverseCommission 撤销佣金（退款或风控否决）
func (h *Handler) ReverseCommission(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	var req ReverseCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	commission, err := h.CommissionService.Reverse(uint(id), req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrCommissionNotFound) {
			respondError(c, response.CodeNotFound, "commission not found", nil)
			return
		}
		if errors.Is(err, service.ErrCommissionAlreadyClaimed) {
			respondError(c, response.CodeBadRequest, "commission already claimed by a payout", nil)
			return
		}
		if errors.Is(err, service.ErrCommissionStatusInvalid) {
			respondError(c, response.CodeBadRequest, "commission status does not allow reversal", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to reverse commission", err)
		return
	}

	response.Success(c, commission)
}
