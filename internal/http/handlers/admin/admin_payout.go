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

// GetAdminPayouts 获取提现批次列表 (Admin)
func (h *Handler) GetAdminPayouts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PayoutListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    strings.TrimSpace(c.Query("status")),
		Reference: strings.TrimSpace(c.Query("reference")),
	}

	if raw := strings.TrimSpace(c.Query("marketer_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		filter.MarketerID = uint(id)
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

	payouts, total, err := h.PayoutService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch payouts", err)
		return
	}

	response.SuccessWithPage(c, payouts, response.BuildPagination(page, pageSize, total))
}

// CancelPayout 取消待处理的提现批次并释放佣金
func (h *Handler) CancelPayout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	payout, err := h.PayoutService.CancelPayout(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			respondError(c, response.CodeNotFound, "payout not found", nil)
			return
		}
		if errors.Is(err, service.ErrPayoutStatusInvalid) {
			respondError(c, response.CodeBadRequest, "only pending payouts can be cancelled", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to cancel payout", err)
		return
	}

	response.Success(c, payout)
}

// ReleaseFailedPayout 释放失败批次占用的佣金，使其可再次申请提现
func (h *Handler) ReleaseFailedPayout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	released, err := h.PayoutService.ReleaseFailedPayout(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			respondError(c, response.CodeNotFound, "payout not found", nil)
			return
		}
		if errors.Is(err, service.ErrPayoutStatusInvalid) {
			respondError(c, response.CodeBadRequest, "only failed payouts can be released", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to release payout", err)
		return
	}

	response.Success(c, gin.H{"released": released})
}
