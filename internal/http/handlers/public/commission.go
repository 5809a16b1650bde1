package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
)

// ListMyCommissions 查询我的佣金记录
func (h *Handler) ListMyCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.CommissionService.List(repository.CommissionListFilter{
		Page:       page,
		PageSize:   pageSize,
		MarketerID: uid,
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "commission list failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetMyCommission 查询我的佣金详情
func (h *Handler) GetMyCommission(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	commissionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || commissionID == 0 {
		respondError(c, response.CodeBadRequest, "invalid commission id", nil)
		return
	}
	commission, err := h.CommissionService.GetByID(uid, uint(commissionID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommissionNotFound):
			respondError(c, response.CodeNotFound, "commission not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "forbidden", nil)
		default:
			respondError(c, response.CodeInternal, "commission fetch failed", err)
		}
		return
	}
	response.Success(c, commission)
}

// GetCommissionSummary 查询我的佣金汇总（earned/approved/paid/lifetime）
func (h *Handler) GetCommissionSummary(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.CommissionService.Summary(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "commission summary failed", err)
		return
	}
	response.Success(c, summary)
}
