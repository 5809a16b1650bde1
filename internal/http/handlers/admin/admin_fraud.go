package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/queue"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
)

// GetFraudSignals 获取风控信号列表
func (h *Handler) GetFraudSignals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.FraudSignalListFilter{
		Page:       page,
		PageSize:   pageSize,
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		Action:     strings.TrimSpace(c.Query("action")),
	}

	if raw := strings.TrimSpace(c.Query("entity_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		filter.EntityID = uint(id)
	}
	if raw := strings.TrimSpace(c.Query("reviewed")); raw != "" {
		reviewed := raw == "true"
		filter.Reviewed = &reviewed
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

	signals, total, err := h.FraudService.ListSignals(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch fraud signals", err)
		return
	}

	response.SuccessWithPage(c, signals, response.BuildPagination(page, pageSize, total))
}

// ReviewFraudSignalRequest 风控复核请求
type ReviewFraudSignalRequest struct {
	Note string `json:"note"`
}

// ReviewFraudSignal 人工复核风控信号
func (h *Handler) ReviewFraudSignal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	signalID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || signalID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	var req ReviewFraudSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	signal, err := h.FraudService.ReviewSignal(uint(signalID), adminID, req.Note)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "fraud signal not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to review fraud signal", err)
		return
	}

	response.Success(c, signal)
}

// TriggerMarketerScan 触发推广员风控扫描
// 队列可用时异步执行，否则同步打分并直接返回结果。
func (h *Handler) TriggerMarketerScan(c *gin.Context) {
	marketerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || marketerID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	if h.QueueClient != nil {
		if err := h.QueueClient.EnqueueFraudScanMarketer(queue.FraudScanMarketerPayload{MarketerID: uint(marketerID)}); err != nil {
			respondError(c, response.CodeInternal, "failed to enqueue fraud scan", err)
			return
		}
		response.Success(c, gin.H{"enqueued": true})
		return
	}

	result, err := h.FraudService.ScoreMarketer(uint(marketerID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "marketer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to scan marketer", err)
		return
	}

	response.Success(c, result)
}
