package public

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
)

// LinkCreateRequest 创建推广链接请求
type LinkCreateRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// CreateLink 创建推广链接（同商品幂等返回已有链接）
func (h *Handler) CreateLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req LinkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	link, err := h.LinkService.CreateLink(service.CreateLinkInput{
		MarketerID: uid,
		ProductID:  req.ProductID,
	})
	if err != nil {
		respondLinkCreateError(c, err)
		return
	}
	response.Success(c, link)
}

// ListLinks 查询我的推广链接
func (h *Handler) ListLinks(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	productID, _ := strconv.ParseUint(c.Query("product_id"), 10, 64)

	rows, total, err := h.LinkService.ListLinks(repository.LinkListFilter{
		Page:       page,
		PageSize:   pageSize,
		MarketerID: uid,
		ProductID:  uint(productID),
		OnlyActive: c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "link list failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetLink 查询单条推广链接
func (h *Handler) GetLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	linkID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || linkID == 0 {
		respondError(c, response.CodeBadRequest, "invalid link id", nil)
		return
	}
	link, err := h.LinkService.GetLinkByID(uid, uint(linkID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			respondError(c, response.CodeNotFound, "link not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "forbidden", nil)
		default:
			respondError(c, response.CodeInternal, "link fetch failed", err)
		}
		return
	}
	response.Success(c, link)
}

// DeactivateLink 停用推广链接
func (h *Handler) DeactivateLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	linkID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || linkID == 0 {
		respondError(c, response.CodeBadRequest, "invalid link id", nil)
		return
	}
	if err := h.LinkService.DeactivateLink(uid, uint(linkID)); err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			respondError(c, response.CodeNotFound, "link not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "forbidden", nil)
		default:
			respondError(c, response.CodeInternal, "link deactivate failed", err)
		}
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// RedirectLink 短链接跳转：记录点击、滚动归因并 302 到落地页。
// 链接无效时仍回退跳转到站点首页，避免买家看到报错页。
func (h *Handler) RedirectLink(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	cookieID, _ := c.Cookie(constants.AttributionCookieName)

	result, err := h.AttributionService.RecordClick(service.RecordClickInput{
		Slug:      slug,
		CookieID:  cookieID,
		SessionID: c.GetHeader("X-Session-Id"),
		ClientIP:  c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Referrer:  c.GetHeader("Referer"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound),
			errors.Is(err, service.ErrLinkInactive),
			errors.Is(err, service.ErrLinkExpired):
			c.Redirect(http.StatusFound, h.AttributionService.FallbackURL())
		default:
			respondError(c, response.CodeInternal, "click record failed", err)
		}
		return
	}

	h.setAttributionCookie(c, result.CookieID)
	c.Redirect(http.StatusFound, result.RedirectURL)
}

// GetAttribution 查询当前访客的归因记录（调试/前端展示用）
func (h *Handler) GetAttribution(c *gin.Context) {
	cookieID, err := c.Cookie(constants.AttributionCookieName)
	if err != nil || strings.TrimSpace(cookieID) == "" {
		response.Success(c, nil)
		return
	}
	record, err := h.AttributionService.GetAttribution(cookieID)
	if err != nil {
		respondError(c, response.CodeInternal, "attribution fetch failed", err)
		return
	}
	response.Success(c, record)
}

func (h *Handler) setAttributionCookie(c *gin.Context, cookieID string) {
	days := h.Config.Affiliate.CookieTTLDays
	if days <= 0 {
		days = 30
	}
	maxAge := days * 24 * 3600
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.AttributionCookieName, cookieID, maxAge, "/", "", false, true)
}

// GetMarketerDashboard 推广员工作台：链接聚合 + 佣金状态汇总
func (h *Handler) GetMarketerDashboard(c *gin.Context) {
	marketerID, ok := getUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.LinkService.GetMarketerDashboard(marketerID)
	if err != nil {
		respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		return
	}
	summary, err := h.CommissionService.Summary(marketerID)
	if err != nil {
		respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		return
	}

	response.Success(c, gin.H{
		"links":       dashboard,
		"commissions": summary,
	})
}
