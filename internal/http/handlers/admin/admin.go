package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/http/response"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username       string                `json:"username" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneLogin, req.CaptchaPayload.toServicePayload(), c.ClientIP()); captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				respondError(c, response.CodeBadRequest, "captcha required", nil)
				return
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				respondError(c, response.CodeBadRequest, "captcha invalid", nil)
				return
			case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
				respondError(c, response.CodeInternal, "captcha config invalid", captchaErr)
				return
			default:
				respondError(c, response.CodeInternal, "captcha verify failed", captchaErr)
				return
			}
		}
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, response.CodeUnauthorized, "invalid username or password", nil)
			return
		}
		respondError(c, response.CodeInternal, "login failed", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	// 获取当前登录用户 ID
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthService.ChangePassword(id, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			respondError(c, response.CodeBadRequest, "old password is incorrect", nil)
			return
		}
		if errors.Is(err, service.ErrWeakPassword) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "admin not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "save failed", err)
		return
	}

	response.Success(c, nil)
}

// ====================  商品管理  ====================

// GetAdminProducts 获取商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.ListProducts(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     c.Query("search"),
		OnlyActive: c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch products", err)
		return
	}

	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// GetAdminProduct 获取商品详情 (Admin)
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	product, err := h.ProductService.GetProductByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch product", err)
		return
	}

	response.Success(c, product)
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	SellerID              uint     `json:"seller_id" binding:"required"`
	Name                  string   `json:"name" binding:"required"`
	Slug                  string   `json:"slug" binding:"required"`
	Description           string   `json:"description"`
	Price                 string   `json:"price" binding:"required"`
	CommissionType        string   `json:"commission_type"`
	CommissionRate        string   `json:"commission_rate"`
	FixedCommissionAmount string   `json:"fixed_commission_amount"`
	Images                []string `json:"images"`
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		respondError(c, response.CodeBadRequest, "price invalid", nil)
		return
	}
	rate, err := parseOptionalDecimal(req.CommissionRate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "commission rate invalid", nil)
		return
	}
	fixed, err := parseOptionalDecimal(req.FixedCommissionAmount)
	if err != nil {
		respondError(c, response.CodeBadRequest, "fixed commission amount invalid", nil)
		return
	}

	product, err := h.ProductService.CreateProduct(service.CreateProductInput{
		SellerID:              req.SellerID,
		Name:                  req.Name,
		Slug:                  req.Slug,
		Description:           req.Description,
		Price:                 price,
		CommissionType:        req.CommissionType,
		CommissionRate:        rate,
		FixedCommissionAmount: fixed,
		Images:                req.Images,
	})
	if err != nil {
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug already exists", nil)
			return
		}
		if errors.Is(err, service.ErrProductInvalid) {
			respondError(c, response.CodeBadRequest, "product data invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to create product", err)
		return
	}

	response.Success(c, product)
}

// UpdateProductRequest 更新商品请求，缺省字段不更新
type UpdateProductRequest struct {
	Name                  *string  `json:"name"`
	Description           *string  `json:"description"`
	Price                 *string  `json:"price"`
	CommissionType        *string  `json:"commission_type"`
	CommissionRate        *string  `json:"commission_rate"`
	FixedCommissionAmount *string  `json:"fixed_commission_amount"`
	Images                []string `json:"images"`
	IsActive              *bool    `json:"is_active"`
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	input := service.UpdateProductInput{
		Name:           req.Name,
		Description:    req.Description,
		CommissionType: req.CommissionType,
		Images:         req.Images,
		IsActive:       req.IsActive,
	}
	if input.Price, err = parseOptionalDecimalPtr(req.Price); err != nil {
		respondError(c, response.CodeBadRequest, "price invalid", nil)
		return
	}
	if input.CommissionRate, err = parseOptionalDecimalPtr(req.CommissionRate); err != nil {
		respondError(c, response.CodeBadRequest, "commission rate invalid", nil)
		return
	}
	if input.FixedCommissionAmount, err = parseOptionalDecimalPtr(req.FixedCommissionAmount); err != nil {
		respondError(c, response.CodeBadRequest, "fixed commission amount invalid", nil)
		return
	}

	product, err := h.ProductService.UpdateProduct(uint(id), input)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		if errors.Is(err, service.ErrProductInvalid) {
			respondError(c, response.CodeBadRequest, "product data invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to update product", err)
		return
	}

	response.Success(c, product)
}

// DeactivateProduct 下架商品
func (h *Handler) DeactivateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	inactive := false
	product, err := h.ProductService.UpdateProduct(uint(id), service.UpdateProductInput{IsActive: &inactive})
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to deactivate product", err)
		return
	}

	response.Success(c, product)
}

func parseOptionalDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func parseOptionalDecimalPtr(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &value, nil
}
