package service

import (
	"strings"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	productRepo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// CreateProductInput 创建商品输入
type CreateProductInput struct {
	SellerID              uint
	Name                  string
	Slug                  string
	Description           string
	Price                 decimal.Decimal
	CommissionType        string
	CommissionRate        decimal.Decimal
	FixedCommissionAmount decimal.Decimal
	Images                []string
}

// UpdateProductInput 更新商品输入，nil 字段不更新
type UpdateProductInput struct {
	Name                  *string
	Description           *string
	Price                 *decimal.Decimal
	CommissionType        *string
	CommissionRate        *decimal.Decimal
	FixedCommissionAmount *decimal.Decimal
	Images                []string
	IsActive              *bool
}

// CreateProduct 创建商品
func (s *ProductService) CreateProduct(input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if name == "" || slug == "" {
		return nil, ErrProductInvalid
	}
	commissionType, err := normalizeCommissionType(input.CommissionType)
	if err != nil {
		return nil, err
	}
	if input.Price.IsNegative() || input.CommissionRate.IsNegative() || input.FixedCommissionAmount.IsNegative() {
		return nil, ErrProductInvalid
	}

	existing, err := s.productRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlugExists
	}

	product := &models.Product{
		SellerID:              input.SellerID,
		Name:                  name,
		Slug:                  slug,
		Description:           input.Description,
		Price:                 models.NewMoneyFromDecimal(input.Price),
		CommissionType:        commissionType,
		CommissionRate:        models.NewMoneyFromDecimal(input.CommissionRate),
		FixedCommissionAmount: models.NewMoneyFromDecimal(input.FixedCommissionAmount),
		Images:                input.Images,
		IsActive:              true,
	}
	if err := s.productRepo.Create(product); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return product, nil
}

// UpdateProduct 更新商品信息
func (s *ProductService) UpdateProduct(productID uint, input UpdateProductInput) (*models.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProductInvalid
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, ErrProductInvalid
		}
		product.Price = models.NewMoneyFromDecimal(*input.Price)
	}
	if input.CommissionType != nil {
		commissionType, err := normalizeCommissionType(*input.CommissionType)
		if err != nil {
			return nil, err
		}
		product.CommissionType = commissionType
	}
	if input.CommissionRate != nil {
		if input.CommissionRate.IsNegative() {
			return nil, ErrProductInvalid
		}
		product.CommissionRate = models.NewMoneyFromDecimal(*input.CommissionRate)
	}
	if input.FixedCommissionAmount != nil {
		if input.FixedCommissionAmount.IsNegative() {
			return nil, ErrProductInvalid
		}
		product.FixedCommissionAmount = models.NewMoneyFromDecimal(*input.FixedCommissionAmount)
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProductByID 获取商品
func (s *ProductService) GetProductByID(productID uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetProductBySlug 按标识获取上架商品
func (s *ProductService) GetProductBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListProducts 商品列表
func (s *ProductService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.productRepo.List(filter)
}

func normalizeCommissionType(commissionType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(commissionType)) {
	case "", constants.CommissionTypePercentage:
		return constants.CommissionTypePercentage, nil
	case constants.CommissionTypeFixed:
		return constants.CommissionTypeFixed, nil
	default:
		return "", ErrProductInvalid
	}
}
