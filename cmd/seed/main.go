package main

import (
	"fmt"
	"strings"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// 演示账号统一密码，仅用于本地联调
const demoPassword = "linkway123"

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash demo password: %v", err)
	}
	passwordHash := string(hash)

	// 添加演示用户：1 个卖家、2 个推广员（已配置收款银行）、2 个买家
	users := []models.User{
		{
			Email:        "seller@linkway.dev",
			PasswordHash: passwordHash,
			FullName:     "Linkway Demo Store",
			Role:         constants.UserRoleSeller,
			Status:       constants.UserStatusActive,
		},
		{
			Email:           "ada.marketer@linkway.dev",
			PasswordHash:    passwordHash,
			FullName:        "Ada Okafor",
			Phone:           "08012345678",
			Role:            constants.UserRoleMarketer,
			Status:          constants.UserStatusActive,
			BankName:        "GTBank",
			AccountNumber:   "0123456789",
			AccountName:     "Ada Okafor",
			NicheCategories: models.StringArray([]string{"tech", "gadgets"}),
			AudienceSize:    25000,
		},
		{
			Email:           "tunde.marketer@linkway.dev",
			PasswordHash:    passwordHash,
			FullName:        "Tunde Bakare",
			Phone:           "08087654321",
			Role:            constants.UserRoleMarketer,
			Status:          constants.UserStatusActive,
			BankName:        "Access Bank",
			AccountNumber:   "0987654321",
			AccountName:     "Tunde Bakare",
			NicheCategories: models.StringArray([]string{"lifestyle", "fashion"}),
			AudienceSize:    8000,
		},
		{
			Email:        "chioma.buyer@linkway.dev",
			PasswordHash: passwordHash,
			FullName:     "Chioma Eze",
			Role:         constants.UserRoleBuyer,
			Status:       constants.UserStatusActive,
		},
		{
			Email:        "emeka.buyer@linkway.dev",
			PasswordHash: passwordHash,
			FullName:     "Emeka Obi",
			Role:         constants.UserRoleBuyer,
			Status:       constants.UserStatusActive,
		},
	}

	userIDs := map[string]uint{}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", user.Email, err)
				continue
			}
			stdLog.Printf("Created user: %s (%s)", user.Email, user.Role)
			userIDs[user.Email] = user.ID
		} else {
			stdLog.Printf("User already exists: %s", user.Email)
			userIDs[user.Email] = existing.ID
		}
	}

	sellerID := userIDs["seller@linkway.dev"]
	if sellerID == 0 {
		stdLog.Fatalf("Seed seller missing, cannot continue")
	}

	// 添加演示商品（奈拉定价，覆盖百分比与固定佣金两种模式）
	products := []models.Product{
		{
			SellerID:       sellerID,
			Name:           "Wireless Bluetooth Earbuds",
			Slug:           "wireless-earbuds",
			Description:    "True wireless earbuds with active noise cancellation and 24h battery life.",
			Price:          models.NewMoneyFromDecimal(decimal.NewFromInt(45000)),
			CommissionType: constants.CommissionTypePercentage,
			CommissionRate: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=800",
			}),
			IsActive: true,
		},
		{
			SellerID:       sellerID,
			Name:           "Smart Fitness Watch",
			Slug:           "smart-fitness-watch",
			Description:    "Heart-rate monitoring, sleep tracking and 7-day battery life.",
			Price:          models.NewMoneyFromDecimal(decimal.NewFromInt(82500)),
			CommissionType: constants.CommissionTypePercentage,
			CommissionRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(7.5)),
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1579586337278-3befd40fd17a?w=800",
			}),
			IsActive: true,
		},
		{
			SellerID:              sellerID,
			Name:                  "Portable Power Bank 20000mAh",
			Slug:                  "power-bank-20000",
			Description:           "Fast-charging power bank with dual USB-C output.",
			Price:                 models.NewMoneyFromDecimal(decimal.NewFromInt(28000)),
			CommissionType:        constants.CommissionTypeFixed,
			FixedCommissionAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(2500)),
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1609091839311-d5365f9ff1c5?w=800",
			}),
			IsActive: true,
		},
		{
			SellerID:       sellerID,
			Name:           "Anti-theft Laptop Backpack",
			Slug:           "laptop-backpack",
			Description:    "Water-resistant backpack with USB charging port and 15.6\" laptop sleeve.",
			Price:          models.NewMoneyFromDecimal(decimal.NewFromInt(36500)),
			CommissionType: constants.CommissionTypePercentage,
			CommissionRate: models.NewMoneyFromDecimal(decimal.NewFromInt(12)),
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800",
			}),
			IsActive: true,
		},
		{
			SellerID:       sellerID,
			Name:           "Retired Demo Product",
			Slug:           "retired-demo",
			Description:    "Kept inactive to exercise the only_active filter in the catalog.",
			Price:          models.NewMoneyFromDecimal(decimal.NewFromInt(9900)),
			CommissionType: constants.CommissionTypePercentage,
			CommissionRate: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			IsActive:       false,
		},
	}

	productIDs := map[string]uint{}
	for _, prod := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", prod.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Slug, err)
				continue
			}
			stdLog.Printf("Created product: %s", prod.Slug)
			productIDs[prod.Slug] = prod.ID
		} else {
			existing.Name = prod.Name
			existing.Description = prod.Description
			existing.Price = prod.Price
			existing.CommissionType = prod.CommissionType
			existing.CommissionRate = prod.CommissionRate
			existing.FixedCommissionAmount = prod.FixedCommissionAmount
			existing.Images = prod.Images
			existing.IsActive = prod.IsActive
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Slug)
			}
			productIDs[prod.Slug] = existing.ID
		}
	}

	// 为推广员生成演示推广链接（短码固定，便于本地点击验证归因）
	linkPlans := []struct {
		MarketerEmail string
		ProductSlug   string
		LinkSlug      string
	}{
		{MarketerEmail: "ada.marketer@linkway.dev", ProductSlug: "wireless-earbuds", LinkSlug: "seedada001"},
		{MarketerEmail: "ada.marketer@linkway.dev", ProductSlug: "smart-fitness-watch", LinkSlug: "seedada002"},
		{MarketerEmail: "ada.marketer@linkway.dev", ProductSlug: "power-bank-20000", LinkSlug: "seedada003"},
		{MarketerEmail: "tunde.marketer@linkway.dev", ProductSlug: "laptop-backpack", LinkSlug: "seedtun001"},
		{MarketerEmail: "tunde.marketer@linkway.dev", ProductSlug: "wireless-earbuds", LinkSlug: "seedtun002"},
	}

	baseURL := strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	linkCount := 0
	for _, plan := range linkPlans {
		marketerID := userIDs[plan.MarketerEmail]
		productID := productIDs[plan.ProductSlug]
		if marketerID == 0 || productID == 0 {
			stdLog.Printf("Skip link %s: marketer or product missing", plan.LinkSlug)
			continue
		}

		var existing models.AffiliateLink
		if err := models.DB.Where("marketer_id = ? AND product_id = ?", marketerID, productID).First(&existing).Error; err != nil {
			link := models.AffiliateLink{
				MarketerID: marketerID,
				ProductID:  productID,
				Slug:       plan.LinkSlug,
				FullURL:    fmt.Sprintf("%s/r/%s", baseURL, plan.LinkSlug),
				IsActive:   true,
			}
			if err := models.DB.Create(&link).Error; err != nil {
				stdLog.Printf("Failed to create link %s: %v", plan.LinkSlug, err)
				continue
			}
			stdLog.Printf("Created affiliate link: %s -> %s", plan.LinkSlug, plan.ProductSlug)
		} else {
			stdLog.Printf("Affiliate link already exists: %s -> %s", existing.Slug, plan.ProductSlug)
		}
		linkCount++
	}

	fmt.Println("\n✅ Demo data created successfully!")
	fmt.Println("Summary:")
	fmt.Printf("- %d Users (1 seller, 2 marketers, 2 buyers), password: %s\n", len(users), demoPassword)
	fmt.Printf("- %d Products (percentage and fixed commission, 1 inactive)\n", len(products))
	fmt.Printf("- %d Affiliate links, e.g. %s/r/seedada001\n", linkCount, baseURL)
}
