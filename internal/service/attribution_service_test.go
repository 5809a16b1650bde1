package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestRecordClickCreatesAttribution(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "click-new@example.com")
	product := createServiceTestProduct(t, db, "click-new-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "clicknew001")

	result, err := svc.RecordClick(RecordClickInput{
		Slug:      link.Slug,
		ClientIP:  "203.0.113.10",
		UserAgent: "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("record click failed: %v", err)
	}
	if result.CookieID == "" {
		t.Fatal("expected generated cookie id")
	}
	if result.RedirectURL == "" {
		t.Fatal("expected landing url")
	}

	record, err := svc.GetAttribution(result.CookieID)
	if err != nil || record == nil {
		t.Fatalf("load attribution failed: record=%+v err=%v", record, err)
	}
	if record.FirstClickLinkID != link.ID || record.LastClickLinkID != link.ID {
		t.Fatalf("expected first/last = %d, got first=%d last=%d", link.ID, record.FirstClickLinkID, record.LastClickLinkID)
	}
	if len(record.ClickChain) != 1 {
		t.Fatalf("expected 1 touch, got %d", len(record.ClickChain))
	}

	var reloaded models.AffiliateLink
	if err := db.First(&reloaded, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloaded.ClickCount != 1 {
		t.Fatalf("expected click_count 1, got %d", reloaded.ClickCount)
	}
	if reloaded.LastClickedAt == nil {
		t.Fatal("expected last_clicked_at set")
	}
}

func TestRecordClickLastClickOverridesAttribution(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)

	marketerA := createServiceTestMarketer(t, db, "click-a@example.com")
	marketerB := createServiceTestMarketer(t, db, "click-b@example.com")
	product := createServiceTestProduct(t, db, "click-override-product")
	linkA := createServiceTestLink(t, db, marketerA.ID, product.ID, "clickovra01")
	linkB := createServiceTestLink(t, db, marketerB.ID, product.ID, "clickovrb01")

	first, err := svc.RecordClick(RecordClickInput{Slug: linkA.Slug, ClientIP: "203.0.113.11"})
	if err != nil {
		t.Fatalf("first click failed: %v", err)
	}
	if _, err := svc.RecordClick(RecordClickInput{
		Slug:     linkB.Slug,
		CookieID: first.CookieID,
		ClientIP: "203.0.113.11",
	}); err != nil {
		t.Fatalf("second click failed: %v", err)
	}

	record, err := svc.GetAttribution(first.CookieID)
	if err != nil || record == nil {
		t.Fatalf("load attribution failed: record=%+v err=%v", record, err)
	}
	if record.FirstClickLinkID != linkA.ID {
		t.Fatalf("first click must stay %d, got %d", linkA.ID, record.FirstClickLinkID)
	}
	if record.LastClickLinkID != linkB.ID {
		t.Fatalf("last click must move to %d, got %d", linkB.ID, record.LastClickLinkID)
	}
	if len(record.ClickChain) != 2 {
		t.Fatalf("expected 2 touches, got %d", len(record.ClickChain))
	}
}

func TestRecordClickFrozenAfterConversion(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)

	marketerA := createServiceTestMarketer(t, db, "frozen-a@example.com")
	marketerB := createServiceTestMarketer(t, db, "frozen-b@example.com")
	product := createServiceTestProduct(t, db, "frozen-product")
	linkA := createServiceTestLink(t, db, marketerA.ID, product.ID, "frozena0001")
	linkB := createServiceTestLink(t, db, marketerB.ID, product.ID, "frozenb0001")

	first, err := svc.RecordClick(RecordClickInput{Slug: linkA.Slug, ClientIP: "203.0.113.12"})
	if err != nil {
		t.Fatalf("first click failed: %v", err)
	}
	if err := svc.MarkConverted(nil, first.CookieID, 42); err != nil {
		t.Fatalf("mark converted failed: %v", err)
	}

	// 转化后的点击仍记事件，但归因不再改写
	if _, err := svc.RecordClick(RecordClickInput{
		Slug:     linkB.Slug,
		CookieID: first.CookieID,
		ClientIP: "203.0.113.12",
	}); err != nil {
		t.Fatalf("post-conversion click failed: %v", err)
	}

	record, err := svc.GetAttribution(first.CookieID)
	if err != nil || record == nil {
		t.Fatalf("load attribution failed: record=%+v err=%v", record, err)
	}
	if !record.Converted {
		t.Fatal("expected converted record")
	}
	if record.OrderID == nil || *record.OrderID != 42 {
		t.Fatalf("expected order id 42, got %+v", record.OrderID)
	}
	if record.LastClickLinkID != linkA.ID {
		t.Fatalf("frozen record must keep last click %d, got %d", linkA.ID, record.LastClickLinkID)
	}
	if len(record.ClickChain) != 1 {
		t.Fatalf("frozen chain must keep 1 touch, got %d", len(record.ClickChain))
	}

	var clickCount int64
	if err := db.Model(&models.ClickEvent{}).Where("link_id = ?", linkB.ID).Count(&clickCount).Error; err != nil {
		t.Fatalf("count clicks failed: %v", err)
	}
	if clickCount != 1 {
		t.Fatalf("expected click event for frozen attribution, got %d", clickCount)
	}
}

func TestRecordClickScoresBotUserAgent(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "click-bot@example.com")
	product := createServiceTestProduct(t, db, "click-bot-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "clickbot001")

	if _, err := svc.RecordClick(RecordClickInput{
		Slug:      link.Slug,
		ClientIP:  "203.0.113.14",
		UserAgent: "python-requests/2.28",
	}); err != nil {
		t.Fatalf("record click failed: %v", err)
	}

	var click models.ClickEvent
	if err := db.Where("link_id = ?", link.ID).First(&click).Error; err != nil {
		t.Fatalf("load click failed: %v", err)
	}
	if !click.IsBot {
		t.Fatal("expected bot user agent to mark click is_bot")
	}
	if !click.IsSuspicious {
		t.Fatal("expected flagged click to mark is_suspicious")
	}
	if click.FraudScore != 0.5 {
		t.Fatalf("expected fraud_score 0.5, got %v", click.FraudScore)
	}

	var signals int64
	if err := db.Model(&models.FraudSignal{}).
		Where("entity_type = ? AND entity_id = ?", constants.FraudEntityClick, click.ID).
		Count(&signals).Error; err != nil {
		t.Fatalf("count fraud signals failed: %v", err)
	}
	if signals != 1 {
		t.Fatalf("expected one fraud signal for click, got %d", signals)
	}
}

func TestRecordClickRejectsUnusableLinks(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "unusable@example.com")
	product := createServiceTestProduct(t, db, "unusable-product")

	if _, err := svc.RecordClick(RecordClickInput{Slug: "no-such-slug"}); err != ErrLinkNotFound {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}

	inactive := createServiceTestLink(t, db, marketer.ID, product.ID, "inactive001")
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate link failed: %v", err)
	}
	if _, err := svc.RecordClick(RecordClickInput{Slug: inactive.Slug}); err != ErrLinkInactive {
		t.Fatalf("expected ErrLinkInactive, got %v", err)
	}

	product2 := createServiceTestProduct(t, db, "unusable-product-2")
	expired := createServiceTestLink(t, db, marketer.ID, product2.ID, "expired0001")
	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", expired.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("expire link failed: %v", err)
	}
	if _, err := svc.RecordClick(RecordClickInput{Slug: expired.Slug}); err != ErrLinkExpired {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}
}

func TestResolveCreditSkipsConvertedAndInactive(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "resolve@example.com")
	product := createServiceTestProduct(t, db, "resolve-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "resolve0001")

	result, err := svc.RecordClick(RecordClickInput{Slug: link.Slug, ClientIP: "203.0.113.13"})
	if err != nil {
		t.Fatalf("record click failed: %v", err)
	}

	record, credited, err := svc.ResolveCredit(result.CookieID)
	if err != nil {
		t.Fatalf("resolve credit failed: %v", err)
	}
	if record == nil || credited == nil || credited.ID != link.ID {
		t.Fatalf("expected credit for link %d, got %+v", link.ID, credited)
	}

	// 链接停用后仍返回记录，但不计佣
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", link.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate link failed: %v", err)
	}
	record, credited, err = svc.ResolveCredit(result.CookieID)
	if err != nil {
		t.Fatalf("resolve credit failed: %v", err)
	}
	if record == nil || credited != nil {
		t.Fatalf("expected record without credit, got record=%v credited=%v", record, credited)
	}

	// 已转化的归因仍返回记录供留痕，但不可再次计佣
	if err := svc.MarkConverted(nil, result.CookieID, 7); err != nil {
		t.Fatalf("mark converted failed: %v", err)
	}
	record, credited, err = svc.ResolveCredit(result.CookieID)
	if err != nil {
		t.Fatalf("resolve credit failed: %v", err)
	}
	if record == nil || !record.Converted {
		t.Fatalf("expected converted record, got %+v", record)
	}
	if credited != nil {
		t.Fatalf("converted attribution must not credit again, got %+v", credited)
	}

	// 空 cookie 直接视为无归因
	record, credited, err = svc.ResolveCredit("")
	if err != nil || record != nil || credited != nil {
		t.Fatalf("expected empty resolution, got record=%v credited=%v err=%v", record, credited, err)
	}
}

func setupAttributionServiceTest(t *testing.T) (*AttributionService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "attribution_service")
	cfg := newServiceTestConfig()
	affiliateRepo := repository.NewAffiliateRepository(db)
	productRepo := repository.NewProductRepository(db)
	fraudSvc := NewFraudService(
		cfg,
		repository.NewFraudRepository(db),
		affiliateRepo,
		repository.NewOrderRepository(db),
		repository.NewUserRepository(db),
	)
	return NewAttributionService(cfg, affiliateRepo, productRepo, fraudSvc), db
}

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.AffiliateLink{},
		&models.ClickEvent{},
		&models.AttributionRecord{},
		&models.FraudSignal{},
		&models.Commission{},
		&models.Payout{},
		&models.PaymentEvent{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func newServiceTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			PublicBaseURL:   "http://localhost:8080",
			FrontendBaseURL: "http://localhost:3000",
		},
		Affiliate: config.AffiliateConfig{
			CookieTTLDays:        30,
			SlugLength:           12,
			SlugMaxRetries:       5,
			LinkCreatePerHour:    50,
			AttributionWindowDay: 30,
		},
		Fraud: config.FraudConfig{
			FlagThreshold:         0.3,
			BlockThreshold:        0.7,
			NewMarketerDays:       7,
			LargeOrderAmount:      "100000",
			ConversionRateCeiling: 0.2,
		},
		Commission: config.CommissionConfig{
			PlatformFeeRate:  "2.5",
			HoldbackDays:     14,
			ProcessBatchSize: 100,
		},
		Payout: config.PayoutConfig{
			MinimumAmount: "5000",
			Currency:      "NGN",
		},
	}
}

func createServiceTestMarketer(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		FullName:     "tester",
		Role:         constants.UserRoleMarketer,
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create marketer failed: %v", err)
	}
	return row
}

func createServiceTestBuyer(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		FullName:     "buyer",
		Role:         constants.UserRoleBuyer,
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create buyer failed: %v", err)
	}
	return row
}

func createServiceTestProduct(t *testing.T, db *gorm.DB, slug string) models.Product {
	t.Helper()

	row := models.Product{
		SellerID:       1,
		Name:           "test product",
		Slug:           slug,
		Price:          models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
		CommissionType: constants.CommissionTypePercentage,
		CommissionRate: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		IsActive:       true,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return row
}

func createServiceTestLink(t *testing.T, db *gorm.DB, marketerID, productID uint, slug string) models.AffiliateLink {
	t.Helper()

	row := models.AffiliateLink{
		MarketerID: marketerID,
		ProductID:  productID,
		Slug:       slug,
		FullURL:    "http://localhost:8080/r/" + slug,
		IsActive:   true,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create affiliate link failed: %v", err)
	}
	return row
}
