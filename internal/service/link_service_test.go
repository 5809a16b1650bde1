package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestCreateLinkGeneratesSlugAndURL(t *testing.T) {
	svc, db := setupLinkServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "link-create@example.com")
	product := createServiceTestProduct(t, db, "link-create-product")

	link, err := svc.CreateLink(CreateLinkInput{MarketerID: marketer.ID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if len(link.Slug) != 12 {
		t.Fatalf("expected 12 char slug, got %q", link.Slug)
	}
	if strings.ContainsAny(link.Slug, "0O1lI") {
		t.Fatalf("slug contains ambiguous characters: %q", link.Slug)
	}
	if link.FullURL != "http://localhost:8080/r/"+link.Slug {
		t.Fatalf("unexpected full url: %q", link.FullURL)
	}
	if !link.IsActive {
		t.Fatal("new link must be active")
	}
}

func TestCreateLinkIdempotentPerOwner(t *testing.T) {
	svc, db := setupLinkServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "link-idem@example.com")
	product := createServiceTestProduct(t, db, "link-idem-product")

	first, err := svc.CreateLink(CreateLinkInput{MarketerID: marketer.ID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateLink(CreateLinkInput{MarketerID: marketer.ID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if first.ID != second.ID || first.Slug != second.Slug {
		t.Fatalf("expected same link, got %d/%s and %d/%s", first.ID, first.Slug, second.ID, second.Slug)
	}

	var count int64
	if err := db.Model(&models.AffiliateLink{}).
		Where("marketer_id = ? AND product_id = ?", marketer.ID, product.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count links failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 link row, got %d", count)
	}
}

func TestCreateLinkRejectsInvalidActors(t *testing.T) {
	svc, db := setupLinkServiceTest(t)

	buyer := createServiceTestBuyer(t, db, "link-buyer@example.com")
	disabled := createServiceTestMarketer(t, db, "link-disabled@example.com")
	if err := db.Model(&models.User{}).Where("id = ?", disabled.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable marketer failed: %v", err)
	}
	marketer := createServiceTestMarketer(t, db, "link-actors@example.com")
	product := createServiceTestProduct(t, db, "link-actors-product")
	inactive := createServiceTestProduct(t, db, "link-actors-inactive")
	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	if _, err := svc.CreateLink(CreateLinkInput{MarketerID: buyer.ID, ProductID: product.ID}); !errors.Is(err, ErrRoleNotMarketer) {
		t.Fatalf("expected ErrRoleNotMarketer, got %v", err)
	}
	if _, err := svc.CreateLink(CreateLinkInput{MarketerID: disabled.ID, ProductID: product.ID}); !errors.Is(err, ErrMarketerDisabled) {
		t.Fatalf("expected ErrMarketerDisabled, got %v", err)
	}
	if _, err := svc.CreateLink(CreateLinkInput{MarketerID: marketer.ID, ProductID: 99999}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.CreateLink(CreateLinkInput{MarketerID: marketer.ID, ProductID: inactive.ID}); !errors.Is(err, ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
}

func TestDeactivateLinkChecksOwnership(t *testing.T) {
	svc, db := setupLinkServiceTest(t)

	owner := createServiceTestMarketer(t, db, "link-owner@example.com")
	intruder := createServiceTestMarketer(t, db, "link-intruder@example.com")
	product := createServiceTestProduct(t, db, "link-deactivate-product")
	link := createServiceTestLink(t, db, owner.ID, product.ID, "linkdeact001")

	if err := svc.DeactivateLink(intruder.ID, link.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.DeactivateLink(owner.ID, link.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	var reloaded models.AffiliateLink
	if err := db.First(&reloaded, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("expected deactivated link")
	}

	// 重复停用幂等
	if err := svc.DeactivateLink(owner.ID, link.ID); err != nil {
		t.Fatalf("repeat deactivate failed: %v", err)
	}
}

func TestGetMarketerDashboardAggregates(t *testing.T) {
	svc, db := setupLinkServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "link-dash@example.com")
	other := createServiceTestMarketer(t, db, "link-dash-other@example.com")
	product := createServiceTestProduct(t, db, "link-dash-product")

	linkA := createServiceTestLink(t, db, marketer.ID, product.ID, "linkdash0001")
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", linkA.ID).
		Updates(map[string]interface{}{
			"click_count":      100,
			"conversion_count": 4,
			"total_revenue":    models.NewMoneyFromDecimal(decimal.NewFromInt(40000)),
			"total_commission": models.NewMoneyFromDecimal(decimal.NewFromInt(4000)),
		}).Error; err != nil {
		t.Fatalf("set link stats failed: %v", err)
	}
	linkB := createServiceTestLink(t, db, marketer.ID, product.ID+1000, "linkdash0002")
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", linkB.ID).
		Updates(map[string]interface{}{
			"click_count":      50,
			"conversion_count": 1,
			"total_revenue":    models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
			"total_commission": models.NewMoneyFromDecimal(decimal.NewFromInt(1000)),
		}).Error; err != nil {
		t.Fatalf("set link stats failed: %v", err)
	}
	createServiceTestLink(t, db, other.ID, product.ID, "linkdashothr")

	dashboard, err := svc.GetMarketerDashboard(marketer.ID)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if dashboard.LinkCount != 2 {
		t.Fatalf("expected 2 links, got %d", dashboard.LinkCount)
	}
	if dashboard.ClickCount != 150 || dashboard.ConversionCount != 5 {
		t.Fatalf("expected 150 clicks / 5 conversions, got %d / %d", dashboard.ClickCount, dashboard.ConversionCount)
	}
	if dashboard.TotalRevenue.StringFixed(2) != "50000.00" {
		t.Fatalf("expected revenue 50000.00, got %s", dashboard.TotalRevenue.StringFixed(2))
	}
	if dashboard.TotalCommission.StringFixed(2) != "5000.00" {
		t.Fatalf("expected commission 5000.00, got %s", dashboard.TotalCommission.StringFixed(2))
	}
}

func setupLinkServiceTest(t *testing.T) (*LinkService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "link_service")
	return NewLinkService(
		newServiceTestConfig(),
		repository.NewAffiliateRepository(db),
		repository.NewProductRepository(db),
		repository.NewUserRepository(db),
	), db
}
