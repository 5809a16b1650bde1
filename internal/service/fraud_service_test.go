package service

import (
	"math"
	"testing"
	"time"

	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestScoreClickBotUserAgentFlagged(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-bot@example.com")
	product := createServiceTestProduct(t, db, "fraud-bot-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudbot001")
	click := createFraudTestClick(t, db, link.ID, "203.0.113.20", "python-requests/2.28", time.Now())

	result, err := svc.ScoreClick(click.ID)
	if err != nil {
		t.Fatalf("score click failed: %v", err)
	}
	if math.Abs(result.Score-0.5) > 1e-9 {
		t.Fatalf("expected score 0.5, got %v", result.Score)
	}
	if result.Action != constants.FraudActionFlagged {
		t.Fatalf("expected flagged, got %s", result.Action)
	}
	if !containsSignal(result.Signals, "Bot user agent detected") {
		t.Fatalf("expected bot signal, got %v", result.Signals)
	}

	var reloaded models.ClickEvent
	if err := db.First(&reloaded, click.ID).Error; err != nil {
		t.Fatalf("reload click failed: %v", err)
	}
	if !reloaded.IsBot || !reloaded.IsSuspicious {
		t.Fatalf("expected is_bot and is_suspicious set, got bot=%v suspicious=%v", reloaded.IsBot, reloaded.IsSuspicious)
	}

	var signalCount int64
	if err := db.Model(&models.FraudSignal{}).
		Where("entity_type = ? AND entity_id = ?", constants.FraudEntityClick, click.ID).
		Count(&signalCount).Error; err != nil {
		t.Fatalf("count signals failed: %v", err)
	}
	if signalCount != 1 {
		t.Fatalf("expected 1 audit signal, got %d", signalCount)
	}
}

func TestScoreClickRapidBotClicksBlocked(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-rapid@example.com")
	product := createServiceTestProduct(t, db, "fraud-rapid-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudrap001")

	// 5 分钟窗口内同 IP 对同链接 6 次点击 + 爬虫 UA：0.4 + 0.5 = 0.9
	now := time.Now()
	var last models.ClickEvent
	for i := 0; i < 6; i++ {
		last = createFraudTestClick(t, db, link.ID, "203.0.113.21", "curl/8.0", now.Add(-time.Duration(i)*time.Second))
	}

	result, err := svc.ScoreClick(last.ID)
	if err != nil {
		t.Fatalf("score click failed: %v", err)
	}
	if math.Abs(result.Score-0.9) > 1e-9 {
		t.Fatalf("expected score 0.9, got %v", result.Score)
	}
	if result.Action != constants.FraudActionBlocked {
		t.Fatalf("expected blocked, got %s", result.Action)
	}
	if !containsSignal(result.Signals, "Click spam from same IP") || !containsSignal(result.Signals, "Bot user agent detected") {
		t.Fatalf("expected spam + bot signals, got %v", result.Signals)
	}
}

func TestScoreCleanClickNoAction(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-clean@example.com")
	product := createServiceTestProduct(t, db, "fraud-clean-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudcln001")
	click := createFraudTestClick(t, db, link.ID, "203.0.113.22", "Mozilla/5.0 (X11; Linux x86_64)", time.Now())

	result, err := svc.ScoreClick(click.ID)
	if err != nil {
		t.Fatalf("score click failed: %v", err)
	}
	if result.Score != 0 || result.Action != constants.FraudActionNone {
		t.Fatalf("expected clean result, got score=%v action=%s", result.Score, result.Action)
	}

	var reloaded models.ClickEvent
	if err := db.First(&reloaded, click.ID).Error; err != nil {
		t.Fatalf("reload click failed: %v", err)
	}
	if reloaded.IsBot || reloaded.IsSuspicious {
		t.Fatalf("clean click must not be marked, got bot=%v suspicious=%v", reloaded.IsBot, reloaded.IsSuspicious)
	}
}

func TestScoreOrderWithoutAttributionFlagged(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	product := createServiceTestProduct(t, db, "fraud-noattr-product")
	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusPending,
	})

	result, err := svc.ScoreOrder(order.ID)
	if err != nil {
		t.Fatalf("score order failed: %v", err)
	}
	if math.Abs(result.Score-0.6) > 1e-9 {
		t.Fatalf("expected score 0.6, got %v", result.Score)
	}
	if result.Action != constants.FraudActionFlagged {
		t.Fatalf("expected flagged, got %s", result.Action)
	}
	if !containsSignal(result.Signals, "No attribution record found") {
		t.Fatalf("expected missing-attribution signal, got %v", result.Signals)
	}

	// 标记不等于拦截，订单保持原状态
	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("flagged order must keep status, got %s", reloaded.Status)
	}
}

func TestScoreOrderWithAttributionClean(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-attr@example.com")
	if err := db.Model(&models.User{}).Where("id = ?", marketer.ID).
		Update("created_at", time.Now().Add(-30*24*time.Hour)).Error; err != nil {
		t.Fatalf("backdate marketer failed: %v", err)
	}
	product := createServiceTestProduct(t, db, "fraud-attr-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudattr01")
	createFraudTestAttribution(t, db, link.ID, "fraud-attr-cookie", time.Now().Add(-time.Hour))

	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusPending,
	})
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("attribution_cookie_id", "fraud-attr-cookie").Error; err != nil {
		t.Fatalf("set order cookie failed: %v", err)
	}

	result, err := svc.ScoreOrder(order.ID)
	if err != nil {
		t.Fatalf("score order failed: %v", err)
	}
	if result.Score != 0 || result.Action != constants.FraudActionNone {
		t.Fatalf("attributed order must stay clean, got score=%v signals=%v", result.Score, result.Signals)
	}
}

func TestScoreOrderInstantConversionFlagged(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-instant@example.com")
	if err := db.Model(&models.User{}).Where("id = ?", marketer.ID).
		Update("created_at", time.Now().Add(-30*24*time.Hour)).Error; err != nil {
		t.Fatalf("backdate marketer failed: %v", err)
	}
	product := createServiceTestProduct(t, db, "fraud-instant-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudinst01")
	// 归因记录刚建立即下单：距首触不足 10 秒
	createFraudTestAttribution(t, db, link.ID, "fraud-instant-cookie", time.Now())

	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusPending,
	})
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("attribution_cookie_id", "fraud-instant-cookie").Error; err != nil {
		t.Fatalf("set order cookie failed: %v", err)
	}

	result, err := svc.ScoreOrder(order.ID)
	if err != nil {
		t.Fatalf("score order failed: %v", err)
	}
	if math.Abs(result.Score-0.5) > 1e-9 {
		t.Fatalf("expected score 0.5, got %v", result.Score)
	}
	if result.Action != constants.FraudActionFlagged {
		t.Fatalf("expected flagged, got %s", result.Action)
	}
	if !containsSignal(result.Signals, "Suspiciously fast conversion") {
		t.Fatalf("expected fast-conversion signal, got %v", result.Signals)
	}
}

func TestScoreOrderNewMarketerLargeOrderFlagged(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-newbig@example.com")
	product := createServiceTestProduct(t, db, "fraud-newbig-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudnew001")
	createFraudTestAttribution(t, db, link.ID, "fraud-newbig-cookie", time.Now().Add(-time.Hour))

	// 注册不满 7 天的推广员名下单笔超 100000 的订单
	order := createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(150000),
		Status:   constants.OrderStatusPending,
	})
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("attribution_cookie_id", "fraud-newbig-cookie").Error; err != nil {
		t.Fatalf("set order cookie failed: %v", err)
	}

	result, err := svc.ScoreOrder(order.ID)
	if err != nil {
		t.Fatalf("score order failed: %v", err)
	}
	if math.Abs(result.Score-0.3) > 1e-9 {
		t.Fatalf("expected score 0.3, got %v", result.Score)
	}
	if result.Action != constants.FraudActionFlagged {
		t.Fatalf("expected flagged, got %s", result.Action)
	}
	if !containsSignal(result.Signals, "High-value order by new marketer") {
		t.Fatalf("expected high-value signal, got %v", result.Signals)
	}
}

func TestScoreMarketerSharedBankAccountBlocked(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-shared-a@example.com")
	accomplice := createServiceTestMarketer(t, db, "fraud-shared-b@example.com")
	for _, id := range []uint{marketer.ID, accomplice.ID} {
		if err := db.Model(&models.User{}).Where("id = ?", id).
			Update("account_number", "0123456789").Error; err != nil {
			t.Fatalf("set account number failed: %v", err)
		}
	}
	product := createServiceTestProduct(t, db, "fraud-shared-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudshr001")

	result, err := svc.ScoreMarketer(marketer.ID)
	if err != nil {
		t.Fatalf("score marketer failed: %v", err)
	}
	if math.Abs(result.Score-0.7) > 1e-9 {
		t.Fatalf("expected score 0.7, got %v", result.Score)
	}
	if result.Action != constants.FraudActionBlocked {
		t.Fatalf("expected blocked, got %s", result.Action)
	}

	var reloadedUser models.User
	if err := db.First(&reloadedUser, marketer.ID).Error; err != nil {
		t.Fatalf("reload marketer failed: %v", err)
	}
	if reloadedUser.Status != constants.UserStatusDisabled {
		t.Fatalf("blocked marketer must be disabled, got %s", reloadedUser.Status)
	}

	var reloadedLink models.AffiliateLink
	if err := db.First(&reloadedLink, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloadedLink.IsActive {
		t.Fatal("blocked marketer links must be deactivated")
	}
}

func TestScoreMarketerAbnormalConversionRate(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-rate@example.com")
	product := createServiceTestProduct(t, db, "fraud-rate-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudrate01")
	// 10 点击、3 笔归因订单：转化率 0.3 超过 0.2 上限。
	// 成交数以归因订单为准，链接上的 conversion_count 滞后也不影响
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", link.ID).
		Updates(map[string]interface{}{"click_count": 10, "conversion_count": 0}).Error; err != nil {
		t.Fatalf("set link stats failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		createCommissionTestOrder(t, db, commissionTestOrder{
			Product:  product,
			Marketer: &marketer,
			Link:     &link,
			Quantity: 1,
			Subtotal: decimal.NewFromInt(10000),
			Status:   constants.OrderStatusPaid,
		})
	}

	result, err := svc.ScoreMarketer(marketer.ID)
	if err != nil {
		t.Fatalf("score marketer failed: %v", err)
	}
	if math.Abs(result.Score-0.6) > 1e-9 {
		t.Fatalf("expected score 0.6, got %v", result.Score)
	}
	if result.Action != constants.FraudActionFlagged {
		t.Fatalf("expected flagged, got %s", result.Action)
	}
	if !containsSignal(result.Signals, "Abnormally high conversion rate") {
		t.Fatalf("expected conversion-rate signal, got %v", result.Signals)
	}
}

func TestScoreMarketerSmallSampleStillChecked(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-small@example.com")
	product := createServiceTestProduct(t, db, "fraud-small-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudsml001")
	// 样本再小也按比例检查：2 点击 1 单即 0.5
	if err := db.Model(&models.AffiliateLink{}).Where("id = ?", link.ID).
		Update("click_count", 2).Error; err != nil {
		t.Fatalf("set link stats failed: %v", err)
	}
	createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusPaid,
	})

	result, err := svc.ScoreMarketer(marketer.ID)
	if err != nil {
		t.Fatalf("score marketer failed: %v", err)
	}
	if math.Abs(result.Score-0.6) > 1e-9 {
		t.Fatalf("expected score 0.6, got %v", result.Score)
	}
	if !containsSignal(result.Signals, "Abnormally high conversion rate") {
		t.Fatalf("expected conversion-rate signal, got %v", result.Signals)
	}
}

func TestScoreMarketerZeroClicksSkipsRateCheck(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	marketer := createServiceTestMarketer(t, db, "fraud-zero@example.com")
	product := createServiceTestProduct(t, db, "fraud-zero-product")
	link := createServiceTestLink(t, db, marketer.ID, product.ID, "fraudzero01")
	createCommissionTestOrder(t, db, commissionTestOrder{
		Product:  product,
		Marketer: &marketer,
		Link:     &link,
		Quantity: 1,
		Subtotal: decimal.NewFromInt(10000),
		Status:   constants.OrderStatusPaid,
	})

	result, err := svc.ScoreMarketer(marketer.ID)
	if err != nil {
		t.Fatalf("score marketer failed: %v", err)
	}
	if result.Score != 0 || result.Action != constants.FraudActionNone {
		t.Fatalf("zero clicks must skip rate check, got score=%v action=%s", result.Score, result.Action)
	}
}

func TestClampScore(t *testing.T) {
	if got := clampScore(1.2); got != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", got)
	}
	if got := clampScore(-0.1); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := clampScore(0.55); got != 0.55 {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestReviewSignal(t *testing.T) {
	svc, db := setupFraudServiceTest(t)

	signal := models.FraudSignal{
		EntityType: constants.FraudEntityOrder,
		EntityID:   5,
		Score:      0.6,
		Signals:    "No attribution record found",
		Action:     constants.FraudActionFlagged,
	}
	if err := db.Create(&signal).Error; err != nil {
		t.Fatalf("create signal failed: %v", err)
	}

	reviewed, err := svc.ReviewSignal(signal.ID, 3, "verified legit buyer")
	if err != nil {
		t.Fatalf("review signal failed: %v", err)
	}
	if !reviewed.Reviewed || reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != 3 {
		t.Fatalf("expected reviewed by admin 3, got %+v", reviewed)
	}
	if reviewed.ReviewNote != "verified legit buyer" || reviewed.ReviewedAt == nil {
		t.Fatalf("expected note and timestamp, got %+v", reviewed)
	}

	if _, err := svc.ReviewSignal(99999, 3, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func setupFraudServiceTest(t *testing.T) (*FraudService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "fraud_service")
	cfg := newServiceTestConfig()
	return NewFraudService(
		cfg,
		repository.NewFraudRepository(db),
		repository.NewAffiliateRepository(db),
		repository.NewOrderRepository(db),
		repository.NewUserRepository(db),
	), db
}

func createFraudTestClick(t *testing.T, db *gorm.DB, linkID uint, clientIP, userAgent string, clickedAt time.Time) models.ClickEvent {
	t.Helper()

	row := models.ClickEvent{
		LinkID:    linkID,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		ClickedAt: clickedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create click failed: %v", err)
	}
	return row
}

func createFraudTestAttribution(t *testing.T, db *gorm.DB, linkID uint, cookieID string, createdAt time.Time) models.AttributionRecord {
	t.Helper()

	row := models.AttributionRecord{
		CookieID:         cookieID,
		FirstClickLinkID: linkID,
		LastClickLinkID:  linkID,
		ClickChain:       models.TouchChain{{LinkID: linkID, Timestamp: createdAt, Weight: 1.0}},
		ExpiresAt:        createdAt.Add(30 * 24 * time.Hour),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create attribution record failed: %v", err)
	}
	return row
}

func containsSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}
