package service

import (
	"strings"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/shopspring/decimal"
)

// 爬虫 UA 特征子串
var botUserAgentMarkers = []string{
	"bot", "crawler", "spider", "scraper", "curl", "wget",
	"python-requests", "java", "scrapy",
}

// 点击频次窗口
const (
	clickSameLinkWindow    = 5 * time.Minute
	clickSameLinkThreshold = 5
	clickIPBurstWindow     = time.Minute
	clickIPBurstThreshold  = 10
)

// 订单信号窗口
const (
	instantConversionWindow   = 10 * time.Second
	coordinatedOrderWindow    = 24 * time.Hour
	coordinatedOrderThreshold = 3
)

// FraudService 反作弊评分服务
type FraudService struct {
	cfg           *config.Config
	fraudRepo     repository.FraudRepository
	affiliateRepo repository.AffiliateRepository
	orderRepo     repository.OrderRepository
	userRepo      repository.UserRepository
}

// NewFraudService 创建反作弊评分服务实例
func NewFraudService(
	cfg *config.Config,
	fraudRepo repository.FraudRepository,
	affiliateRepo repository.AffiliateRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
) *FraudService {
	return &FraudService{
		cfg:           cfg,
		fraudRepo:     fraudRepo,
		affiliateRepo: affiliateRepo,
		orderRepo:     orderRepo,
		userRepo:      userRepo,
	}
}

// FraudResult 单次评分结果
type FraudResult struct {
	EntityType string   `json:"entity_type"`
	EntityID   uint     `json:"entity_id"`
	Score      float64  `json:"score"`
	Signals    []string `json:"signals"`
	Action     string   `json:"action"`
}

// ScoreClick 对点击事件评分并回写风控标记
func (s *FraudService) ScoreClick(clickID uint) (*FraudResult, error) {
	click, err := s.affiliateRepo.GetClickByID(clickID)
	if err != nil {
		return nil, err
	}
	if click == nil {
		return &FraudResult{EntityType: constants.FraudEntityClick, EntityID: clickID, Action: constants.FraudActionNone}, nil
	}

	score := 0.0
	var signals []string

	sameLink, err := s.affiliateRepo.CountClicksByIPAndLink(click.ClientIP, click.LinkID, click.ClickedAt.Add(-clickSameLinkWindow))
	if err != nil {
		return nil, err
	}
	if sameLink > clickSameLinkThreshold {
		score += 0.4
		signals = append(signals, "Click spam from same IP")
	}

	ipBurst, err := s.affiliateRepo.CountClicksByIP(click.ClientIP, click.ClickedAt.Add(-clickIPBurstWindow))
	if err != nil {
		return nil, err
	}
	if ipBurst > clickIPBurstThreshold {
		score += 0.3
		signals = append(signals, "Impossible click velocity")
	}

	isBot := isBotUserAgent(click.UserAgent)
	if isBot {
		score += 0.5
		signals = append(signals, "Bot user agent detected")
	}

	score = clampScore(score)
	result := s.finishResult(constants.FraudEntityClick, click.ID, score, signals)

	if score > 0 {
		suspicious := score >= s.cfg.Fraud.FlagThreshold
		if err := s.affiliateRepo.UpdateClickFraud(click.ID, isBot, suspicious, score); err != nil {
			return nil, err
		}
	}

	if err := s.audit(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ScoreOrder 对订单评分；评分达到拦截阈值时取消订单
func (s *FraudService) ScoreOrder(orderID uint) (*FraudResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return &FraudResult{EntityType: constants.FraudEntityOrder, EntityID: orderID, Action: constants.FraudActionNone}, nil
	}

	score := 0.0
	var signals []string

	// 有无归因以记录是否存在为准，而非是否计佣：
	// 自购、已转化 cookie 的订单都有归因记录，不算无归因
	var record *models.AttributionRecord
	if order.AttributionCookieID != "" {
		record, err = s.affiliateRepo.GetAttributionByCookie(order.AttributionCookieID)
		if err != nil {
			return nil, err
		}
	}
	if record == nil {
		score += 0.6
		signals = append(signals, "No attribution record found")
	} else {
		if order.CreatedAt.Sub(record.CreatedAt) < instantConversionWindow {
			score += 0.5
			signals = append(signals, "Suspiciously fast conversion")
		}

		coordinated, err := s.hasCoordinatedOrders(order)
		if err != nil {
			return nil, err
		}
		if coordinated {
			score += 0.4
			signals = append(signals, "Multiple orders from same IP")
		}

		if order.MarketerID != nil {
			largeNew, err := s.isNewMarketerLargeVolume(order)
			if err != nil {
				return nil, err
			}
			if largeNew {
				score += 0.3
				signals = append(signals, "High-value order by new marketer")
			}
		}
	}

	score = clampScore(score)
	result := s.finishResult(constants.FraudEntityOrder, order.ID, score, signals)

	if result.Action == constants.FraudActionBlocked {
		now := time.Now()
		order.Status = constants.OrderStatusCancelled
		order.CancelledAt = &now
		if err := s.orderRepo.Update(order); err != nil {
			return nil, err
		}
		logger.Warnw("fraud_order_blocked", "order_id", order.ID, "score", score, "signals", result.Signals)
	}

	if err := s.audit(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ScoreMarketer 对推广员评分；评分达到拦截阈值时禁用账号并停用其链接
func (s *FraudService) ScoreMarketer(marketerID uint) (*FraudResult, error) {
	marketer, err := s.userRepo.GetByID(marketerID)
	if err != nil {
		return nil, err
	}
	if marketer == nil || marketer.Role != constants.UserRoleMarketer {
		return &FraudResult{EntityType: constants.FraudEntityMarketer, EntityID: marketerID, Action: constants.FraudActionNone}, nil
	}

	score := 0.0
	var signals []string

	if marketer.AccountNumber != "" {
		shared, err := s.userRepo.ExistsByAccountNumberExcluding(marketer.AccountNumber, marketer.ID)
		if err != nil {
			return nil, err
		}
		if shared {
			score += 0.7
			signals = append(signals, "Bank account used by multiple marketers")
		}
	}

	clicks, conversions, err := s.affiliateRepo.CountConversionsByMarketer(marketerID)
	if err != nil {
		return nil, err
	}
	if clicks > 0 {
		rate := float64(conversions) / float64(clicks)
		if rate > s.cfg.Fraud.ConversionRateCeiling {
			score += 0.6
			signals = append(signals, "Abnormally high conversion rate")
		}
	}

	score = clampScore(score)
	result := s.finishResult(constants.FraudEntityMarketer, marketer.ID, score, signals)

	if result.Action == constants.FraudActionBlocked {
		if err := s.userRepo.BatchUpdateStatus([]uint{marketer.ID}, constants.UserStatusDisabled); err != nil {
			return nil, err
		}
		if err := s.affiliateRepo.DisableLinksByMarketer(marketer.ID); err != nil {
			return nil, err
		}
		logger.Warnw("fraud_marketer_blocked", "marketer_id", marketer.ID, "score", score, "signals", result.Signals)
	}

	if err := s.audit(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSignals 风控记录列表
func (s *FraudService) ListSignals(filter repository.FraudSignalListFilter) ([]models.FraudSignal, int64, error) {
	return s.fraudRepo.ListSignals(filter)
}

// ReviewSignal 人工复核风控记录
func (s *FraudService) ReviewSignal(signalID, adminID uint, note string) (*models.FraudSignal, error) {
	signal, err := s.fraudRepo.GetSignalByID(signalID)
	if err != nil {
		return nil, err
	}
	if signal == nil {
		return nil, ErrNotFound
	}
	now := time.Now()
	signal.Reviewed = true
	signal.ReviewedBy = &adminID
	signal.ReviewedAt = &now
	signal.ReviewNote = note
	if err := s.fraudRepo.UpdateSignal(signal); err != nil {
		return nil, err
	}
	return signal, nil
}

// hasCoordinatedOrders 订单是否与同源 IP 下的 cookie 集合在窗口内集中成单
func (s *FraudService) hasCoordinatedOrders(order *models.Order) (bool, error) {
	if order.AttributionCookieID == "" {
		return false, nil
	}
	ip, err := s.affiliateRepo.GetEarliestClickIPByCookie(order.AttributionCookieID)
	if err != nil || ip == "" {
		return false, err
	}
	cookieIDs, err := s.affiliateRepo.ListCookieIDsByIP(ip)
	if err != nil {
		return false, err
	}
	count, err := s.orderRepo.CountDistinctByCookiesSince(cookieIDs, time.Now().Add(-coordinatedOrderWindow))
	if err != nil {
		return false, err
	}
	return count > coordinatedOrderThreshold, nil
}

// isNewMarketerLargeVolume 新注册推广员名下是否出现单笔大额订单
func (s *FraudService) isNewMarketerLargeVolume(order *models.Order) (bool, error) {
	marketer, err := s.userRepo.GetByID(*order.MarketerID)
	if err != nil || marketer == nil {
		return false, err
	}
	newWindow := time.Duration(s.cfg.Fraud.NewMarketerDays) * 24 * time.Hour
	if time.Since(marketer.CreatedAt) >= newWindow {
		return false, nil
	}
	threshold, err := decimal.NewFromString(s.cfg.Fraud.LargeOrderAmount)
	if err != nil {
		return false, err
	}
	return order.TotalAmount.Decimal.GreaterThan(threshold), nil
}

// finishResult 按阈值折算处理动作
func (s *FraudService) finishResult(entityType string, entityID uint, score float64, signals []string) *FraudResult {
	action := constants.FraudActionNone
	switch {
	case score >= s.cfg.Fraud.BlockThreshold:
		action = constants.FraudActionBlocked
	case score >= s.cfg.Fraud.FlagThreshold:
		action = constants.FraudActionFlagged
	}
	return &FraudResult{
		EntityType: entityType,
		EntityID:   entityID,
		Score:      score,
		Signals:    signals,
		Action:     action,
	}
}

// audit 写入一条评分审计记录
func (s *FraudService) audit(result *FraudResult) error {
	signalText := "none"
	if len(result.Signals) > 0 {
		signalText = strings.Join(result.Signals, ",")
	}
	return s.fraudRepo.CreateSignal(&models.FraudSignal{
		EntityType: result.EntityType,
		EntityID:   result.EntityID,
		Score:      result.Score,
		Signals:    signalText,
		Indicators: models.JSON{
			"signals":   result.Signals,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		Action: result.Action,
	})
}

func isBotUserAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range botUserAgentMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

func clampScore(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}
