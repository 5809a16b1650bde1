package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttributionService 点击归因服务
type AttributionService struct {
	cfg           *config.Config
	affiliateRepo repository.AffiliateRepository
	productRepo   repository.ProductRepository
	fraudService  *FraudService
}

// NewAttributionService 创建点击归因服务实例
func NewAttributionService(
	cfg *config.Config,
	affiliateRepo repository.AffiliateRepository,
	productRepo repository.ProductRepository,
	fraudService *FraudService,
) *AttributionService {
	return &AttributionService{
		cfg:           cfg,
		affiliateRepo: affiliateRepo,
		productRepo:   productRepo,
		fraudService:  fraudService,
	}
}

// RecordClickInput 点击记录入参
type RecordClickInput struct {
	Slug      string
	CookieID  string
	SessionID string
	ClientIP  string
	UserAgent string
	Referrer  string
}

// RecordClickResult 点击记录结果
type RecordClickResult struct {
	Click       *models.ClickEvent
	Link        *models.AffiliateLink
	CookieID    string
	RedirectURL string
}

// RecordClick 处理短链接点击：写点击事件、滚动归因记录并返回落地页地址。
// 链接失效或过期时返回对应错误，调用方决定回退跳转。
func (s *AttributionService) RecordClick(input RecordClickInput) (*RecordClickResult, error) {
	link, err := s.affiliateRepo.GetLinkBySlug(strings.TrimSpace(input.Slug))
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if !link.IsActive {
		return nil, ErrLinkInactive
	}
	now := time.Now()
	if link.ExpiresAt != nil && link.ExpiresAt.Before(now) {
		return nil, ErrLinkExpired
	}

	cookieID := strings.TrimSpace(input.CookieID)
	if cookieID == "" {
		cookieID = uuid.NewString()
	}

	redirectURL, err := s.buildLandingURL(link)
	if err != nil {
		return nil, err
	}

	click := &models.ClickEvent{
		LinkID:     link.ID,
		ClientIP:   input.ClientIP,
		UserAgent:  input.UserAgent,
		Referrer:   input.Referrer,
		LandingURL: redirectURL,
		SessionID:  input.SessionID,
		CookieID:   cookieID,
		ClickedAt:  now,
	}

	err = s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.affiliateRepo.WithTx(tx)
		if err := repo.CreateClick(click); err != nil {
			return err
		}
		if err := repo.IncrementLinkClick(link.ID, now); err != nil {
			return err
		}
		return s.touchAttribution(repo, cookieID, input.SessionID, link.ID, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("affiliate_click_recorded",
		"link_id", link.ID,
		"slug", link.Slug,
		"cookie_id", cookieID,
		"client_ip", input.ClientIP,
	)

	// 落库后同步评分，回写 is_bot/is_suspicious/fraud_score；评分失败不影响点击
	if s.fraudService != nil {
		if _, err := s.fraudService.ScoreClick(click.ID); err != nil {
			logger.Warnw("click_fraud_score_failed", "click_id", click.ID, "error", err)
		}
	}

	return &RecordClickResult{
		Click:       click,
		Link:        link,
		CookieID:    cookieID,
		RedirectURL: redirectURL,
	}, nil
}

// touchAttribution 滚动归因记录：首触不可变、末触覆盖、触点链追加、有效期顺延。
// 已转化的记录冻结，后续点击只记点击事件，不再改写归因。
func (s *AttributionService) touchAttribution(repo repository.AffiliateRepository, cookieID, sessionID string, linkID uint, now time.Time) error {
	expiresAt := now.Add(time.Duration(s.cfg.Affiliate.CookieTTLDays) * 24 * time.Hour)
	touch := models.Touch{LinkID: linkID, Timestamp: now, Weight: 1.0}

	record, err := repo.GetAttributionByCookieForUpdate(cookieID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &models.AttributionRecord{
			CookieID:         cookieID,
			SessionID:        sessionID,
			FirstClickLinkID: linkID,
			LastClickLinkID:  linkID,
			AttributionModel: constants.AttributionModelLastClick,
			ClickChain:       models.TouchChain{touch},
			ExpiresAt:        expiresAt,
		}
		if err := repo.CreateAttribution(record); err != nil {
			if isUniqueViolation(err) {
				// 并发首触，重读后按已有记录追加
				record, err = repo.GetAttributionByCookieForUpdate(cookieID)
				if err != nil {
					return err
				}
				if record == nil {
					return ErrNotFound
				}
			} else {
				return err
			}
		} else {
			return nil
		}
	}

	if record.Converted {
		return nil
	}

	record.LastClickLinkID = linkID
	record.ClickChain = append(record.ClickChain, touch)
	record.ExpiresAt = expiresAt
	if sessionID != "" {
		record.SessionID = sessionID
	}
	return repo.UpdateAttribution(record)
}

// ResolveCredit 下单时解析归因：返回应得佣金的推广链接，无归因时返回 nil。
// 已转化的记录不再计佣，但记录本身返回给调用方留痕。
// 过期时间仅作数据口径提示，不在此处拦截。
func (s *AttributionService) ResolveCredit(cookieID string) (*models.AttributionRecord, *models.AffiliateLink, error) {
	cookieID = strings.TrimSpace(cookieID)
	if cookieID == "" {
		return nil, nil, nil
	}
	record, err := s.affiliateRepo.GetAttributionByCookie(cookieID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}
	if record.Converted {
		return record, nil, nil
	}
	link, err := s.affiliateRepo.GetLinkByID(record.LastClickLinkID)
	if err != nil {
		return nil, nil, err
	}
	if link == nil || !link.IsActive {
		return record, nil, nil
	}
	return record, link, nil
}

// MarkConverted 订单成立后冻结归因记录
func (s *AttributionService) MarkConverted(tx *gorm.DB, cookieID string, orderID uint) error {
	repo := s.affiliateRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	record, err := repo.GetAttributionByCookieForUpdate(cookieID)
	if err != nil {
		return err
	}
	if record == nil || record.Converted {
		return nil
	}
	now := time.Now()
	record.Converted = true
	record.ConvertedAt = &now
	record.OrderID = &orderID
	return repo.UpdateAttribution(record)
}

// GetAttribution 按 cookie 查询归因记录
func (s *AttributionService) GetAttribution(cookieID string) (*models.AttributionRecord, error) {
	return s.affiliateRepo.GetAttributionByCookie(cookieID)
}

// buildLandingURL 拼接商品落地页地址（带 ref 参数以便前端回显）
func (s *AttributionService) buildLandingURL(link *models.AffiliateLink) (string, error) {
	product, err := s.productRepo.GetByID(link.ProductID)
	if err != nil {
		return "", err
	}
	if product == nil {
		return "", ErrProductNotFound
	}
	base := strings.TrimRight(s.cfg.Server.FrontendBaseURL, "/")
	return fmt.Sprintf("%s/products/%s?ref=%s", base, product.Slug, link.Slug), nil
}

// FallbackURL 链接不可用时的回退跳转地址
func (s *AttributionService) FallbackURL() string {
	return strings.TrimRight(s.cfg.Server.FrontendBaseURL, "/")
}
