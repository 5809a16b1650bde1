package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/linkway-core/internal/cache"
	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/constants"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/repository"

	"github.com/redis/go-redis/v9"
)

var linkCreateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// LinkService 推广链接服务
type LinkService struct {
	cfg           *config.Config
	affiliateRepo repository.AffiliateRepository
	productRepo   repository.ProductRepository
	userRepo      repository.UserRepository
}

// NewLinkService 创建推广链接服务实例
func NewLinkService(
	cfg *config.Config,
	affiliateRepo repository.AffiliateRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) *LinkService {
	return &LinkService{
		cfg:           cfg,
		affiliateRepo: affiliateRepo,
		productRepo:   productRepo,
		userRepo:      userRepo,
	}
}

// CreateLinkInput 创建推广链接入参
type CreateLinkInput struct {
	MarketerID uint
	ProductID  uint
}

// CreateLink 创建推广链接：同推广员同商品幂等返回已有链接
func (s *LinkService) CreateLink(input CreateLinkInput) (*models.AffiliateLink, error) {
	marketer, err := s.userRepo.GetByID(input.MarketerID)
	if err != nil {
		return nil, err
	}
	if marketer == nil {
		return nil, ErrNotFound
	}
	if marketer.Role != constants.UserRoleMarketer {
		return nil, ErrRoleNotMarketer
	}
	if marketer.Status == constants.UserStatusDisabled {
		return nil, ErrMarketerDisabled
	}

	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	// 幂等：已有链接直接返回，不消耗限额
	existing, err := s.affiliateRepo.GetLinkByOwner(input.MarketerID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := s.checkCreateLimit(input.MarketerID); err != nil {
		return nil, err
	}

	maxRetries := s.cfg.Affiliate.SlugMaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	for i := 0; i < maxRetries; i++ {
		slug, genErr := generateLinkSlug(s.cfg.Affiliate.SlugLength)
		if genErr != nil {
			return nil, genErr
		}
		link := &models.AffiliateLink{
			MarketerID: input.MarketerID,
			ProductID:  input.ProductID,
			Slug:       slug,
			FullURL:    s.buildFullURL(slug),
			IsActive:   true,
		}
		if err := s.affiliateRepo.CreateLink(link); err != nil {
			if isUniqueViolation(err) {
				// 短码撞库重试；归属撞库说明并发创建，返回已有链接
				owned, ownErr := s.affiliateRepo.GetLinkByOwner(input.MarketerID, input.ProductID)
				if ownErr != nil {
					return nil, ownErr
				}
				if owned != nil {
					return owned, nil
				}
				continue
			}
			return nil, err
		}
		logger.Infow("affiliate_link_created",
			"marketer_id", input.MarketerID,
			"product_id", input.ProductID,
			"slug", slug,
		)
		return link, nil
	}
	return nil, ErrSlugGenerateFailed
}

// GetLinkByID 按 ID 获取链接（校验归属）
func (s *LinkService) GetLinkByID(marketerID, linkID uint) (*models.AffiliateLink, error) {
	link, err := s.affiliateRepo.GetLinkByID(linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if marketerID > 0 && link.MarketerID != marketerID {
		return nil, ErrPermissionDenied
	}
	return link, nil
}

// ListLinks 推广链接列表
func (s *LinkService) ListLinks(filter repository.LinkListFilter) ([]models.AffiliateLink, int64, error) {
	return s.affiliateRepo.ListLinks(filter)
}

// DeactivateLink 停用链接（历史数据保留）
func (s *LinkService) DeactivateLink(marketerID, linkID uint) error {
	link, err := s.GetLinkByID(marketerID, linkID)
	if err != nil {
		return err
	}
	if !link.IsActive {
		return nil
	}
	link.IsActive = false
	return s.affiliateRepo.UpdateLink(link)
}

// MarketerDashboard 推广员工作台聚合
type MarketerDashboard struct {
	LinkCount       int64        `json:"link_count"`
	ClickCount      int64        `json:"click_count"`
	ConversionCount int64        `json:"conversion_count"`
	TotalRevenue    models.Money `json:"total_revenue"`
	TotalCommission models.Money `json:"total_commission"`
}

// GetMarketerDashboard 汇总推广员名下链接的点击、成交与金额聚合
func (s *LinkService) GetMarketerDashboard(marketerID uint) (*MarketerDashboard, error) {
	stats, err := s.affiliateRepo.SumLinkStatsByMarketer(marketerID)
	if err != nil {
		return nil, err
	}
	return &MarketerDashboard{
		LinkCount:       stats.LinkCount,
		ClickCount:      stats.ClickCount,
		ConversionCount: stats.ConversionCount,
		TotalRevenue:    stats.TotalRevenue,
		TotalCommission: stats.TotalCommission,
	}, nil
}

// checkCreateLimit 建链频率限制（Redis 不可用时放行）
func (s *LinkService) checkCreateLimit(marketerID uint) error {
	limit := s.cfg.Affiliate.LinkCreatePerHour
	if limit <= 0 || !cache.Enabled() {
		return nil
	}
	key := fmt.Sprintf("%s:affiliate:link_create:%d", s.cfg.Redis.Prefix, marketerID)
	count, err := linkCreateLimitScript.Run(context.Background(), cache.Client(), []string{key}, 3600).Int64()
	if err != nil {
		logger.Warnw("link_create_limit_check_failed", "error", err, "marketer_id", marketerID)
		return nil
	}
	if count > int64(limit) {
		return ErrLinkLimitExceeded
	}
	return nil
}

// buildFullURL 拼接对外短链接地址
func (s *LinkService) buildFullURL(slug string) string {
	base := strings.TrimRight(s.cfg.Server.PublicBaseURL, "/")
	return fmt.Sprintf("%s/r/%s", base, slug)
}

// generateLinkSlug 生成短码，去除易混淆字符
func generateLinkSlug(length int) (string, error) {
	const alphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	if length <= 0 {
		length = 12
	}
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
