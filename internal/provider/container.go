package provider

import (
	"github.com/linkway-core/internal/authz"
	"github.com/linkway-core/internal/cache"
	"github.com/linkway-core/internal/config"
	"github.com/linkway-core/internal/logger"
	"github.com/linkway-core/internal/models"
	"github.com/linkway-core/internal/queue"
	"github.com/linkway-core/internal/repository"
	"github.com/linkway-core/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	UserRepo          repository.UserRepository
	ProductRepo       repository.ProductRepository
	OrderRepo         repository.OrderRepository
	AffiliateRepo     repository.AffiliateRepository
	CommissionRepo    repository.CommissionRepository
	PayoutRepo        repository.PayoutRepository
	FraudRepo         repository.FraudRepository
	UserLoginLogRepo  repository.UserLoginLogRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	EmailService        *service.EmailService
	CaptchaService      *service.CaptchaService
	ProductService      *service.ProductService
	LinkService         *service.LinkService
	AttributionService  *service.AttributionService
	FraudService        *service.FraudService
	CommissionService   *service.CommissionService
	PayoutService       *service.PayoutService
	OrderService        *service.OrderService
	UserLoginLogService *service.UserLoginLogService
	AuthzAuditService   *service.AuthzAuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.FraudRepo = repository.NewFraudRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.LinkService = service.NewLinkService(c.Config, c.AffiliateRepo, c.ProductRepo, c.UserRepo)
	c.FraudService = service.NewFraudService(c.Config, c.FraudRepo, c.AffiliateRepo, c.OrderRepo, c.UserRepo)
	c.AttributionService = service.NewAttributionService(c.Config, c.AffiliateRepo, c.ProductRepo, c.FraudService)
	c.CommissionService = service.NewCommissionService(c.Config, c.CommissionRepo, c.OrderRepo, c.ProductRepo, c.AffiliateRepo)
	c.PayoutService = service.NewPayoutService(c.Config, c.PayoutRepo, c.CommissionRepo, c.OrderRepo, c.UserRepo, c.FraudRepo, c.QueueClient)
	c.OrderService = service.NewOrderService(c.Config, c.OrderRepo, c.ProductRepo, c.UserRepo, c.AttributionService, c.FraudService, c.QueueClient)
	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
}
