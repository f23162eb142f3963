package di

import (
	"context"
	"fmt"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/internal/repository"
	"intern-portal/backend/internal/service"
	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/health"
	"intern-portal/backend/pkg/jwt"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/observability"
	"intern-portal/backend/pkg/pubsub"
	"intern-portal/backend/pkg/redis"
	"intern-portal/backend/pkg/storage"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Logger    *logger.Logger
	Telemetry *observability.Telemetry

	JWTService *jwt.Service
	Health     *health.Checker
	Storage    storage.Storage

	UserRepository    repository.UserRepository
	ProjectRepository repository.ProjectRepository
	MessageRepository repository.MessageRepository

	MembershipService *service.MembershipService
	DirectoryService  *service.DirectoryService
	MessageService    *service.MessageService
	UploadService     *service.UploadService

	Registry *chat.Registry
	Gateway  *chat.Gateway
	// Relay is set when deliveries fan out across instances over redis
	Relay *chat.RedisBroadcaster

	bus pubsub.PubSub
}

// Deps are the already-connected resources the container builds on. Redis
// and Telemetry are optional.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Telemetry *observability.Telemetry
	Logger    *logger.Logger
}

// New wires repositories, services and the chat gateway. Background loops
// owned by the container stop when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Container, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.GetGlobal()
	}

	store, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise upload storage: %w", err)
	}

	users := repository.NewGormUserRepository(deps.DB)
	projects := repository.NewGormProjectRepository(deps.DB)
	messages := repository.NewGormMessageRepository(deps.DB)

	membership := service.NewMembershipService(projects, deps.Redis, service.MembershipConfig{
		CacheTTL:         cfg.Membership.CacheTTL,
		QueryTimeout:     cfg.Membership.QueryTimeout,
		BreakerThreshold: uint(max(cfg.Membership.BreakerThreshold, 0)),
		BreakerTimeout:   cfg.Membership.BreakerTimeout,
	}, log)
	directory := service.NewDirectoryService(ctx, users, cfg.Directory.CacheTTL, cfg.Directory.CacheSize)
	messageService := service.NewMessageService(messages, cfg.Chat.HistoryLimit)
	uploads := service.NewUploadService(store, cfg.Uploads.MaxSize, log)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func(ctx context.Context) error {
		return config.TestConnection(ctx, deps.DB)
	})
	if deps.Redis != nil {
		checker.RegisterRedisCheck(deps.Redis.Ping)
	}

	metrics := observability.NoopChatMetrics()
	if deps.Telemetry != nil {
		metrics = deps.Telemetry.Metrics
	}

	registry := chat.NewRegistry()
	local := chat.NewLocalBroadcaster(registry, log, metrics)

	c := &Container{
		Config:            cfg,
		DB:                deps.DB,
		Redis:             deps.Redis,
		Logger:            log,
		Telemetry:         deps.Telemetry,
		JWTService:        jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours, cfg.JWT.Issuer),
		Health:            checker,
		Storage:           store,
		UserRepository:    users,
		ProjectRepository: projects,
		MessageRepository: messages,
		MembershipService: membership,
		DirectoryService:  directory,
		MessageService:    messageService,
		UploadService:     uploads,
		Registry:          registry,
	}

	var broadcaster chat.Broadcaster = local
	if cfg.Chat.FanoutRedis && deps.Redis != nil {
		c.bus = pubsub.NewRedisPubSub(deps.Redis.Raw(), cfg.Chat.SendBufferSize)
		c.Relay = chat.NewRedisBroadcaster(local, c.bus, log)
		broadcaster = c.Relay
	} else if cfg.Chat.FanoutRedis {
		log.Warn("CHAT_FANOUT_REDIS is set but redis is not configured, fan-out stays local")
	}

	gatewayDeps := chat.Deps{
		Registry:    registry,
		Oracle:      membership,
		Store:       messageService,
		Directory:   directory,
		Broadcaster: broadcaster,
		Logger:      log,
		Metrics:     metrics,
	}
	if deps.Telemetry != nil {
		gatewayDeps.Tracer = deps.Telemetry.Tracer
	}

	c.Gateway = chat.NewGateway(gatewayDeps, chat.Options{
		NackRejected:       cfg.Chat.NackRejected,
		HistoryOnJoin:      cfg.Chat.HistoryOnJoin,
		FallbackSenderName: cfg.Chat.FallbackSenderName,
	})

	return c, nil
}

// Start launches the container's background work: periodic health checks
// and, when enabled, the cross-instance relay.
func (c *Container) Start(ctx context.Context) {
	c.Health.Start(ctx)

	if c.Relay != nil {
		go func() {
			if err := c.Relay.Run(ctx); err != nil {
				c.Logger.LogError(err, "Chat relay stopped")
			}
		}()
	}
}

// Close releases resources the container opened itself
func (c *Container) Close() error {
	if c.bus != nil {
		return c.bus.Close()
	}
	return nil
}

// NewStorage builds the upload storage selected by UPLOAD_DRIVER
func NewStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Uploads.Driver {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Endpoint:        cfg.Uploads.S3Endpoint,
			Region:          cfg.Uploads.S3Region,
			Bucket:          cfg.Uploads.S3Bucket,
			AccessKeyID:     cfg.Uploads.S3AccessKey,
			SecretAccessKey: cfg.Uploads.S3SecretKey,
			UsePathStyle:    cfg.Uploads.S3Endpoint != "",
		})
	case "local", "":
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath:  cfg.Uploads.Dir,
			PublicURL: cfg.Uploads.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Uploads.Driver)
	}
}
