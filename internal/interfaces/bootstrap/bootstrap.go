// Package bootstrap assembles the core services shared by every command:
// config, logging, database, redis, authorization and the lifecycle
// engine.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appauthz "vulntrack/internal/application/authz"
	appfinding "vulntrack/internal/application/finding"
	appnotification "vulntrack/internal/application/notification"
	apporganization "vulntrack/internal/application/organization"
	"vulntrack/internal/application/treatment"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/infrastructure/cache"
	"vulntrack/internal/infrastructure/config"
	"vulntrack/internal/infrastructure/database"
	"vulntrack/internal/infrastructure/metrics"
	"vulntrack/internal/infrastructure/permission"
	"vulntrack/internal/infrastructure/pubsub"
	"vulntrack/internal/infrastructure/repository"
	"vulntrack/internal/shared/biztime"
	"vulntrack/internal/shared/db"
	"vulntrack/internal/shared/logger"
)

// LoadConfig reads configuration and initializes the process-wide logger
// and business timezone.
func LoadConfig(env, configPath string) (*config.Config, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, cfg.Server.Mode == "debug"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize timezone: %w", err)
	}
	return cfg, nil
}

// OpenRedis connects and pings.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

type Repositories struct {
	Policies        *repository.PolicyRepository
	GroupServices   *repository.GroupServiceRepository
	Organizations   *repository.OrganizationRepository
	Groups          *repository.GroupRepository
	Findings        *repository.FindingRepository
	Comments        *repository.CommentRepository
	Vulnerabilities *repository.VulnerabilityRepository
}

func NewRepositories(gdb *gorm.DB, log logger.Interface) *Repositories {
	return &Repositories{
		Policies:        repository.NewPolicyRepository(gdb, log),
		GroupServices:   repository.NewGroupServiceRepository(gdb, log),
		Organizations:   repository.NewOrganizationRepository(gdb, log),
		Groups:          repository.NewGroupRepository(gdb, log),
		Findings:        repository.NewFindingRepository(gdb, log),
		Comments:        repository.NewCommentRepository(gdb, log),
		Vulnerabilities: repository.NewVulnerabilityRepository(gdb, log),
	}
}

// App is the wired core. Close releases what Open acquired.
type App struct {
	Config  *config.Config
	Log     logger.Interface
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Collector

	Repos         *Repositories
	Roles         *authz.RoleModel
	Authz         *appauthz.Service
	Guards        *appauthz.Guards
	Queue         *pubsub.RedisTaskQueue
	Dispatcher    *appnotification.Dispatcher
	Engine        *treatment.Engine
	Findings      *appfinding.Service
	Organizations *apporganization.Service
}

// Open connects to the database and redis and wires every core service.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.NewLogger()

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb := database.Get()

	client, err := OpenRedis(ctx, cfg)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	app, err := Wire(cfg, gdb, client, log)
	if err != nil {
		_ = client.Close()
		_ = database.Close()
		return nil, err
	}
	return app, nil
}

// Wire builds the services on top of already opened connections.
func Wire(cfg *config.Config, gdb *gorm.DB, client *redis.Client, log logger.Interface) (*App, error) {
	roles, err := authz.NewRoleModel(cfg.Authz.StaffEmailDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to load role model: %w", err)
	}

	collector := metrics.New()
	repos := NewRepositories(gdb, log)
	ttl := time.Duration(cfg.Authz.CacheTTLHours) * time.Hour

	resolver := appauthz.NewPolicyResolver(repos.Policies, cache.NewRedisPolicyCache(client, log), ttl, collector, log)
	serviceResolver := appauthz.NewServiceResolver(repos.GroupServices, cache.NewRedisGroupServiceCache(client, log), ttl, collector, log)
	factory := appauthz.NewEnforcerFactory(resolver, roles, permission.NewEvaluator(log), log)
	authzSvc := appauthz.NewService(repos.Policies, repos.GroupServices, resolver, serviceResolver, factory, roles, collector, log)

	queue := pubsub.NewRedisTaskQueue(client, log)
	dispatcher := appnotification.NewDispatcher(queue,
		time.Duration(cfg.Notification.EnqueueTimeoutSeconds)*time.Second, log)

	tx := db.NewTransactionManager(gdb)
	engine := treatment.NewEngine(
		treatment.Repositories{
			Vulnerabilities: repos.Vulnerabilities,
			Findings:        repos.Findings,
			Comments:        repos.Comments,
			Organizations:   repos.Organizations,
			Groups:          repos.Groups,
		},
		tx,
		authzSvc,
		dispatcher,
		treatment.Config{
			MaxJustificationLength: cfg.Treatment.MaxJustificationLength,
			ManagerRoles:           roles.RolesWithTag(authz.LevelGroup, "manager"),
			StakeholderRoles:       roles.RolesWithTag(authz.LevelGroup, "can_receive_mails"),
		},
		log.Named("treatment"),
		treatment.WithMetrics(collector),
	)

	return &App{
		Config:        cfg,
		Log:           log,
		DB:            gdb,
		Redis:         client,
		Metrics:       collector,
		Repos:         repos,
		Roles:         roles,
		Authz:         authzSvc,
		Guards:        appauthz.NewGuards(authzSvc),
		Queue:         queue,
		Dispatcher:    dispatcher,
		Engine:        engine,
		Findings:      appfinding.NewService(repos.Findings, repos.Vulnerabilities, repos.Groups, tx, authzSvc, log.Named("finding")),
		Organizations: apporganization.NewService(repos.Organizations, repos.Groups, authzSvc, log.Named("organization")),
	}, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warnw("failed to close redis", "error", err)
		}
	}
	if err := database.Close(); err != nil {
		a.Log.Warnw("failed to close database", "error", err)
	}
}
