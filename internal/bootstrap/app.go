package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"applykit-backend/internal/account"
	"applykit-backend/internal/extract"
	"applykit-backend/internal/gate"
	"applykit-backend/internal/generation"
	"applykit-backend/internal/jobmeta"
	"applykit-backend/internal/kits"
	"applykit-backend/internal/llm"
	"applykit-backend/internal/llm/openai"
	"applykit-backend/internal/pipeline"
	"applykit-backend/internal/queue"
	"applykit-backend/internal/services/health"
	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/server"
	"applykit-backend/internal/shared/storage/db"
	"applykit-backend/internal/shared/storage/object"
	localstore "applykit-backend/internal/shared/storage/object/local"
	miniostore "applykit-backend/internal/shared/storage/object/minio"
	s3store "applykit-backend/internal/shared/storage/object/s3"
	"applykit-backend/internal/shared/telemetry"
)

const redisPingTimeout = 3 * time.Second

// App holds shared dependencies and the HTTP router.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Redis        redis.UniversalClient
	Store        object.Store
	Queue        *queue.SQSClient
	LLM          llm.Completer
	Health       *health.Service
	Gate         *gate.Service
	Extractor    *jobmeta.Extractor
	Orchestrator *generation.Orchestrator
	Kits         *kits.Service
	Pipeline     *pipeline.Service
	Account      *account.Service
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := buildRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	completer, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  redisClient,
		Store:  store,
		Queue:  queueClient,
		LLM:    completer,
		Health: health.NewService(),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		Health:            app.Health,
		GateHandler:       gate.NewHandler(app.Gate),
		JobMetaHandler:    jobmeta.NewHandler(app.Extractor),
		GenerationHandler: generation.NewHandler(app.Orchestrator),
		KitsHandler:       kits.NewHandler(app.Kits),
		PipelineHandler:   pipeline.NewHandler(app.Pipeline),
		ExtractHandler:    extract.NewHandler(),
		AccountHandler:    account.NewHandler(app.Account),
	})

	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil && db.OwnsPool(db.RuntimeRole()) {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RuntimeRole())
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

// buildRedis returns nil when REDIS_URL is unset. An unreachable server is
// logged but kept: the gate fails open while Redis is down.
func buildRedis(ctx context.Context, cfg config.Config) (redis.UniversalClient, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		telemetry.Warn("bootstrap.redis_unreachable", map[string]any{"error": err.Error()})
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (*queue.SQSClient, error) {
	if strings.TrimSpace(cfg.MirrorQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.MirrorQueueURL)
}

// buildLLM returns a client whose calls fail with llm.ErrNotConfigured when
// no API key is set outside production.
func buildLLM(cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "", "openai":
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": cfg.LLMProvider})
			return llm.NewClient(nil), nil
		}
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	transport, err := openai.NewTransport(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewClient(transport), nil
}

func buildGate(app *App) (*gate.Service, error) {
	mode := app.Config.GateStore
	if mode == "" {
		switch {
		case app.Redis != nil:
			mode = "redis"
		case app.DB != nil:
			mode = "postgres"
		default:
			mode = "memory"
		}
	}
	switch mode {
	case "redis":
		if app.Redis == nil {
			return nil, fmt.Errorf("GATE_STORE=redis requires REDIS_URL")
		}
		return gate.NewStoreService(gate.NewRedisStore(app.Redis, 0)), nil
	case "postgres":
		if app.DB == nil {
			return nil, fmt.Errorf("GATE_STORE=postgres requires DATABASE_URL")
		}
		return gate.NewStoreService(gate.NewPGStore(app.DB)), nil
	default:
		return gate.NewService(), nil
	}
}

func buildServices(app *App) error {
	gateSvc, err := buildGate(app)
	if err != nil {
		return err
	}

	var kitRepo kits.Repo
	if app.DB != nil {
		kitRepo = &kits.PGRepo{DB: app.DB}
		app.Health.Register("postgres", app.DB.PingContext)
	} else {
		kitRepo = kits.NewMemoryRepo()
	}
	if app.Redis != nil {
		client := app.Redis
		app.Health.Register("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}

	kitSvc := &kits.Service{Repo: kitRepo, Store: app.Store}
	if app.Queue != nil {
		kitSvc.Queue = app.Queue
	}

	extractor := jobmeta.NewExtractor(app.LLM)
	orchestrator := generation.NewOrchestrator(app.LLM, generation.WithCallTimeout(app.Config.GenerationTimeout))

	app.Gate = gateSvc
	app.Extractor = extractor
	app.Orchestrator = orchestrator
	app.Kits = kitSvc
	app.Account = account.NewService(kitRepo)
	app.Pipeline = &pipeline.Service{
		Gate:      gateSvc,
		Extractor: extractor,
		Generator: orchestrator,
		Kits:      kitSvc,
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
