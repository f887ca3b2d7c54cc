package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/language"
	"codejudge/internal/judge/repository"
	sandboxdocker "codejudge/internal/judge/sandbox/docker"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/logger"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	catalog, err := buildCatalog(appCfg.Language)
	if err != nil {
		logger.Error(context.Background(), "init language catalog failed", zap.Error(err))
		return
	}

	runner, err := sandboxdocker.NewRunner(appCfg.Sandbox.toRunnerConfig(catalog))
	if err != nil {
		logger.Error(context.Background(), "init sandbox runner failed", zap.Error(err))
		return
	}
	defer func() {
		_ = runner.Close()
	}()
	if appCfg.Sandbox.PullImages {
		if err := runner.EnsureImages(context.Background()); err != nil {
			logger.Error(context.Background(), "pull execution images failed", zap.Error(err))
			return
		}
	}

	var redisCache cache.Cache
	if appCfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = rc.Close()
		}()
		redisCache = rc
	}

	tasks, err := buildTaskRepository(appCfg, redisCache)
	if err != nil {
		logger.Error(context.Background(), "init task repository failed", zap.Error(err))
		return
	}

	var verdicts *repository.VerdictRepository
	if redisCache != nil {
		verdicts = repository.NewVerdictRepository(redisCache, appCfg.Judge.VerdictTTL)
	}

	var submissions *repository.SubmissionRepository
	if appCfg.Database.DSN != "" {
		mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
		if err != nil {
			logger.Error(context.Background(), "init database failed", zap.Error(err))
			return
		}
		defer func() {
			_ = mysqlDB.Close()
		}()
		submissions = repository.NewSubmissionRepository(mysqlDB)
	}

	var mqClient *mq.KafkaQueue
	var publisher repository.ResultEventPublisher
	if len(appCfg.Kafka.Brokers) > 0 {
		mqClient, err = mq.NewKafkaQueue(appCfg.Kafka.toMQConfig())
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = mqClient.Close()
		}()
		publisher = repository.NewMQResultEventPublisher(mqClient, appCfg.Kafka.ResultTopic)
	}

	judgeSvc, err := service.NewService(service.Config{
		Runner:          runner,
		Catalog:         catalog,
		Tasks:           tasks,
		Verdicts:        verdicts,
		Submissions:     submissions,
		Publisher:       publisher,
		MaxCodeBytes:    appCfg.Judge.MaxCodeBytes,
		WorkerPoolSize:  appCfg.Worker.PoolSize,
		SlotWaitTimeout: appCfg.Worker.SlotWait,
	})
	if err != nil {
		logger.Error(context.Background(), "init judge service failed", zap.Error(err))
		return
	}

	if mqClient != nil {
		err = mqClient.Subscribe(context.Background(), appCfg.Kafka.EvaluateTopic, judgeSvc.HandleMessage, &mq.SubscribeOptions{
			ConsumerGroup:   appCfg.Kafka.ConsumerGroup,
			Concurrency:     appCfg.Kafka.Concurrency,
			MaxRetries:      appCfg.Kafka.MaxRetries,
			RetryDelay:      appCfg.Kafka.RetryDelay,
			DeadLetterTopic: appCfg.Kafka.DeadLetter,
		})
		if err != nil {
			logger.Error(context.Background(), "subscribe kafka failed", zap.Error(err))
			return
		}
		if err := mqClient.Start(); err != nil {
			logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
			return
		}
	}

	httpServer := buildHTTPServer(appCfg.Server, judgeSvc, runner)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	if mqClient != nil {
		_ = mqClient.Stop()
	}
}

func buildCatalog(cfg LanguageConfig) (*language.Catalog, error) {
	if len(cfg.Languages) == 0 {
		return language.DefaultCatalog(), nil
	}
	return language.NewCatalog(cfg.Languages)
}

func buildTaskRepository(cfg *AppConfig, redisCache cache.Cache) (repository.TaskRepository, error) {
	var inner repository.TaskRepository
	switch cfg.Tasks.Source {
	case "minio":
		objStorage, err := storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		inner = repository.NewObjectTaskRepository(objStorage, cfg.Tasks.Bucket, cfg.Tasks.Prefix)
	default:
		local, err := repository.NewLocalTaskRepository(cfg.Tasks.Dir)
		if err != nil {
			return nil, err
		}
		inner = local
	}
	if redisCache != nil {
		return repository.NewCachedTaskRepository(inner, redisCache, cfg.Tasks.CacheTTL, cfg.Tasks.EmptyCacheTTL), nil
	}
	return inner, nil
}

func buildHTTPServer(cfg ServerConfig, judgeSvc *service.Service, runner *sandboxdocker.Runner) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		if err := runner.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	controller.NewJudgeController(judgeSvc).RegisterRoutes(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
