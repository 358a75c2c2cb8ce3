package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"dexingest/internal/chain"
	"dexingest/internal/config"
	cronrunner "dexingest/internal/cron"
	"dexingest/internal/db"
	"dexingest/internal/handler"
	"dexingest/internal/logger"
	"dexingest/internal/middleware"
	gormrepository "dexingest/internal/repository/gorm"
	"dexingest/internal/service"
	"dexingest/internal/stream"
	"dexingest/internal/webhook"
)

func main() {
	cfgPath := os.Getenv("DEX_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DEX_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	if cfg.Webhook.SkipVerify {
		logger.Warn("webhook signature verification is DISABLED; never run this way in a deployed environment")
	}
	processor := &webhook.Processor{
		Repo: store,
		Verifier: &webhook.SignatureVerifier{
			Secret:     cfg.Webhook.SigningSecret,
			SkipVerify: cfg.Webhook.SkipVerify,
			Logger:     logger,
		},
		Decoder: chain.NewDecoder(cfg.Chain.OrderBookAddresses),
		Logger:  logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(middleware.RequestLog(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	webhookHandler := &handler.WebhookHandler{
		Processor: processor,
		Chain:     cfg.Chain,
		Logger:    logger,
	}
	webhookHandler.Register(engine)
	ordersHandler := &handler.OrdersHandler{Repo: store}
	ordersHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := &service.ExpirySweepService{
		Repo:   store,
		Config: cfg.Sweeper,
		Logger: logger,
	}
	_ = sweeper.RunOnce(ctx)

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("expiry_sweep", cfg.Cron.ExpirySweep, func(ctx context.Context) {
			_ = sweeper.RunOnce(ctx)
		}); err != nil {
			logger.Warn("cron register expiry sweep failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Stream.Enabled {
		logStream := stream.New(stream.Options{
			URL:        cfg.Stream.URL,
			Addresses:  cfg.Chain.OrderBookAddresses,
			BackoffMin: cfg.Stream.BackoffMin,
			BackoffMax: cfg.Stream.BackoffMax,
			Logger:     logger,
		})
		go func() {
			err := logStream.Run(ctx, func(lg chain.RawLog) {
				if err := processor.IngestLog(ctx, lg); err != nil {
					logger.Warn("stream log ingest failed",
						zap.String("tx_hash", lg.TxHash),
						zap.Uint("log_index", lg.LogIndex),
						zap.Error(err),
					)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("log stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Alchemy-Signature")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
