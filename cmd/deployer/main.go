package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contract_deployer/internal/app/provider"
	"contract_deployer/internal/app/service"
	"contract_deployer/internal/infrastructure/configloader"
	"contract_deployer/internal/infrastructure/httpclient"
	networkclient "contract_deployer/internal/infrastructure/network/client"
	networkdefinition "contract_deployer/internal/infrastructure/network/definition"
	"contract_deployer/internal/infrastructure/restapi"
	"contract_deployer/internal/pkg/logger"
	"contract_deployer/internal/pkg/metrics"
	"contract_deployer/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := utils.GetEnv("CONFIG_PATH", configloader.DefaultConfigPath)
	cfg, err := configloader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}
	configloader.ApplyEnvRPCOverrides(cfg, networkdefinition.KnownKeys())

	zapLogger, err := newZapLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	logger.InitZap(zapLogger, cfg.Logging.Level)
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info("Contract deployer starting", "config", configPath)

	appLogger := logger.NewSlogAdapter()
	metrics.MustRegisterMetrics()

	registry, err := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks.RPCOverrides)
	if err != nil {
		logger.Fatal("Failed to build network registry", "error", err)
	}

	receiptClients := networkclient.NewEVMClientProvider(cfg.RpcClient, appLogger)
	defer receiptClients.Close()

	wallet, err := networkclient.NewWalletClient(ctx, cfg.Wallet.Endpoint, registry, receiptClients, cfg.RpcClient, appLogger)
	if err != nil {
		logger.Fatal("Failed to initialize wallet client", "endpoint", cfg.Wallet.Endpoint, "error", err)
	}
	defer wallet.Close()

	compiler := httpclient.NewCompilerClient(cfg.Compiler, zapLogger)

	tables, err := provider.NewMetricTableProvider(cfg.Recommendation.MetricsFile, service.DefaultMetricTable(), appLogger)
	if err != nil {
		logger.Fatal("Failed to load metric table", "file", cfg.Recommendation.MetricsFile, "error", err)
	}
	engine, err := service.NewRecommendationEngine(tables, registry, appLogger)
	if err != nil {
		logger.Fatal("Failed to initialize recommendation engine", "error", err)
	}

	sessions := service.NewSessionStore(registry, wallet, appLogger, cfg.Session.TTL())

	if interval := cfg.Wallet.WatchInterval(); interval > 0 {
		watcher := networkclient.NewChainWatcher(wallet, sessions, interval, appLogger)
		go watcher.Run(ctx)
	} else {
		logger.Info("Wallet chain watcher disabled; chain changes arrive through the API only")
	}

	// Signing waits on the user, so an attempt may take up to twice the receipt timeout.
	deployTimeout := 2 * cfg.RpcClient.ReceiptTimeout()
	handler := restapi.NewDeployerHandler(ctx, registry, sessions, wallet, compiler, engine, deployTimeout, appLogger)

	router := restapi.SetupRouter(handler, zapLogger, cfg.Server.CORSOrigins)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Swagger.Enabled {
		router.StaticFile("/docs/swagger.yaml", cfg.Swagger.SpecFile)
		swaggerURL := ginSwagger.URL("/docs/swagger.yaml")
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, swaggerURL))
		logger.Info("Swagger UI enabled", "path", "/swagger/index.html")
	}

	if cfg.Server.EnablePprof {
		debug := router.Group("/debug/pprof")
		{
			debug.GET("/", gin.WrapF(pprof.Index))
			debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			debug.GET("/profile", gin.WrapF(pprof.Profile))
			debug.GET("/symbol", gin.WrapF(pprof.Symbol))
			debug.GET("/trace", gin.WrapF(pprof.Trace))
			debug.GET("/:profile", func(c *gin.Context) {
				pprof.Handler(c.Param("profile")).ServeHTTP(c.Writer, c.Request)
			})
		}
		logger.Warn("pprof endpoints exposed", "path", "/debug/pprof/")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	logger.Info("Shutdown signal received, stopping HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	// In-flight deployments end in Failed once their context is gone.
	cancel()
	handler.Wait()
	logger.Info("Contract deployer stopped")
}

func newZapLogger(cfg configloader.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}
