package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/damoang/angple-bans/internal/config"
	"github.com/damoang/angple-bans/internal/handler"
	"github.com/damoang/angple-bans/internal/middleware"
	"github.com/damoang/angple-bans/internal/migration"
	"github.com/damoang/angple-bans/internal/repository"
	"github.com/damoang/angple-bans/internal/routes"
	"github.com/damoang/angple-bans/internal/service"
	pkgcache "github.com/damoang/angple-bans/pkg/cache"
	"github.com/damoang/angple-bans/pkg/jwt"
	pkglogger "github.com/damoang/angple-bans/pkg/logger"
	pkgredis "github.com/damoang/angple-bans/pkg/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath(env string) string {
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := getConfigPath(env)
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	// MySQL 연결 (ban store is the source of truth; no DB means no service)
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		pkglogger.Warn("Migration warning: %v", err)
	}

	// Redis 연결 (optional: without it the selection cache and write limiter are disabled)
	var redisClient *redis.Client
	redisClient, err = pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}
	cacheService := pkgcache.NewService(redisClient)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories & services
	banRepo := repository.NewBanRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	banHandler := handler.NewBanHandler(
		service.NewBanAdminService(banRepo, cacheService, cfg.Bans),
		service.NewStatusService(banRepo, memberRepo),
		service.NewSelectionFilterService(banRepo, groupRepo, cacheService, cfg.Bans.CacheTTLDuration()),
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS 설정
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(cfg.CORS.AllowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbState = "down"
		}
		redisState := "disabled"
		if cacheService.IsAvailable() {
			redisState = "ok"
			if err := cacheService.Ping(c.Request.Context()); err != nil {
				redisState = "down"
			}
		}
		c.JSON(status, gin.H{
			"status":  dbState,
			"redis":   redisState,
			"service": "angple-bans",
			"time":    time.Now().Unix(),
		})
	})

	routes.SetupAdmin(router, banHandler, jwtManager,
		middleware.AdminWriteLimit(redisClient, cfg.Bans.WriteRatePerMinute),
		middleware.AdminAllowlist(middleware.LoadAdminNetworks()))

	go reportDBStats(db)

	// 서버 시작
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		pkglogger.Info("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	pkglogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		pkglogger.Error("Server forced to shutdown: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	// ban intervals are compared in UTC on both sides
	mysqlCfg.Params["time_zone"] = "'+00:00'"

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}

// reportDBStats feeds the open-connection gauge every 15 seconds
func reportDBStats(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		middleware.SetDBConnectionsOpen(float64(sqlDB.Stats().OpenConnections))
	}
}

// splitAndTrim splits a string by delimiter and trims spaces
func splitAndTrim(s, delimiter string) []string {
	parts := []string{}
	for _, part := range strings.Split(s, delimiter) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
