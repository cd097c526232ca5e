package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dimasfh/sociagram/internal/app/controllers"
	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/app/services"
	"github.com/dimasfh/sociagram/internal/config"
	"github.com/dimasfh/sociagram/internal/platform/database"
	httpPlatform "github.com/dimasfh/sociagram/internal/platform/http"
	"github.com/dimasfh/sociagram/internal/platform/realtime"
	"github.com/dimasfh/sociagram/pkg/cache"
	"github.com/dimasfh/sociagram/pkg/eventlog"
	"github.com/dimasfh/sociagram/pkg/logger"
	storagepkg "github.com/dimasfh/sociagram/pkg/storage"
	localStorage "github.com/dimasfh/sociagram/pkg/storage/local"
	minioStorage "github.com/dimasfh/sociagram/pkg/storage/minio"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	loggers := logger.New(cfg.LogLevel)

	log.Printf("configuration: driver=%s env=%s", cfg.DBDriver, cfg.Env)

	// Object storage: minio when configured, local disk otherwise. The local
	// store also backs the /public/ static route.
	var (
		objectStorage storagepkg.Service
		staticDir     string
	)
	if cfg.Storage.Enabled() {
		store, err := minioStorage.New(context.Background(), minioStorage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			log.Fatalf("storage initialization error: %v", err)
		}
		objectStorage = store
		log.Printf("object storage enabled bucket=%s endpoint=%s", cfg.Storage.Bucket, cfg.Storage.Endpoint)
	} else {
		store, err := localStorage.New(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			log.Fatalf("local storage initialization error: %v", err)
		}
		objectStorage = store
		staticDir = store.Dir()
		log.Printf("local storage enabled dir=%s", staticDir)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database connection error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("database handle retrieval error: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
	}()

	userRepo, err := repositories.NewGormUserRepo(db)
	if err != nil {
		log.Fatalf("user repository initialization error: %v", err)
	}
	postRepo, err := repositories.NewGormPostRepo(db)
	if err != nil {
		log.Fatalf("post repository initialization error: %v", err)
	}
	conversationRepo, err := repositories.NewGormConversationRepo(db)
	if err != nil {
		log.Fatalf("conversation repository initialization error: %v", err)
	}

	var tokenRepo repositories.RefreshTokenRepository
	if cfg.DBDriver == "postgres" {
		tokenRepo, err = repositories.NewPostgresRefreshTokenRepo(sqlDB)
		if err != nil {
			log.Fatalf("token repository initialization error: %v", err)
		}
	} else {
		tokenRepo = repositories.NewInMemoryRefreshTokenRepo()
	}
	if err := tokenRepo.DeleteExpired(context.Background()); err != nil {
		log.Printf("refresh token cleanup error: %v", err)
	}

	var feedCache *cache.Cache
	if cfg.Redis.Enabled() {
		feedCache, err = cache.New(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "sociagram:", cfg.Redis.FeedTTL)
		if err != nil {
			log.Fatalf("redis initialization error: %v", err)
		}
		defer feedCache.Close()
		log.Printf("feed cache enabled addr=%s", cfg.Redis.Addr)
	}

	eventLogger := eventlog.NewWriter(cfg.EventLogDir, loggers.App.Sub("EventLog"))

	presence := realtime.NewPresence()
	gateway := realtime.NewGateway(presence, eventLogger, loggers.App.Sub("Realtime"))

	authSvc := services.NewAuthService(userRepo, tokenRepo, cfg.Auth, loggers.App.Sub("Auth"))
	userSvc := services.NewUserService(userRepo, postRepo, objectStorage, loggers.App.Sub("User"))
	postSvc := services.NewPostService(postRepo, userRepo, objectStorage, feedCache, loggers.App.Sub("Post"))
	conversationSvc := services.NewConversationService(conversationRepo, userRepo, loggers.App.Sub("Conversation"))

	router := httpPlatform.NewRouter(httpPlatform.RouterConfig{
		AuthCtrl:         controllers.NewAuthController(authSvc, cfg.Auth.RefreshTTL),
		UserCtrl:         controllers.NewUserController(userSvc),
		PostCtrl:         controllers.NewPostController(postSvc),
		ConversationCtrl: controllers.NewConversationController(conversationSvc),
		Gateway:          gateway,
		TokenValidator:   authSvc.ValidateAccessToken,
		Logger:           loggers.HTTP,
		SwaggerEnable:    cfg.SwaggerEnable,
		StaticDir:        staticDir,
	})

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	_ = srv.Shutdown(context.Background())
}
