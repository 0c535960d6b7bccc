package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	"github.com/AnshRaj112/solace-backend/internal/config"
	"github.com/AnshRaj112/solace-backend/internal/database"
	"github.com/AnshRaj112/solace-backend/internal/handlers"
	"github.com/AnshRaj112/solace-backend/internal/llm"
	"github.com/AnshRaj112/solace-backend/internal/logger"
	"github.com/AnshRaj112/solace-backend/internal/middleware"
	"github.com/AnshRaj112/solace-backend/internal/moderation"
	"github.com/AnshRaj112/solace-backend/internal/routes"
	"github.com/AnshRaj112/solace-backend/internal/services"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	logg, err := logger.New(cfg.LogLevel, cfg.LogFile, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	if cfg.AuthJWTSecret == "" {
		logg.Fatal("AUTH_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Infow("Connecting to SQL database...", "driver", cfg.DatabaseDriver)
	db, err := database.OpenSQL(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logg.Fatalw("Failed to connect to SQL database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RedisURI != "" {
		if redisClient, err = database.ConnectRedis(ctx, cfg.RedisURI); err != nil {
			logg.Fatalw("Failed to connect to Redis", "error", err)
		}
		defer redisClient.Close()
		logg.Info("✅ Redis connected")
	} else {
		logg.Warn("REDIS_URI not set: caching, shared rate limiting and cross-instance events are disabled")
	}

	// Moderation audit log (MongoDB)
	var (
		mongoClient *mongo.Client
		audit       *services.MongoAuditLog
		janitor     *services.ModerationJanitor
	)
	if cfg.MongoURI != "" {
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logg.Fatalw("Failed to connect to MongoDB", "error", err)
		}
		mongoClient = client
		audit = services.NewMongoAuditLog(mdb)
		if err := audit.EnsureIndexes(ctx); err != nil {
			logg.Warnw("Failed to ensure moderation indexes", "error", err)
		}
		janitor = services.NewModerationJanitor(audit, time.Hour,
			time.Duration(cfg.ModerationRetentionHours)*time.Hour, logg)
		janitor.Start(ctx)
		logg.Info("✅ Moderation audit log enabled")
	} else {
		logg.Warn("MONGODB_URI not set: moderation events will only be logged")
	}
	defer database.DisconnectMongo(mongoClient)

	cipher, err := utils.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logg.Fatalw("ENCRYPTION_KEY is invalid (must be base64-encoded 32 bytes)", "error", err)
	}
	if cipher == nil {
		logg.Warn("ENCRYPTION_KEY not set: journal entries are stored unencrypted")
	}

	completer, err := llm.New(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		logg.Fatalw("Failed to initialize LLM client", "error", err)
	}
	if cfg.LLMAPIKey == "" {
		logg.Warn("LLM_API_KEY not set: chat, insights and plans use offline fallbacks")
	}

	var primary moderation.Classifier
	if c := moderation.NewOpenAIClassifier(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModerationModel, cfg.LLMTimeout); c != nil {
		primary = c
	}
	gate := moderation.NewGate(primary, moderation.KeywordClassifier{}, logg)

	var uploader services.ImageUploader
	cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	switch {
	case err != nil:
		logg.Warnw("Failed to initialize Cloudinary, uploads disabled", "error", err)
	case cld == nil:
		logg.Warn("Cloudinary credentials not found, uploads disabled")
	default:
		uploader = cld
	}

	// Services
	var auditLog moderation.AuditLog
	var auditStore handlers.AuditStore
	if audit != nil {
		auditLog, auditStore = audit, audit
	}
	cache := services.NewCache(redisClient)
	hub := services.NewCommunityHub(redisClient, logg)
	hub.Start(ctx)

	users := services.NewUserService(db)
	moods := services.NewMoodService(db, time.Local)
	sessions := services.NewSessionService(db)
	journals := services.NewJournalService(db, cipher, completer, logg)
	chat := services.NewChatService(db, gate, completer, auditLog, logg)
	posts := services.NewPostService(db, gate, auditLog, hub, logg)
	statsSvc := services.NewStatsService(moods, sessions, journals, chat, cache, cfg.StatsCacheTTL, time.Local, logg)
	insights := services.NewInsightService(db, statsSvc, completer, cache, logg)
	plans := services.NewTherapyPlanService(db, statsSvc, completer, logg)

	var blocker handlers.IPUnblocker
	redisLimiter := middleware.NewRedisRateLimiter(redisClient, logg)
	if redisClient != nil {
		blocker = redisLimiter
	}

	h := handlers.New(handlers.Deps{
		Users: users, Moods: moods, Sessions: sessions, Journals: journals, Chat: chat,
		Posts: posts, Stats: statsSvc, Insights: insights, Plans: plans, Hub: hub,
		Uploader: uploader, Audit: auditStore, Blocker: blocker,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            logg,
	})

	perIP := middleware.NewKeyedLimiter(rate.Limit(5), 30)
	perIP.Start()
	defer perIP.Stop()
	modelLimiter := middleware.NewChatLimiter()
	modelLimiter.Start()
	defer modelLimiter.Stop()

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logg, cfg.TrustProxy))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, perIP) {
			r.Use(mw)
		}
		logg.Info("✅ Production security enabled (security headers, host check, per-IP rate limiting)")
	}
	r.Use(redisLimiter.Middleware)

	routes.SetupRoutes(r, h, routes.Middlewares{
		Auth:       middleware.Authenticate(middleware.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer)),
		ModelLimit: middleware.UserRateLimit(modelLimiter),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Infow("🚀 Solace backend running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatalw("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Errorw("Server shutdown failed", "error", err)
	}

	hub.Stop()
	if janitor != nil {
		janitor.Stop()
	}
	logg.Info("Server stopped")
}
