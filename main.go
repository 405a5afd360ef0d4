package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"airdrop-campaign/config"
	"airdrop-campaign/handlers"
	"airdrop-campaign/middleware"
	"airdrop-campaign/services"
	"airdrop-campaign/utils"
	"airdrop-campaign/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, dotenv, err := config.Load()
	if !dotenv {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	utils.DebugEnabled = cfg.Debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, _ := cfg.Location() // checked by config.Validate

	// --- Storage ---
	var (
		store services.SnapshotStore
		db    *gorm.DB
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database: ", err)
		}
		gormStore := services.NewGormStore(db)
		if err := gormStore.Migrate(); err != nil {
			log.Fatal("failed to migrate database: ", err)
		}
		store = gormStore
	case config.StorageFile:
		bucket, err := utils.NewFileBucket(cfg.DataDir)
		if err != nil {
			log.Fatal("failed to prepare data dir: ", err)
		}
		store = services.NewBlobSnapshotStore(bucket)
	case config.StorageR2:
		bucket, err := utils.NewR2Bucket(ctx, utils.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		store = services.NewBlobSnapshotStore(bucket)
	case config.StorageDynamo:
		dynamoStore, err := services.NewDynamoStore(ctx, services.DynamoConfig{
			Region:   cfg.Dynamo.Region,
			Table:    cfg.Dynamo.Table,
			Endpoint: cfg.Dynamo.Endpoint,
		})
		if err != nil {
			log.Fatal("failed to initialize DynamoDB client: ", err)
		}
		store = dynamoStore
	}

	// --- Campaign ---
	catalog := services.DefaultCatalog
	if cfg.CatalogFile != "" {
		catalog, err = services.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			log.Fatal("failed to load task catalog: ", err)
		}
	}

	table, err := services.NewRewardTable(services.DefaultRewards)
	if err != nil {
		log.Fatal("invalid reward table: ", err)
	}
	spinner := services.NewSpinner(table, nil, nil, loc)

	hubCfg := services.HubConfig{
		Store:       store,
		Catalog:     catalog,
		Spinner:     spinner,
		RevealDelay: cfg.RevealDelay,
	}

	if cfg.ProfileServiceURL != "" {
		profile, err := services.NewProfileClient(cfg.ProfileServiceURL, cfg.ProfileServiceToken)
		if err != nil {
			log.Fatal("failed to configure profile service client: ", err)
		}
		hubCfg.Remote = profile
	}

	if cfg.KafkaBrokers != "" {
		publisher, err := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal("failed to configure kafka publisher: ", err)
		}
		defer publisher.Close()
		hubCfg.Publishers = append(hubCfg.Publishers, publisher)
	}

	hub := services.NewHub(hubCfg)
	defer hub.Close()

	// --- Background jobs ---
	sched, err := services.NewScheduler(loc, nil)
	if err != nil {
		log.Fatal("failed to start scheduler: ", err)
	}
	defer sched.Shutdown()
	if err := hub.ScheduleSpinnerRollover(sched); err != nil {
		log.Fatal("failed to schedule spinner rollover: ", err)
	}

	if hubCfg.Remote != nil {
		workers.NewReconcileWorker(hub, cfg.ReconcileInterval, nil).Start(ctx)
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024,
	})

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Wallet-Address",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Liveness stays outside gateway auth.
	handlers.SetupHealthRoutes(app)

	// 🔐 Everything below must come through the Gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	handlers.SetupProgressionRoutes(app, hub)
	handlers.SetupSpinnerRoutes(app, hub)

	if db != nil {
		handlers.SetupCommunityRoutes(app, services.NewGormStore(db), services.NewReferralService(db, hub))
	} else {
		log.Println("⚠️  Leaderboard and referrals need STORAGE_BACKEND=postgres; routes disabled")
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Storage backend: %s", cfg.Storage)
	log.Printf("✅ %d campaign task(s), %d spinner reward(s), spin day in %s", len(catalog), len(table.Entries()), loc)
	if hubCfg.Remote != nil {
		log.Printf("✅ Profile service reconcile running (every %s)", cfg.ReconcileInterval)
	}
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
