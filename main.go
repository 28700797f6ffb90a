package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"monad-feedback-system/handlers"
	"monad-feedback-system/middleware"
	"monad-feedback-system/models"
	"monad-feedback-system/services"
	"monad-feedback-system/utils"
	"monad-feedback-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const defaultRPCURL = "https://testnet-rpc.monad.xyz"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB — JSON only, no uploads
	})

	app.Use(middleware.RequestLogger())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOriginsString,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		log.Printf("⚠️  RPC_URL not set, using default: %s", defaultRPCURL)
		rpcURL = defaultRPCURL
	}

	if err := utils.InitR2(); err != nil {
		if err == utils.ErrR2NotConfigured {
			log.Println("⚠️  R2 storage not configured — response export disabled")
		} else {
			log.Fatal("failed to initialize R2 client:", err)
		}
	}

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the services map to 409s.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Payment{},
		&models.Admin{},
		&models.Form{},
		&models.FormQuestion{},
		&models.FormResponse{},
		&models.Feedback{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	rpcClient := services.NewRPCClient(rpcURL)

	paymentService := services.NewPaymentService(db, rpcClient)
	feedbackService := services.NewFeedbackService(db)
	adminService := services.NewAdminService(db)
	formService := services.NewFormService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := workers.NewPaymentReconciler(db, rpcClient)
	if err := reconciler.Start(ctx); err != nil {
		log.Fatal("failed to start payment reconciler:", err)
	}

	handlers.SetupPaymentRoutes(app, paymentService)
	handlers.SetupFeedbackRoutes(app, feedbackService)
	handlers.SetupAdminRoutes(app, adminService)
	handlers.SetupFormRoutes(app, formService, paymentService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ RPC node: %s", rpcURL)
	log.Println("✅ Payment reconciler running (every 1m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
