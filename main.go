package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"habit-reward-system/handlers"
	"habit-reward-system/middleware"
	"habit-reward-system/models"
	"habit-reward-system/services"
	"habit-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())
	app.Use(middleware.UserContextMiddleware())

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
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true, // unique-index races surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.UserChallenge{},
		&models.Badge{},
		&models.UserBadge{},
		&models.RewardHistory{},
		&models.ChallengeInvitation{},
		&models.Friendship{},
		&models.PostLike{},
		&models.PostComment{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	notificationURL := os.Getenv("NOTIFICATION_SERVICE_URL")
	serviceToken := os.Getenv("HABIT_SERVICE_TOKEN")
	var notifier services.Notifier
	if notificationURL != "" {
		notifier = services.NewNotificationServiceClient(notificationURL, serviceToken)
	} else {
		log.Println("⚠️  NOTIFICATION_SERVICE_URL not set — notifications disabled")
		notifier = services.NoopNotifier{}
	}

	tasks := services.NewTaskRunner()
	ledgerService := services.NewLedgerService(db)
	badgeService := services.NewBadgeService(db, ledgerService, notifier, tasks)
	challengeService := services.NewChallengeService(db, ledgerService)
	dispatcher := services.NewSocialEventDispatcher(badgeService, challengeService)
	invitationService := services.NewInvitationService(db, notifier, tasks, dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socialSyncClient := workers.NewSocialSyncClient(db)
	go workers.PollSocialGraph(ctx, socialSyncClient, 30*time.Second)

	invitationService.StartCleanupScheduler()
	challengeService.StartAssignmentScheduler()

	handlers.SetupProgressionRoutes(app, db, ledgerService)
	handlers.SetupBadgeRoutes(app, badgeService)
	handlers.SetupInvitationRoutes(app, invitationService)
	handlers.SetupSocialRoutes(app, dispatcher, challengeService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Social graph polling running (every 30s)")
	log.Println("✅ Invitation cleanup sweep scheduled (hourly)")
	log.Println("✅ Daily challenge assignment scheduled (00:05)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	tasks.Wait()
}
