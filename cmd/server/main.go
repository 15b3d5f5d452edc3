package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/learnhub/course-marketplace/internal/config"
    "github.com/learnhub/course-marketplace/internal/database"
    "github.com/learnhub/course-marketplace/internal/handler"
    "github.com/learnhub/course-marketplace/internal/queue"
    "github.com/learnhub/course-marketplace/internal/repository"
    "github.com/learnhub/course-marketplace/internal/router"
    "github.com/learnhub/course-marketplace/internal/service"
    "github.com/learnhub/course-marketplace/internal/vnpay"
)

func main() {
    // Load .env when present; in production the variables come from the
    // environment directly.
    if err := godotenv.Load(); err != nil {
        log.Println("no .env file found, using process environment")
    }
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Repositories over the shared pool
    purchaseRepo := repository.NewPurchaseRepo(db)
    enrollmentRepo := repository.NewEnrollmentRepo(db)
    courseRepo := repository.NewCourseRepo(db)
    reviewRepo := repository.NewReviewRepo(db)
    cartRepo := repository.NewCartRepo(db)

    // Services
    stats := service.NewStatsService(enrollmentRepo, reviewRepo, courseRepo)
    purchases := service.NewPurchaseService(purchaseRepo, courseRepo)
    enrollments := service.NewEnrollmentService(enrollmentRepo, purchaseRepo, courseRepo, stats)

    // Payment gateway client from explicit configuration
    gateway := vnpay.NewClient(vnpay.Config{
        TmnCode:    cfg.VNPay.TmnCode,
        HashSecret: cfg.VNPay.HashSecret,
        BaseURL:    cfg.VNPay.BaseURL,
        ReturnURL:  cfg.VNPay.ReturnURL,
    })

    // Handlers
    paymentHandler := handler.NewPaymentHandler(purchases, enrollments, cartRepo, gateway)
    purchaseHandler := handler.NewPurchaseHandler(purchases)
    enrollmentHandler := handler.NewEnrollmentHandler(enrollments)
    adminHandler := handler.NewAdminEnrollmentHandler(enrollments)

    // Redis backs the rate limiter on the public callback endpoints; a
    // nil client disables limiting.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, callback rate limiting disabled")
    }

    // Background consumer writing purchase.completed events to the log
    go func() {
        if err := queue.StartPurchaseConsumer(); err != nil {
            log.Printf("purchase consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterPayment(e, paymentHandler, cfg.JWTSecret, rdb, config.LoadRateLimitConfig())
    router.RegisterCustomer(e, purchaseHandler, enrollmentHandler, cfg.JWTSecret)
    router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
