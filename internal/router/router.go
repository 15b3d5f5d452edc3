package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/learnhub/course-marketplace/internal/config"
    "github.com/learnhub/course-marketplace/internal/handler"
    "github.com/learnhub/course-marketplace/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterPayment registers the checkout endpoint and the two gateway
// callback channels.  The callbacks are public by nature, since neither
// the gateway nor the returning customer carries an access token, so
// they sit behind
// the Redis token bucket instead of JWT.  Checkout itself requires a
// valid access token.
func RegisterPayment(e *echo.Echo, p *handler.PaymentHandler, jwtSecret string, rdb *redis.Client, rlCfg config.RateLimitConfig) {
    limiter := middleware.NewTokenBucket(rlCfg, rdb)
    e.GET("/v1/payments/vnpay-return", p.VNPayReturn, limiter)
    e.GET("/v1/payments/vnpay-ipn", p.VNPayIPN, limiter)

    auth := e.Group("/v1/payments")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
    auth.POST("", p.CreatePayment)
}

// RegisterCustomer registers the authenticated customer endpoints:
// purchase history, enrollments and the course access check.
func RegisterCustomer(e *echo.Echo, ph *handler.PurchaseHandler, eh *handler.EnrollmentHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))

    g.GET("/purchases", ph.List)
    g.GET("/purchases/:id", ph.Get)
    g.GET("/enrollments", eh.List)
    g.GET("/enrollments/:id", eh.Get)
    g.PATCH("/enrollments/:id/progress", eh.UpdateProgress)
    g.GET("/courses/:id/access", eh.Access)
}

// RegisterAdmin registers the admin-only lifecycle endpoints for
// enrollments and the manual provisioning retry.
func RegisterAdmin(e *echo.Echo, ah *handler.AdminEnrollmentHandler, jwtSecret string) {
    g := e.Group("/v1/admin")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ADMIN"))

    g.POST("/enrollments", ah.Grant)
    g.POST("/enrollments/:id/revoke", ah.Revoke)
    g.POST("/enrollments/:id/restore", ah.Restore)
    g.DELETE("/enrollments/:id", ah.Delete)
    g.POST("/purchases/:id/provision", ah.Provision)
}
