package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// testNotificationRate limits test sends per client so a stuck button cannot spam a channel.
const testNotificationRate = rate.Limit(1.0 / 10)

func (c *Controller) initNotificationRoutes() {
	notifications := c.Group.Group("/notifications")
	notifications.POST("/test", c.SendTestNotification,
		middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      testNotificationRate,
				Burst:     1,
				ExpiresIn: time.Minute,
			}),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			DenyHandler: func(ctx echo.Context, _ string, _ error) error {
				return ctx.JSON(http.StatusTooManyRequests, ErrorResponse{
					Error:   "rate limit exceeded",
					Message: "Wait before sending another test notification",
				})
			},
		}))
}

// SendTestNotification pushes a test message to every configured service.
// POST /api/v2/notifications/test
func (c *Controller) SendTestNotification(ctx echo.Context) error {
	if c.deps.Notifier == nil {
		return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "notifications not configured",
			Message: "Push notifications are disabled",
		})
	}
	if err := c.deps.Notifier.SendTest(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "Failed to send test notification", http.StatusBadGateway)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"sent": true})
}
