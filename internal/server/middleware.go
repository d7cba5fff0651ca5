package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

func rateLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return failure(c, fiber.StatusTooManyRequests, "too many requests, slow down", nil)
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

// requestLogger writes one line per request. Errors from the chain are
// rendered here so the logged status is the one the client gets.
func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID(c)),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request served", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request served", fields...)
		default:
			log.Debug("request served", fields...)
		}
		return nil
	}
}
