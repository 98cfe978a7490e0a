package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
	headerPermissionsPolicy  = "Permissions-Policy"
)

// rateLimitMiddleware limits requests per client IP and reports the window state in X-RateLimit-* headers.
// Limiter failures are logged and let the request through.
func rateLimitMiddleware(limiter core.RateLimiter, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().Method == http.MethodOptions {
				return next(ctx)
			}

			res, err := limiter.Check(ctx.Request().Context(), ctx.RealIP())
			if err != nil {
				logger.Error("checking rate limit", errors.Wrap(err, "checking rate limit"))
				return next(ctx)
			}

			h := ctx.Response().Header()
			h.Set(headerRateLimitLimit, strconv.Itoa(res.Limit))
			h.Set(headerRateLimitRemaining, strconv.Itoa(res.Remaining))
			h.Set(headerRateLimitReset, res.ResetTime.UTC().Format(time.RFC3339))
			if !res.Allowed {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// secureHeaders sets the browser hardening headers.
func secureHeaders() echo.MiddlewareFunc {
	secure := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := secure(next)
		return func(ctx echo.Context) error {
			ctx.Response().Header().Set(headerPermissionsPolicy, "geolocation=(), microphone=(), camera=()")
			return h(ctx)
		}
	}
}

// requestLogger logs one line per request through the app logger.
func requestLogger(logger core.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request", map[string]interface{}{
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.String(),
				"remoteIp":  v.RemoteIP,
				"requestId": v.RequestID,
			})
			return nil
		},
	})
}
