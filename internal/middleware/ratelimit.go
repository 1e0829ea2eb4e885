package middleware

import (
	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// LoginRateLimit limits requests per client IP using a formatted rate such as "30-M"
func LoginRateLimit(formatted string, logger *observability.Logger) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "invalid login rate limit %q", formatted)
	}

	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			if logger != nil {
				logger.Warn(c.Request.Context(), "Login rate limit reached", map[string]interface{}{
					"client_ip": c.ClientIP(),
					"limit":     formatted,
				})
			}
			HandleAppError(c, contextutils.ErrRateLimit)
			c.Abort()
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			HandleAppError(c, contextutils.WrapError(err, "rate limiter failed"))
			c.Abort()
		}),
	), nil
}
