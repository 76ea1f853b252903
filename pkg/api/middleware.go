package api

import (
	"log/slog"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"
)

// securityHeaders returns middleware that sets standard security response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)
			status := 0
			if r, _ := echo.UnwrapResponse(c.Response()); r != nil {
				status = r.Status
			}
			logger.Info("Request handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}
	}
}

// rateGate enforces a minimum interval between any two gated requests,
// process-wide. A request that arrives too soon sleeps out the remainder
// under the mutex, which also makes service FIFO on arrival order. It shields
// the sandbox and LLM providers from bursts.
type rateGate struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

func newRateGate(interval time.Duration) *rateGate {
	return &rateGate{interval: interval}
}

// wait blocks until this caller's slot opens.
func (g *rateGate) wait() {
	if g.interval <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if sleep := g.interval - now.Sub(g.last); sleep > 0 {
		time.Sleep(sleep)
		now = now.Add(sleep)
	}
	g.last = now
}

func (g *rateGate) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			g.wait()
			return next(c)
		}
	}
}
