package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"crmmail/utils"
)

// RateLimiter allows each client IP a burst of requests per window,
// refilled evenly across the window.
func RateLimiter(requests int, window time.Duration) fiber.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		clients   = make(map[string]*client)
		mu        sync.Mutex
		lastSweep = time.Now()
	)

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		now := time.Now()

		mu.Lock()
		// Forget clients idle for a whole window; their bucket is full again.
		if now.Sub(lastSweep) > window {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > window {
					delete(clients, key)
				}
			}
			lastSweep = now
		}

		cl, exists := clients[ip]
		if !exists {
			limiter := rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
			cl = &client{limiter: limiter}
			clients[ip] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			return utils.TooManyRequestsError("Too many requests from this IP, please try again later.", nil)
		}

		return c.Next()
	}
}
