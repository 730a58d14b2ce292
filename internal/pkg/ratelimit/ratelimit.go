// Package ratelimit builds the fixed-window limiters in front of the public forms.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/cache"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Rule is one named window. Name prefixes the storage key so routes do not
// share counters.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
}

var (
	Contact    = Rule{Name: "contact", Max: 5, Window: 15 * time.Minute}
	Offerte    = Rule{Name: "offerte", Max: 3, Window: 15 * time.Minute}
	Automation = Rule{Name: "automation", Max: 3, Window: 15 * time.Minute}
	Login      = Rule{Name: "login", Max: 10, Window: 15 * time.Minute}
)

const limitedMessage = "Te veel verzoeken, probeer het later opnieuw"

// New returns the limiter middleware for rule. A nil storage keeps the
// counters in process memory.
func New(rule Rule, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rule.Max,
		Expiration: rule.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return rule.Name + ":" + ClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			// fiber only sets Retry-After on rejected requests.
			retry := c.GetRespHeader(fiber.HeaderRetryAfter)
			if retry == "" {
				retry = strconv.Itoa(int(rule.Window.Seconds()))
				c.Set(fiber.HeaderRetryAfter, retry)
			}
			c.Set(HeaderLimit, strconv.Itoa(rule.Max))
			c.Set(HeaderRemaining, "0")
			c.Set(HeaderReset, retry)
			log.Infow("rate limit reached", "rule", rule.Name, "ip", ClientIP(c))
			return response.Error(c, fiber.StatusTooManyRequests, limitedMessage)
		},
		Storage: storage,
	})
}

// ClientIP prefers the proxy headers set by Cloudflare and the load balancer.
func ClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// NewStorage returns redis-backed storage on DB 2 when the shared cache client
// is connected, nil otherwise.
func NewStorage(cfg config.CacheConfig) fiber.Storage {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !cache.Available(ctx) {
		log.Warn("[RateLimit] redis not available, counting in memory")
		return nil
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: 2,
	})
}
