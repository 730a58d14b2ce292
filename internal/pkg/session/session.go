package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/cache"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

// Session keys
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyName   = "name"
)

var sessionStore *session.Store

// NewSessionStore creates the session store on redis DB 1 (cache uses DB 0).
// Without a redis client it falls back to fiber's in-memory storage.
func NewSessionStore(cfg config.CacheConfig, secure bool) *session.Store {
	sessCfg := session.Config{
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		Expiration:     8 * time.Hour,
		KeyLookup:      "cookie:agencydesk_session",
	}

	if cacheClient := cache.GetClient(); cacheClient != nil {
		host := cfg.Host
		port := 6379
		if h, p, err := net.SplitHostPort(cacheClient.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		sessCfg.Storage = redis.New(redis.Config{
			Host:     host,
			Port:     port,
			Password: cfg.Password,
			Database: 1,
			Reset:    false,
		})
	}

	sessionStore = session.New(sessCfg)
	return sessionStore
}

// SetStore replaces the package store. Tests use an in-memory store.
func SetStore(s *session.Store) {
	sessionStore = s
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// Login stores the authenticated user in a fresh session.
func Login(c *fiber.Ctx, userID uint, role, name string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(KeyUserID, userID)
	sess.Set(KeyRole, role)
	sess.Set(KeyName, name)
	return sess.Save()
}

// Logout destroys the current session.
func Logout(c *fiber.Ctx) error {
	if sessionStore == nil {
		return nil
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
