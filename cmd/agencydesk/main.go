package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/bootstrap"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/money"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/ratelimit"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/router"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/session"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	services, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("[Server] startup failed: %v", err)
	}
	if err := services.Jobs.Start(); err != nil {
		log.Fatalf("[Server] job queue failed to start: %v", err)
	}

	app := NewApplication(services)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("[Server] shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("[Server] shutdown: %v", err)
		}
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
		log.Errorf("[Server] listen: %v", err)
	}
	services.Jobs.Stop()
}

// findBasePath locates the directory holding views/ and public/ when the
// binary runs from the repo root or from cmd/agencydesk.
func findBasePath() string {
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "views"); err == nil {
			return path
		}
	}
	panic("could not find project root directory")
}

func NewApplication(s *bootstrap.Services) *fiber.App {
	cfg := s.Config
	basePath := findBasePath()

	engine := html.New(basePath+"views", ".html")
	engine.AddFunc("euro", money.Format)
	engine.Reload(cfg.IsDev())

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    1 << 20,
		ErrorHandler: errorHandler,
	})

	app.Use(favicon.New(favicon.Config{
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))
	app.Use(recover.New(), logger.New())

	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	session.NewSessionStore(cfg.Cache, !cfg.IsDev())

	router.InstallRouter(app, router.Dependencies{
		Config:         cfg,
		Repos:          s.Repos,
		Checkout:       s.Checkout,
		Webhooks:       s.Webhooks,
		Reconciler:     s.Reconciler,
		Commands:       s.Subscriptions,
		Billing:        s.Gateway,
		Mailer:         s.Mailer,
		Mails:          s.Mails,
		Captcha:        hcaptcha.New(cfg.HCaptcha.Secret),
		Archive:        s.Jobs.GetQueue(),
		LimiterStorage: ratelimit.NewStorage(cfg.Cache),
	})

	return app
}

// errorHandler answers API paths with the JSON envelope and pages with plain text.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code == fiber.StatusInternalServerError {
		log.Errorf("[Server] %s %s: %v", c.Method(), c.Path(), err)
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		msg := "Er is iets misgegaan, probeer het later opnieuw"
		if code == fiber.StatusNotFound {
			msg = "Niet gevonden"
		}
		return response.Error(c, code, msg)
	}
	return c.Status(code).SendString(utils.StatusMessage(code))
}
