// Package bootstrap wires configuration, storage and the domain services
// shared by the HTTP server and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/archive"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/cache"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/database"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/env"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/jobqueue"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/logger"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

// Services is the wired object graph.
type Services struct {
	Config        *config.Config
	DB            *gorm.DB
	Repos         *repository.Repositories
	Gateway       payments.Gateway
	Checkout      *payments.CheckoutService
	Webhooks      *payments.WebhookService
	Subscriptions *subscriptions.Service
	Reconciler    *subscriptions.Reconciler
	Jobs          *jobqueue.Manager
	Mailer        mail.Dispatcher
	Mails         mail.Builder
	Archive       archive.Archiver
}

// LoadConfig reads the .env file, parses the typed config and installs the logger.
func LoadConfig() (*config.Config, error) {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := logger.Setup(cfg.App.LogLevel, cfg.IsDev()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New connects database and cache and builds every service. The job queue
// is created but not started.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	database.SetupDatabase(cfg.DB, cfg.IsDev())
	cache.SetupCache(cfg.Cache)

	s := &Services{
		Config: cfg,
		DB:     database.GetDB(),
	}
	repository.InitializeFactory(s.DB)
	s.Repos = repository.GetGlobalRepositories()

	if cfg.PaymentsEnabled() {
		s.Gateway = payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, cfg.Jobs.RemoteTimeout)
	} else {
		log.Warn("[Bootstrap] STRIPE_SECRET_KEY not set, payments are disabled")
		s.Gateway = payments.DisabledGateway{}
	}

	arch, err := archive.New(ctx, cfg.S3, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("document archive: %w", err)
	}
	s.Archive = arch

	s.Jobs = jobqueue.InitManager(cfg.Jobs.Workers, cfg.Jobs.ReconcileSchedule)
	queue := s.Jobs.GetQueue()

	sender := mail.NewSender(cfg.Mail)
	s.Mailer = jobqueue.NewMailDispatcher(queue, sender)
	s.Mails = mail.Builder{
		Company:       cfg.App.CompanyName,
		OperatorEmail: cfg.App.OperatorEmail,
		SiteURL:       cfg.App.SiteURL,
	}

	s.Subscriptions = subscriptions.NewService(subscriptions.NewStore(s.DB), s.Gateway, nil)
	s.Subscriptions.SetOutbox(queue)
	s.Reconciler = subscriptions.NewReconciler(s.Subscriptions)

	payRepo := payments.NewRepository(s.DB)
	s.Checkout = payments.NewCheckoutService(payRepo, s.Gateway, s.Mailer, s.Mails, cfg.App.SiteURL)
	s.Webhooks = payments.NewWebhookService(payRepo, cfg.Stripe.WebhookSecret, s.Subscriptions, s.Mailer, s.Mails)

	queue.SetProcessors(jobqueue.Processors{
		Mail:      sender,
		Sync:      s.Subscriptions,
		Reconcile: s.Reconciler,
		Archive:   s.Archive,
	})
	return s, nil
}
