package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eventticketing/config"
	"eventticketing/internal/adapters/auth"
	"eventticketing/internal/adapters/email"
	"eventticketing/internal/adapters/payment"
	"eventticketing/internal/adapters/qr"
	"eventticketing/internal/adapters/rates"
	"eventticketing/internal/domain"
	"eventticketing/internal/repository/postgres"
	"eventticketing/internal/services"
)

const (
	qrCodeSize     = 256
	serviceTimeout = 30 * time.Second
)

// app holds the wired services shared by the serve and worker commands.
type app struct {
	cfg           *config.Config
	logger        *slog.Logger
	db            *sql.DB
	cache         *rates.RedisCache
	events        domain.EventService
	registrations domain.RegistrationService
	reconciler    domain.ReconciliationService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	store := postgres.NewStore(db)

	cache, err := rates.NewRedisCache(ctx, rates.RedisConfig{
		Enabled:  cfg.Redis.Enabled,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("redis unavailable, continuing without rate cache", "error", err)
		cache, _ = rates.NewRedisCache(ctx, rates.RedisConfig{})
	}
	httpClient := &http.Client{Timeout: cfg.Payment.GatewayTimeout}
	converter := rates.NewCoinGeckoConverter(rates.Config{
		BaseURL:  cfg.Rates.CoinGeckoBaseURL,
		APIKey:   cfg.Rates.CoinGeckoAPIKey,
		CacheTTL: cfg.Rates.CacheTTL,
		Timeout:  cfg.Payment.GatewayTimeout,
	}, cache, httpClient, logger)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create mailer: %w", err), db.Close())
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load email templates: %w", err), db.Close())
	}
	notifier := services.NewNotificationService(mailer, renderer, qr.NewGenerator(qrCodeSize), cfg.HTTP.FrontendBaseURL, logger)

	var (
		gateways []domain.PaymentGateway
		webhooks domain.WebhookParser
		tokens   domain.OrderTokenIssuer
	)
	if cfg.Payment.CardEnabled() {
		card := payment.NewPaystackGateway(payment.PaystackConfig{
			SecretKey:   cfg.Payment.PaystackSecretKey,
			BaseURL:     cfg.Payment.PaystackBaseURL,
			CallbackURL: cfg.Payment.PaystackCallbackURL,
			Timeout:     cfg.Payment.GatewayTimeout,
		}, httpClient)
		gateways = append(gateways, card)
		webhooks = card
	} else {
		logger.Warn("card payments disabled: PAYSTACK_SECRET_KEY is not set")
	}
	if cfg.Payment.CryptoEnabled() {
		tokens = auth.NewOrderTokenIssuer(cfg.Payment.OrderTokenSecret)
		gateways = append(gateways, payment.NewCoinGateGateway(payment.CoinGateConfig{
			AuthToken:       cfg.Payment.CoinGateAuthToken,
			BaseURL:         cfg.Payment.CoinGateBaseURL,
			CallbackURL:     cfg.Payment.CoinGateCallbackURL,
			CancelURL:       cfg.Payment.CoinGateCancelURL,
			SuccessURL:      cfg.Payment.CoinGateSuccessURL,
			ReceiveCurrency: cfg.Payment.CoinGateReceiveCurrency,
			OrderTTL:        cfg.Payment.OrderTTL,
			Timeout:         cfg.Payment.GatewayTimeout,
		}, tokens, httpClient))
	} else {
		logger.Warn("crypto payments disabled: COINGATE_AUTH_TOKEN is not set")
	}
	table := domain.NewPaymentGateways(gateways...)

	inventory := services.NewInventoryService(store.Tickets())
	ledger := services.NewTransactionLedger()

	return &app{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		cache:         cache,
		events:        services.NewEventService(store, converter, notifier, logger, serviceTimeout),
		registrations: services.NewRegistrationService(store, inventory, ledger, table, converter, notifier, logger),
		reconciler: services.NewReconciliationService(store, ledger, inventory, table, webhooks, tokens, notifier, logger, services.SweepConfig{
			StaleAfter:  cfg.Worker.StaleAfter,
			ExpireAfter: cfg.Payment.OrderTTL,
			BatchSize:   cfg.Worker.BatchSize,
		}),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.db.Close())
}
