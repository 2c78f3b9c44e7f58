package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventticketing/internal/domain"
)

const (
	coingateProvider       = "coingate"
	defaultCoinGateBaseURL = "https://api-sandbox.coingate.com"
	defaultOrderTTL        = 24 * time.Hour
)

// CoinGateConfig configures the crypto gateway.
type CoinGateConfig struct {
	AuthToken       string
	BaseURL         string
	CallbackURL     string
	CancelURL       string
	SuccessURL      string
	ReceiveCurrency string
	OrderTTL        time.Duration
	Timeout         time.Duration
}

type coinGateGateway struct {
	client *http.Client
	tokens domain.OrderTokenIssuer
	cfg    CoinGateConfig
}

// NewCoinGateGateway returns the crypto adapter. Each order carries a token
// from tokens; the token doubles as the gateway reference.
func NewCoinGateGateway(cfg CoinGateConfig, tokens domain.OrderTokenIssuer, client *http.Client) domain.PaymentGateway {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCoinGateBaseURL
	}
	if cfg.ReceiveCurrency == "" {
		cfg.ReceiveCurrency = "USDC"
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = defaultOrderTTL
	}
	return &coinGateGateway{
		client: newHTTPClient(client, cfg.Timeout),
		tokens: tokens,
		cfg:    cfg,
	}
}

func (g *coinGateGateway) Type() domain.TransactionType { return domain.TransactionCrypto }

type coinGateOrderRequest struct {
	OrderID         string `json:"order_id"`
	PriceAmount     string `json:"price_amount"`
	PriceCurrency   string `json:"price_currency"`
	ReceiveCurrency string `json:"receive_currency"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	CallbackURL     string `json:"callback_url,omitempty"`
	CancelURL       string `json:"cancel_url,omitempty"`
	SuccessURL      string `json:"success_url,omitempty"`
	Token           string `json:"token"`
	PurchaserEmail  string `json:"purchaser_email,omitempty"`
}

type coinGateOrder struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url"`
	OrderID    string `json:"order_id"`
}

func (g *coinGateGateway) Initialize(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentInit, error) {
	if req.CryptoAmount <= 0 {
		return nil, &domain.GatewayError{Provider: coingateProvider, Op: "create order", Err: errors.New("crypto amount must be positive")}
	}
	token, err := g.tokens.Issue(req.Reference, g.cfg.OrderTTL)
	if err != nil {
		return nil, err
	}
	body := coinGateOrderRequest{
		OrderID:         req.Reference,
		PriceAmount:     strconv.FormatFloat(req.CryptoAmount, 'f', -1, 64),
		PriceCurrency:   g.cfg.ReceiveCurrency,
		ReceiveCurrency: g.cfg.ReceiveCurrency,
		Title:           req.EventName,
		Description:     req.Description,
		CallbackURL:     g.cfg.CallbackURL,
		CancelURL:       g.cfg.CancelURL,
		SuccessURL:      g.cfg.SuccessURL,
		Token:           token,
		PurchaserEmail:  req.PayerEmail,
	}
	header := http.Header{}
	header.Set("Authorization", "Token "+g.cfg.AuthToken)

	var order coinGateOrder
	if err := doJSON(ctx, g.client, coingateProvider, "create order", http.MethodPost, g.cfg.BaseURL+"/v2/orders", header, body, &order); err != nil {
		return nil, err
	}
	if order.PaymentURL == "" {
		return nil, &domain.GatewayError{Provider: coingateProvider, Op: "create order", Err: errors.New("response has no payment_url")}
	}
	return &domain.PaymentInit{
		Reference:        req.Reference,
		GatewayReference: token,
		PaymentLink:      order.PaymentURL,
		Amount:           req.CryptoAmount,
		Currency:         g.cfg.ReceiveCurrency,
	}, nil
}

// Verify is not offered: crypto orders are confirmed only by the pushed callback.
func (g *coinGateGateway) Verify(ctx context.Context, gatewayReference string) (*domain.PaymentVerification, error) {
	return nil, domain.ErrVerificationUnsupported
}

// Classify: "paid" confirms, in-flight statuses are no-ops, anything else fails.
func (g *coinGateGateway) Classify(rawStatus string) domain.PaymentOutcome {
	switch rawStatus {
	case "paid":
		return domain.PaymentOutcomeConfirmed
	case "new", "pending", "confirming":
		return domain.PaymentOutcomePending
	}
	return domain.PaymentOutcomeFailed
}
