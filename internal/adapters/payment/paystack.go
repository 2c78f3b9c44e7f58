package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventticketing/internal/domain"
)

const (
	paystackProvider       = "paystack"
	defaultPaystackBaseURL = "https://api.paystack.co"
	// SignatureHeader carries the hex HMAC-SHA512 of the webhook body.
	SignatureHeader = "X-Paystack-Signature"
)

// PaystackConfig configures the card gateway.
type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
}

type paystackGateway struct {
	client      *http.Client
	secretKey   string
	baseURL     string
	callbackURL string
}

// PaystackGateway is the card adapter. It also authenticates webhooks.
type PaystackGateway interface {
	domain.PaymentGateway
	domain.WebhookParser
}

// NewPaystackGateway returns the card adapter. A nil client uses one bounded by cfg.Timeout.
func NewPaystackGateway(cfg PaystackConfig, client *http.Client) PaystackGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}
	return &paystackGateway{
		client:      newHTTPClient(client, cfg.Timeout),
		secretKey:   cfg.SecretKey,
		baseURL:     baseURL,
		callbackURL: cfg.CallbackURL,
	}
}

func (g *paystackGateway) Type() domain.TransactionType { return domain.TransactionCard }

type paystackInitRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTransactionData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func (g *paystackGateway) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+g.secretKey)
	return h
}

// Initialize charges the amount in the currency's minor unit.
func (g *paystackGateway) Initialize(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentInit, error) {
	metadata := map[string]string{
		"registration_id": req.RegistrationID,
		"event_id":        req.EventID,
		"full_name":       req.PayerName,
	}
	if req.TicketID != "" {
		metadata["ticket_id"] = req.TicketID
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	body := paystackInitRequest{
		Email:       req.PayerEmail,
		Amount:      req.Amount * 100,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: g.callbackURL,
		Metadata:    metadata,
	}
	var resp paystackEnvelope[paystackInitData]
	if err := doJSON(ctx, g.client, paystackProvider, "initialize", http.MethodPost, g.baseURL+"/transaction/initialize", g.header(), body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status || resp.Data.AuthorizationURL == "" {
		return nil, &domain.GatewayError{Provider: paystackProvider, Op: "initialize", Err: errors.New(resp.Message)}
	}
	ref := resp.Data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &domain.PaymentInit{
		Reference:        req.Reference,
		GatewayReference: ref,
		PaymentLink:      resp.Data.AuthorizationURL,
		Amount:           float64(req.Amount),
		Currency:         req.Currency,
	}, nil
}

func (g *paystackGateway) Verify(ctx context.Context, gatewayReference string) (*domain.PaymentVerification, error) {
	var resp paystackEnvelope[paystackTransactionData]
	endpoint := g.baseURL + "/transaction/verify/" + url.PathEscape(gatewayReference)
	if err := doJSON(ctx, g.client, paystackProvider, "verify", http.MethodGet, endpoint, g.header(), nil, &resp); err != nil {
		return nil, err
	}
	return &domain.PaymentVerification{
		Confirmed: g.Classify(resp.Data.Status) == domain.PaymentOutcomeConfirmed,
		RawStatus: resp.Data.Status,
	}, nil
}

// Classify treats every card status other than "success" as a failure.
func (g *paystackGateway) Classify(rawStatus string) domain.PaymentOutcome {
	if rawStatus == "success" {
		return domain.PaymentOutcomeConfirmed
	}
	return domain.PaymentOutcomeFailed
}

type paystackWebhook struct {
	Event string                  `json:"event"`
	Data  paystackTransactionData `json:"data"`
}

// ParseWebhook checks the HMAC-SHA512 of the exact payload before decoding it.
func (g *paystackGateway) ParseWebhook(payload []byte, signature string) (*domain.PaymentNotification, error) {
	if !g.validSignature(payload, signature) {
		return nil, domain.ErrInvalidSignature
	}
	var hook paystackWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, &domain.Error{Code: "InvalidWebhookPayload", Message: "webhook payload is not valid JSON", Category: domain.ErrInvalidInput}
	}
	return &domain.PaymentNotification{
		Reference: hook.Data.Reference,
		RawStatus: hook.Data.Status,
	}, nil
}

func (g *paystackGateway) validSignature(payload []byte, signature string) bool {
	if signature == "" || g.secretKey == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha512.Size {
		return false
	}
	mac := hmac.New(sha512.New, []byte(g.secretKey))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
