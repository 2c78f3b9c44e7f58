package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"
)

// maxWebhookBody caps provider payloads.
const maxWebhookBody = 1 << 20

// ReconciliationSuccessResponse is the success envelope for the callback and webhooks.
type ReconciliationSuccessResponse struct {
	Data  *domain.ReconciliationResult `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// CryptoWebhookRequest is the crypto provider's callback body. It arrives
// either as JSON or as a urlencoded form.
type CryptoWebhookRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Token   string `json:"token"`
}

type TransactionController struct {
	Logger  *slog.Logger
	Service domain.ReconciliationService
	// SignatureHeader names the header carrying the card webhook signature.
	SignatureHeader string
}

func NewTransactionController(logger *slog.Logger, svc domain.ReconciliationService, signatureHeader string) *TransactionController {
	return &TransactionController{
		Logger:          logger,
		Service:         svc,
		SignatureHeader: signatureHeader,
	}
}

// Callback godoc
// @Summary Verify a payment
// @Description Called when the payer returns from the provider, and polled by clients. Verifies the reference with the provider and completes the registration once confirmed.
// @Tags transactions
// @Produce json
// @Param reference query string true "Gateway or order reference"
// @Success 200 {object} controllers.ReconciliationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: TransactionNotFound"
// @Failure 502 {object} helpers.APIResponse "error.code: gateway_error"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /transactions/callback [get]
func (c *TransactionController) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reference := strings.TrimSpace(q.Get("reference"))
	if reference == "" {
		reference = strings.TrimSpace(q.Get("trxref"))
	}
	if reference == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "reference is required")
		return
	}
	res, err := c.Service.HandleCallback(r.Context(), reference)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// CardWebhook godoc
// @Summary Card provider webhook
// @Description Authenticates the signed payload and applies it. Every outcome other than an internal failure is acknowledged with 200 so the provider stops retrying.
// @Tags transactions
// @Accept json
// @Produce json
// @Param X-Paystack-Signature header string true "HMAC-SHA512 of the raw body"
// @Success 200 {object} controllers.ReconciliationSuccessResponse "data.disposition describes what happened"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /transactions/webhook [post]
func (c *TransactionController) CardWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unreadable body")
		return
	}
	res, err := c.Service.HandleCardWebhook(r.Context(), payload, r.Header.Get(c.SignatureHeader))
	if err != nil {
		c.writeWebhookError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// CryptoWebhook godoc
// @Summary Crypto provider webhook
// @Description Applies a crypto order status callback after checking the order token. Accepts JSON or form-encoded bodies.
// @Tags transactions
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param callback body CryptoWebhookRequest true "Order callback"
// @Success 200 {object} controllers.ReconciliationSuccessResponse "data.disposition describes what happened"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /transactions/webhook/crypto [post]
func (c *TransactionController) CryptoWebhook(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCryptoWebhook(w, r)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	res, err := c.Service.HandleCryptoWebhook(r.Context(), domain.CryptoCallback{
		Status:  strings.TrimSpace(req.Status),
		OrderID: strings.TrimSpace(req.OrderID),
		Token:   req.Token,
	})
	if err != nil {
		c.writeWebhookError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// writeWebhookError keeps provider retries for failures on our side only.
func (c *TransactionController) writeWebhookError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
		c.Logger.WarnContext(r.Context(), "webhook ignored", "path", r.URL.Path, "err", err)
		helpers.WriteJSONSuccess(w, http.StatusOK, &domain.ReconciliationResult{Disposition: domain.DispositionUnsupportedSource})
		return
	}
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal server error")
}

func decodeCryptoWebhook(w http.ResponseWriter, r *http.Request) (*CryptoWebhookRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var req CryptoWebhookRequest
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		req.OrderID = r.PostForm.Get("order_id")
		req.Status = r.PostForm.Get("status")
		req.Token = r.PostForm.Get("token")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, errors.New("order_id is required")
	}
	return &req, nil
}
