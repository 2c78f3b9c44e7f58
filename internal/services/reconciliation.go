package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventticketing/internal/domain"
)

// ExpiredStatus is the raw status recorded when a Pending payment times out.
const ExpiredStatus = "expired"

// SweepConfig bounds the pending payment sweep.
type SweepConfig struct {
	// StaleAfter is how old a Pending card payment must be before it is re-verified.
	StaleAfter time.Duration
	// ExpireAfter is how old a Pending payment must be before it is failed.
	ExpireAfter time.Duration
	BatchSize   int
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 15 * time.Minute
	}
	if c.ExpireAfter <= 0 {
		c.ExpireAfter = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// errAlreadyCompleted aborts a completion unit that lost the latch.
var errAlreadyCompleted = errors.New("registration already completed")

type reconciliationService struct {
	store     domain.Store
	ledger    domain.TransactionLedger
	inventory domain.InventoryService
	gateways  domain.PaymentGateways
	webhooks  domain.WebhookParser
	tokens    domain.OrderTokenIssuer
	notifier  domain.NotificationService
	logger    *slog.Logger
	sweep     SweepConfig
	now       func() time.Time
}

// NewReconciliationService returns the reconciliation engine. webhooks
// authenticates card webhooks and tokens checks crypto callbacks.
func NewReconciliationService(store domain.Store,
	ledger domain.TransactionLedger,
	inventory domain.InventoryService,
	gateways domain.PaymentGateways,
	webhooks domain.WebhookParser,
	tokens domain.OrderTokenIssuer,
	notifier domain.NotificationService,
	logger *slog.Logger,
	sweep SweepConfig,
) domain.ReconciliationService {
	return &reconciliationService{
		store:     store,
		ledger:    ledger,
		inventory: inventory,
		gateways:  gateways,
		webhooks:  webhooks,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger,
		sweep:     sweep.withDefaults(),
		now:       time.Now,
	}
}

func (s *reconciliationService) HandleCallback(ctx context.Context, reference string) (*domain.ReconciliationResult, error) {
	trx, err := s.resolve(ctx, reference)
	if err != nil {
		return nil, err
	}
	if trx == nil {
		return nil, domain.ErrTransactionNotFound
	}
	if trx.Status != domain.TransactionPending {
		return s.replay(ctx, trx)
	}

	gateway, err := s.gateways.Get(trx.Type)
	if err != nil {
		return nil, err
	}
	v, err := gateway.Verify(ctx, trx.GatewayReference)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationUnsupported) {
			// Crypto orders settle through the pushed callback.
			return &domain.ReconciliationResult{Disposition: domain.DispositionPending, Transaction: trx}, nil
		}
		return nil, err
	}
	raw, ok := s.settleable(trx, v, s.now())
	if !ok {
		return &domain.ReconciliationResult{Disposition: domain.DispositionPending, Transaction: trx}, nil
	}
	return s.apply(ctx, gateway, trx, raw)
}

// resolve accepts either the gateway reference or the internal order reference.
func (s *reconciliationService) resolve(ctx context.Context, reference string) (*domain.Transaction, error) {
	if reference == "" {
		return nil, nil
	}
	trx, err := s.store.Transactions().GetByGatewayReference(ctx, reference)
	if err == nil {
		return trx, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	trx, err = s.store.Transactions().GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return trx, nil
}

// replay handles a transaction that already left Pending. A Successful one
// whose completion was interrupted is completed now, and a Failed one still
// holding a Pending registration has it rejected.
func (s *reconciliationService) replay(ctx context.Context, trx *domain.Transaction) (*domain.ReconciliationResult, error) {
	switch {
	case trx.Status == domain.TransactionSuccessful && !trx.RegistrationCompleted && trx.RegistrationID != nil:
		disposition, err := s.CompleteRegistration(ctx, trx.GatewayReference)
		if err != nil {
			return nil, err
		}
		return s.result(ctx, disposition, trx.GatewayReference)
	case trx.Status == domain.TransactionFailed && trx.RegistrationID != nil:
		err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
			return rejectRegistration(ctx, r, trx)
		})
		if err != nil {
			return nil, err
		}
	}
	return &domain.ReconciliationResult{Disposition: domain.DispositionDuplicate, Transaction: trx}, nil
}

func (s *reconciliationService) HandleCardWebhook(ctx context.Context, payload []byte, signature string) (*domain.ReconciliationResult, error) {
	if s.webhooks == nil {
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnsupportedSource}, nil
	}
	n, err := s.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			s.logger.Warn("card webhook rejected: invalid signature")
			return &domain.ReconciliationResult{Disposition: domain.DispositionInvalidSignature}, nil
		}
		s.logger.Warn("card webhook ignored: unreadable payload", "error", err)
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnsupportedSource}, nil
	}

	trx, err := s.lookup(ctx, n.Reference, s.store.Transactions().GetByGatewayReference)
	if err != nil {
		return nil, err
	}
	if trx == nil || trx.Type != domain.TransactionCard {
		s.logger.Info("card webhook ignored: unknown reference", "reference", n.Reference)
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnknownReference}, nil
	}
	gateway, err := s.gateways.Get(domain.TransactionCard)
	if err != nil {
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnsupportedSource}, nil
	}
	return s.apply(ctx, gateway, trx, n.RawStatus)
}

func (s *reconciliationService) HandleCryptoWebhook(ctx context.Context, cb domain.CryptoCallback) (*domain.ReconciliationResult, error) {
	trx, err := s.lookup(ctx, cb.OrderID, s.store.Transactions().GetByReference)
	if err != nil {
		return nil, err
	}
	if trx == nil || trx.Type != domain.TransactionCrypto {
		s.logger.Info("crypto webhook ignored: unknown order", "order_id", cb.OrderID)
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnknownReference}, nil
	}
	if !s.validOrderToken(trx, cb.Token) {
		s.logger.Warn("crypto webhook rejected: token mismatch", "order_id", cb.OrderID)
		return &domain.ReconciliationResult{Disposition: domain.DispositionInvalidSignature}, nil
	}
	gateway, err := s.gateways.Get(domain.TransactionCrypto)
	if err != nil {
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnsupportedSource}, nil
	}
	return s.apply(ctx, gateway, trx, cb.Status)
}

// validOrderToken requires the token to equal the stored gateway reference
// and to be a live token issued for this order.
func (s *reconciliationService) validOrderToken(trx *domain.Transaction, token string) bool {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(trx.GatewayReference)) != 1 {
		return false
	}
	if s.tokens == nil {
		return true
	}
	ref, err := s.tokens.Verify(token)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ref), []byte(trx.Reference)) == 1
}

func (s *reconciliationService) lookup(ctx context.Context, ref string, get func(context.Context, string) (*domain.Transaction, error)) (*domain.Transaction, error) {
	if ref == "" {
		return nil, nil
	}
	trx, err := get(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return trx, nil
}

// apply classifies rawStatus, finalizes the transaction and completes or
// rejects the registration behind it.
func (s *reconciliationService) apply(ctx context.Context, gateway domain.PaymentGateway, trx *domain.Transaction, rawStatus string) (*domain.ReconciliationResult, error) {
	outcome := gateway.Classify(rawStatus)
	if outcome == domain.PaymentOutcomePending {
		return &domain.ReconciliationResult{Disposition: domain.DispositionPending, Transaction: trx}, nil
	}

	// A failed payment and the rejection of its registration commit together.
	confirmed := outcome == domain.PaymentOutcomeConfirmed
	var updated *domain.Transaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		var err error
		updated, err = s.ledger.Finalize(ctx, r, trx.GatewayReference, confirmed, rawStatus)
		if err != nil {
			return err
		}
		if !confirmed && updated != nil && updated.Status == domain.TransactionFailed {
			return rejectRegistration(ctx, r, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return &domain.ReconciliationResult{Disposition: domain.DispositionUnknownReference}, nil
	}

	switch {
	case outcome == domain.PaymentOutcomeConfirmed && updated.Status == domain.TransactionSuccessful:
		disposition, err := s.CompleteRegistration(ctx, updated.GatewayReference)
		if err != nil {
			return nil, err
		}
		if trx.Status != domain.TransactionPending && disposition == domain.DispositionDuplicate {
			return &domain.ReconciliationResult{Disposition: domain.DispositionDuplicate, Transaction: updated}, nil
		}
		return s.result(ctx, disposition, updated.GatewayReference)
	case outcome == domain.PaymentOutcomeFailed && updated.Status == domain.TransactionFailed:
		disposition := domain.DispositionFailed
		if trx.Status != domain.TransactionPending {
			disposition = domain.DispositionDuplicate
		}
		s.logger.Info("payment failed", "reference", updated.Reference, "gateway_status", rawStatus)
		return &domain.ReconciliationResult{Disposition: disposition, Transaction: updated}, nil
	}
	// The transaction already settled the other way.
	return &domain.ReconciliationResult{Disposition: domain.DispositionDuplicate, Transaction: updated}, nil
}

// rejectRegistration rejects the registration behind a failed payment. It
// leaves a registration that already left Pending alone.
func rejectRegistration(ctx context.Context, r domain.Repositories, trx *domain.Transaction) error {
	if trx.RegistrationID == nil {
		return nil
	}
	if err := r.Registrations().Reject(ctx, *trx.RegistrationID); err != nil {
		return fmt.Errorf("reject registration: %w", err)
	}
	return nil
}

func (s *reconciliationService) result(ctx context.Context, disposition domain.WebhookDisposition, gatewayReference string) (*domain.ReconciliationResult, error) {
	trx, err := s.store.Transactions().GetByGatewayReference(ctx, gatewayReference)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &domain.ReconciliationResult{Disposition: disposition, Transaction: trx}, nil
}

// CompleteRegistration approves the registration behind a Successful
// transaction at most once. The completion latch, the approval and the
// inventory increments commit together; the email goes out after commit.
func (s *reconciliationService) CompleteRegistration(ctx context.Context, gatewayReference string) (domain.WebhookDisposition, error) {
	trx, err := s.lookup(ctx, gatewayReference, s.store.Transactions().GetByGatewayReference)
	if err != nil {
		return "", err
	}
	if trx == nil {
		return domain.DispositionUnknownReference, nil
	}
	if trx.Status != domain.TransactionSuccessful {
		return domain.DispositionPending, nil
	}
	if trx.RegistrationID == nil || trx.RegistrationCompleted {
		return domain.DispositionDuplicate, nil
	}

	var (
		reg    *domain.Registration
		event  *domain.Event
		ticket *domain.Ticket
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		latched, err := r.Transactions().MarkRegistrationCompleted(ctx, gatewayReference)
		if err != nil {
			return fmt.Errorf("mark registration completed: %w", err)
		}
		if !latched {
			return errAlreadyCompleted
		}
		reg, err = r.Registrations().GetByID(ctx, *trx.RegistrationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrRegistrationNotFound
			}
			return fmt.Errorf("get registration: %w", err)
		}
		code, err := generateAccessCode()
		if err != nil {
			return fmt.Errorf("generate access code: %w", err)
		}
		if err := r.Registrations().Approve(ctx, reg.ID, code); err != nil {
			return fmt.Errorf("approve registration: %w", err)
		}
		reg.Status = domain.RegistrationApproved
		reg.AccessCode = &code

		var amount int64
		if trx.TicketID != nil {
			ticket, err = r.Tickets().GetByID(ctx, *trx.TicketID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrTicketNotFound
				}
				return fmt.Errorf("get ticket: %w", err)
			}
			amount = ticket.Amount
		}
		if err := s.inventory.ReserveOnApprove(ctx, r, trx.EventID, trx.TicketID, amount); err != nil {
			return err
		}
		event, err = r.Events().GetByID(ctx, trx.EventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyCompleted):
		return domain.DispositionDuplicate, nil
	case errors.Is(err, domain.ErrTicketUnavailable):
		return s.rejectSoldOut(ctx, trx)
	case err != nil:
		return "", err
	}

	s.logger.Info("registration approved", "registration_id", reg.ID, "reference", trx.Reference)
	if err := s.notifier.SendRegistrationConfirmation(ctx, event, reg, ticket); err != nil {
		s.logger.Error("registration email failed", "registration_id", reg.ID, "error", err)
	}
	return domain.DispositionApplied, nil
}

// rejectSoldOut closes out a paid registration whose tier filled up while it
// was pending. The payment has to be refunded out of band.
func (s *reconciliationService) rejectSoldOut(ctx context.Context, trx *domain.Transaction) (domain.WebhookDisposition, error) {
	var rejected bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		latched, err := r.Transactions().MarkRegistrationCompleted(ctx, trx.GatewayReference)
		if err != nil {
			return fmt.Errorf("mark registration completed: %w", err)
		}
		if !latched {
			return nil
		}
		rejected = true
		return r.Registrations().Reject(ctx, *trx.RegistrationID)
	})
	if err != nil {
		return "", err
	}
	if !rejected {
		return domain.DispositionDuplicate, nil
	}
	s.logger.Warn("tier sold out at approval, refund required",
		"registration_id", *trx.RegistrationID, "reference", trx.Reference, "amount", trx.Amount, "currency", trx.Currency)
	return domain.DispositionRejectedSoldOut, nil
}

// SweepPending re-verifies stale card payments and fails payments that
// stayed Pending past ExpireAfter.
func (s *reconciliationService) SweepPending(ctx context.Context) (int, error) {
	now := s.now()
	settled := 0

	if gateway, err := s.gateways.Get(domain.TransactionCard); err == nil {
		stale, err := s.store.Transactions().ListStalePending(ctx, domain.TransactionCard, now.Add(-s.sweep.StaleAfter), s.sweep.BatchSize)
		if err != nil {
			return settled, fmt.Errorf("list stale card transactions: %w", err)
		}
		for _, trx := range stale {
			raw, ok := s.sweepStatus(ctx, gateway, trx, now)
			if !ok {
				continue
			}
			res, err := s.apply(ctx, gateway, trx, raw)
			if err != nil {
				s.logger.Error("sweep apply failed", "reference", trx.Reference, "error", err)
				continue
			}
			if res.Disposition != domain.DispositionPending {
				settled++
			}
		}
	}

	if gateway, err := s.gateways.Get(domain.TransactionCrypto); err == nil {
		expired, err := s.store.Transactions().ListStalePending(ctx, domain.TransactionCrypto, now.Add(-s.sweep.ExpireAfter), s.sweep.BatchSize)
		if err != nil {
			return settled, fmt.Errorf("list expired crypto transactions: %w", err)
		}
		for _, trx := range expired {
			if _, err := s.apply(ctx, gateway, trx, ExpiredStatus); err != nil {
				s.logger.Error("sweep expire failed", "reference", trx.Reference, "error", err)
				continue
			}
			settled++
		}
	}
	return settled, nil
}

// sweepStatus asks the gateway for the status of a stale card payment.
func (s *reconciliationService) sweepStatus(ctx context.Context, gateway domain.PaymentGateway, trx *domain.Transaction, now time.Time) (string, bool) {
	v, err := gateway.Verify(ctx, trx.GatewayReference)
	if err != nil {
		s.logger.Warn("sweep verify failed", "reference", trx.Reference, "error", err)
		return "", false
	}
	return s.settleable(trx, v, now)
}

// settleable reports whether a pulled verification may settle trx. An
// unconfirmed payment only fails once it is past ExpireAfter, since the
// attendee may still be on the checkout page.
func (s *reconciliationService) settleable(trx *domain.Transaction, v *domain.PaymentVerification, now time.Time) (string, bool) {
	if v.Confirmed || now.Sub(trx.CreatedAt) >= s.sweep.ExpireAfter {
		return v.RawStatus, true
	}
	return "", false
}
