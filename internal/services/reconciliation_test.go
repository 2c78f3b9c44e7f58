package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventticketing/internal/domain"
)

// registerCard creates a pending card registration and returns its transaction.
func registerCard(t *testing.T, h *harness, eventID, ticketID, email string) domain.Transaction {
	t.Helper()
	res, err := h.register.Register(context.Background(), domain.RegisterInput{
		EventID: eventID, TicketID: strPtr(ticketID), FullName: "Attendee", Email: email, PaymentType: "Card",
	})
	require.NoError(t, err)
	return h.store.snapshot().transactions[*res.Registration.TransactionID]
}

func registerCrypto(t *testing.T, h *harness, eventID, ticketID string) domain.Transaction {
	t.Helper()
	res, err := h.register.Register(context.Background(), domain.RegisterInput{
		EventID: eventID, TicketID: strPtr(ticketID), FullName: "Attendee", Email: "crypto@example.com", PaymentType: "Crypto",
	})
	require.NoError(t, err)
	return h.store.snapshot().transactions[*res.Registration.TransactionID]
}

func TestReconciliation_CardWebhook_ApprovesOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 1))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")

	payload := []byte(trx.GatewayReference + ":success")
	res, err := h.reconcile.HandleCardWebhook(ctx, payload, "valid")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionApplied, res.Disposition)

	st := h.store.snapshot()
	reg := st.registrations[*trx.RegistrationID]
	assert.Equal(t, domain.RegistrationApproved, reg.Status)
	require.NotNil(t, reg.AccessCode)
	assert.Equal(t, 1, st.tickets["tk-1"].Registered)
	assert.Equal(t, 1, st.events["ev-1"].Registered)
	assert.Equal(t, int64(5000), st.events["ev-1"].TotalAmount)
	stored := st.transactions[trx.ID]
	assert.Equal(t, domain.TransactionSuccessful, stored.Status)
	assert.True(t, stored.RegistrationCompleted)
	assert.Equal(t, 1, h.notifier.sent())

	// Replays leave everything unchanged.
	for i := 0; i < 3; i++ {
		res, err = h.reconcile.HandleCardWebhook(ctx, payload, "valid")
		require.NoError(t, err)
		assert.Equal(t, domain.DispositionDuplicate, res.Disposition)
	}
	after := h.store.snapshot()
	assert.Equal(t, st.events["ev-1"], after.events["ev-1"])
	assert.Equal(t, st.tickets["tk-1"], after.tickets["tk-1"])
	assert.Equal(t, *reg.AccessCode, *after.registrations[reg.ID].AccessCode)
	assert.Equal(t, 1, h.notifier.sent())
}

func TestReconciliation_ConcurrentDuplicateWebhooks(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 0))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")
	payload := []byte(trx.GatewayReference + ":success")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.reconcile.HandleCardWebhook(ctx, payload, "valid")
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.reconcile.HandleCallback(ctx, trx.Reference)
		assert.NoError(t, err)
	}()
	wg.Wait()

	st := h.store.snapshot()
	assert.Equal(t, 1, st.events["ev-1"].Registered)
	assert.Equal(t, 1, st.tickets["tk-1"].Registered)
	assert.Equal(t, int64(5000), st.events["ev-1"].TotalAmount)
	assert.Equal(t, 1, h.notifier.sent())
}

func TestReconciliation_InvalidSignatureNeverMutates(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 1))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")
	before := h.store.snapshot()

	for _, sig := range []string{"", "short", "forged-signature-of-the-right-length"} {
		res, err := h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":success"), sig)
		require.NoError(t, err)
		assert.Equal(t, domain.DispositionInvalidSignature, res.Disposition)
	}
	assert.Equal(t, before.transactions, h.store.snapshot().transactions)
	assert.Equal(t, before.registrations, h.store.snapshot().registrations)
	assert.Equal(t, 0, h.notifier.sent())
}

func TestReconciliation_UnknownReferenceIsNeutral(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	res, err := h.reconcile.HandleCardWebhook(ctx, []byte("TKT-nope:success"), "valid")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionUnknownReference, res.Disposition)

	res, err = h.reconcile.HandleCryptoWebhook(ctx, domain.CryptoCallback{Status: "paid", OrderID: "TKT-nope", Token: "token-TKT-nope"})
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionUnknownReference, res.Disposition)

	_, err = h.reconcile.HandleCallback(ctx, "TKT-nope")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	disposition, err := h.reconcile.CompleteRegistration(ctx, "TKT-nope")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionUnknownReference, disposition)
}

func TestTransactionLedger_FinalizeUnknownReference(t *testing.T) {
	store := newFakeStore()
	trx, err := NewTransactionLedger().Finalize(context.Background(), store, "missing", true, "success")
	require.NoError(t, err)
	require.Nil(t, trx)
}

func TestReconciliation_CardFailureRejectsRegistration(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 1))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")

	res, err := h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":failed"), "valid")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionFailed, res.Disposition)

	st := h.store.snapshot()
	assert.Equal(t, domain.TransactionFailed, st.transactions[trx.ID].Status)
	assert.Equal(t, "failed", *st.transactions[trx.ID].GatewayStatus)
	assert.Equal(t, domain.RegistrationRejected, st.registrations[*trx.RegistrationID].Status)
	assert.Equal(t, 0, st.tickets["tk-1"].Registered)

	// A late success does not resurrect a failed payment.
	res, err = h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":success"), "valid")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionDuplicate, res.Disposition)
	assert.Equal(t, 0, h.store.snapshot().events["ev-1"].Registered)
}

func TestReconciliation_Callback(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 0))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")

	res, err := h.reconcile.HandleCallback(ctx, trx.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionApplied, res.Disposition)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, domain.TransactionSuccessful, res.Transaction.Status)
	assert.True(t, res.Transaction.RegistrationCompleted)
	assert.Equal(t, []string{trx.GatewayReference}, h.card.verified)

	res, err = h.reconcile.HandleCallback(ctx, trx.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionDuplicate, res.Disposition)
	assert.Len(t, h.card.verified, 1, "terminal transactions are not re-verified")
}

func TestReconciliation_CryptoWebhook(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name            string
		callback        func(trx domain.Transaction) domain.CryptoCallback
		wantDisposition domain.WebhookDisposition
		wantTrxStatus   domain.TransactionStatus
		wantRegStatus   domain.RegistrationStatus
	}{
		{
			name: "paid",
			callback: func(trx domain.Transaction) domain.CryptoCallback {
				return domain.CryptoCallback{Status: "paid", OrderID: trx.Reference, Token: trx.GatewayReference}
			},
			wantDisposition: domain.DispositionApplied,
			wantTrxStatus:   domain.TransactionSuccessful,
			wantRegStatus:   domain.RegistrationApproved,
		},
		{
			name: "confirming is a no-op",
			callback: func(trx domain.Transaction) domain.CryptoCallback {
				return domain.CryptoCallback{Status: "confirming", OrderID: trx.Reference, Token: trx.GatewayReference}
			},
			wantDisposition: domain.DispositionPending,
			wantTrxStatus:   domain.TransactionPending,
			wantRegStatus:   domain.RegistrationPending,
		},
		{
			name: "expired fails",
			callback: func(trx domain.Transaction) domain.CryptoCallback {
				return domain.CryptoCallback{Status: "expired", OrderID: trx.Reference, Token: trx.GatewayReference}
			},
			wantDisposition: domain.DispositionFailed,
			wantTrxStatus:   domain.TransactionFailed,
			wantRegStatus:   domain.RegistrationRejected,
		},
		{
			name: "token mismatch",
			callback: func(trx domain.Transaction) domain.CryptoCallback {
				return domain.CryptoCallback{Status: "paid", OrderID: trx.Reference, Token: "token-TKT-other"}
			},
			wantDisposition: domain.DispositionInvalidSignature,
			wantTrxStatus:   domain.TransactionPending,
			wantRegStatus:   domain.RegistrationPending,
		},
		{
			name: "missing token",
			callback: func(trx domain.Transaction) domain.CryptoCallback {
				return domain.CryptoCallback{Status: "paid", OrderID: trx.Reference}
			},
			wantDisposition: domain.DispositionInvalidSignature,
			wantTrxStatus:   domain.TransactionPending,
			wantRegStatus:   domain.RegistrationPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 3000, 5))
			trx := registerCrypto(t, h, "ev-1", "tk-1")

			res, err := h.reconcile.HandleCryptoWebhook(ctx, tt.callback(trx))
			require.NoError(t, err)
			assert.Equal(t, tt.wantDisposition, res.Disposition)

			st := h.store.snapshot()
			assert.Equal(t, tt.wantTrxStatus, st.transactions[trx.ID].Status)
			assert.Equal(t, tt.wantRegStatus, st.registrations[*trx.RegistrationID].Status)
		})
	}
}

func TestReconciliation_CryptoCallbackPullIsPending(t *testing.T) {
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 3000, 5))
	trx := registerCrypto(t, h, "ev-1", "tk-1")

	res, err := h.reconcile.HandleCallback(context.Background(), trx.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionPending, res.Disposition)
	assert.Equal(t, domain.TransactionPending, h.store.snapshot().transactions[trx.ID].Status)
}

func TestReconciliation_ConcurrentApprovalsNeverOversell(t *testing.T) {
	ctx := context.Background()
	const capacity = 3
	const buyers = 5

	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, capacity))

	// Pending registrations do not hold capacity, so all buyers get a link.
	trxs := make([]domain.Transaction, 0, buyers)
	for i := 0; i < buyers; i++ {
		trxs = append(trxs, registerCard(t, h, "ev-1", "tk-1", fmt.Sprintf("buyer%d@example.com", i)))
	}

	results := make(chan domain.WebhookDisposition, buyers)
	var wg sync.WaitGroup
	for _, trx := range trxs {
		wg.Add(1)
		go func(trx domain.Transaction) {
			defer wg.Done()
			res, err := h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":success"), "valid")
			assert.NoError(t, err)
			results <- res.Disposition
		}(trx)
	}
	wg.Wait()
	close(results)

	counts := map[domain.WebhookDisposition]int{}
	for d := range results {
		counts[d]++
	}
	assert.Equal(t, capacity, counts[domain.DispositionApplied])
	assert.Equal(t, buyers-capacity, counts[domain.DispositionRejectedSoldOut])

	st := h.store.snapshot()
	assert.Equal(t, capacity, st.tickets["tk-1"].Registered)
	assert.Equal(t, capacity, st.events["ev-1"].Registered)
	assert.Equal(t, int64(capacity*5000), st.events["ev-1"].TotalAmount)

	approved, rejected := 0, 0
	for _, reg := range st.registrations {
		switch reg.Status {
		case domain.RegistrationApproved:
			approved++
		case domain.RegistrationRejected:
			rejected++
			assert.Nil(t, reg.AccessCode)
		}
	}
	assert.Equal(t, capacity, approved)
	assert.Equal(t, buyers-capacity, rejected)
	for _, trx := range st.transactions {
		assert.True(t, trx.RegistrationCompleted)
	}
	assert.Equal(t, capacity, h.notifier.sent())
}

func TestReconciliation_SweepPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 0))

	fresh := registerCard(t, h, "ev-1", "tk-1", "fresh@example.com")
	stale := registerCard(t, h, "ev-1", "tk-1", "stale@example.com")
	crypto := registerCrypto(t, h, "ev-1", "tk-1")

	svc := h.reconcile.(*reconciliationService)
	base := time.Now()
	h.store.mu.Lock()
	for id, trx := range h.store.state.transactions {
		switch id {
		case stale.ID:
			trx.CreatedAt = base.Add(-time.Hour)
		case crypto.ID:
			trx.CreatedAt = base.Add(-48 * time.Hour)
		}
		h.store.state.transactions[id] = trx
	}
	h.store.mu.Unlock()
	svc.now = func() time.Time { return base }

	settled, err := h.reconcile.SweepPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	st := h.store.snapshot()
	assert.Equal(t, domain.TransactionPending, st.transactions[fresh.ID].Status)
	assert.Equal(t, domain.TransactionSuccessful, st.transactions[stale.ID].Status)
	assert.Equal(t, domain.RegistrationApproved, st.registrations[*stale.RegistrationID].Status)
	assert.Equal(t, domain.TransactionFailed, st.transactions[crypto.ID].Status)
	assert.Equal(t, ExpiredStatus, *st.transactions[crypto.ID].GatewayStatus)
	assert.Equal(t, domain.RegistrationRejected, st.registrations[*crypto.RegistrationID].Status)
	assert.Equal(t, []string{stale.GatewayReference}, h.card.verified)
}

func TestReconciliation_SweepKeepsRecentUnpaidCard(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.card.verifyRaw = "abandoned"
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 0))
	trx := registerCard(t, h, "ev-1", "tk-1", "slow@example.com")

	svc := h.reconcile.(*reconciliationService)
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	settled, err := h.reconcile.SweepPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, domain.TransactionPending, h.store.snapshot().transactions[trx.ID].Status)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	settled, err = h.reconcile.SweepPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, domain.TransactionFailed, h.store.snapshot().transactions[trx.ID].Status)
}

func TestReconciliation_SweepLeavesUnverifiableCardPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 0))
	trx := registerCard(t, h, "ev-1", "tk-1", "offline@example.com")
	h.card.verifyErr = &domain.GatewayError{Provider: "paystack", Op: "verify", StatusCode: 503}

	svc := h.reconcile.(*reconciliationService)
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	settled, err := h.reconcile.SweepPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, domain.TransactionPending, h.store.snapshot().transactions[trx.ID].Status)
}

func TestReconciliation_FailedPaymentRollsBackWhenRejectFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 1))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")
	h.store.failRejectOnce = errors.New("connection reset")

	_, err := h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":failed"), "valid")
	require.Error(t, err)

	st := h.store.snapshot()
	assert.Equal(t, domain.TransactionPending, st.transactions[trx.ID].Status, "finalize must roll back with the rejection")
	assert.Equal(t, domain.RegistrationPending, st.registrations[*trx.RegistrationID].Status)

	res, err := h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":failed"), "valid")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionFailed, res.Disposition)

	st = h.store.snapshot()
	assert.Equal(t, domain.TransactionFailed, st.transactions[trx.ID].Status)
	assert.Equal(t, domain.RegistrationRejected, st.registrations[*trx.RegistrationID].Status)
}

func TestReconciliation_CallbackRejectsRegistrationBehindFailedPayment(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 1))
	trx := registerCard(t, h, "ev-1", "tk-1", "ada@example.com")

	// A Failed transaction whose registration was left Pending.
	h.store.mu.Lock()
	stored := h.store.state.transactions[trx.ID]
	stored.Status = domain.TransactionFailed
	stored.GatewayStatus = strPtr("failed")
	h.store.state.transactions[trx.ID] = stored
	h.store.mu.Unlock()

	res, err := h.reconcile.HandleCallback(ctx, trx.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionDuplicate, res.Disposition)
	assert.Empty(t, h.card.verified, "terminal transactions are not re-verified")

	st := h.store.snapshot()
	assert.Equal(t, domain.TransactionFailed, st.transactions[trx.ID].Status)
	assert.Equal(t, domain.RegistrationRejected, st.registrations[*trx.RegistrationID].Status)
}

func TestReconciliation_CallbackKeepsUnpaidCardPendingUntilExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.card.verifyRaw = "abandoned"
	h.store.seedEvent(paidEvent("ev-1"), tier("tk-1", 5000, 0))
	trx := registerCard(t, h, "ev-1", "tk-1", "checkout@example.com")

	res, err := h.reconcile.HandleCallback(ctx, trx.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionPending, res.Disposition)
	assert.Equal(t, domain.RegistrationPending, h.store.snapshot().registrations[*trx.RegistrationID].Status)

	// The attendee completes checkout and the webhook still applies.
	res, err = h.reconcile.HandleCardWebhook(ctx, []byte(trx.GatewayReference+":success"), "valid")
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionApplied, res.Disposition)
	assert.Equal(t, domain.RegistrationApproved, h.store.snapshot().registrations[*trx.RegistrationID].Status)

	expired := registerCard(t, h, "ev-1", "tk-1", "gone@example.com")
	svc := h.reconcile.(*reconciliationService)
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	res, err = h.reconcile.HandleCallback(ctx, expired.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.DispositionFailed, res.Disposition)
	assert.Equal(t, domain.RegistrationRejected, h.store.snapshot().registrations[*expired.RegistrationID].Status)
}
