package services

import (
	"time"

	"eventticketing/internal/domain"
)

type harness struct {
	store     *fakeStore
	card      *fakeGateway
	crypto    *fakeGateway
	notifier  *fakeNotifier
	register  domain.RegistrationService
	reconcile domain.ReconciliationService
}

func newHarness() *harness {
	store := newFakeStore()
	card := &fakeGateway{trxType: domain.TransactionCard, verifyRaw: "success"}
	crypto := &fakeGateway{trxType: domain.TransactionCrypto}
	notifier := &fakeNotifier{}
	gateways := domain.NewPaymentGateways(card, crypto)
	inventory := NewInventoryService(store.Tickets())
	ledger := NewTransactionLedger()
	logger := testLogger()

	return &harness{
		store:    store,
		card:     card,
		crypto:   crypto,
		notifier: notifier,
		register: NewRegistrationService(store, inventory, ledger, gateways, fakeConverter{rate: 1500}, notifier, logger),
		reconcile: NewReconciliationService(store, ledger, inventory, gateways, fakeWebhooks{}, fakeTokens{}, notifier, logger,
			SweepConfig{StaleAfter: 15 * time.Minute, ExpireAfter: 24 * time.Hour, BatchSize: 10}),
	}
}

func strPtr(s string) *string { return &s }

func freeEvent(id string) domain.Event {
	return domain.Event{ID: id, Name: "Meetup " + id, Active: true, Time: time.Now().Add(24 * time.Hour)}
}

func paidEvent(id string) domain.Event {
	e := freeEvent(id)
	e.Name = "Conf " + id
	e.Paid = true
	return e
}

func tier(id string, amount int64, quantity int) domain.Ticket {
	return domain.Ticket{ID: id, Name: "Tier " + id, Amount: amount, Currency: "NGN", Quantity: quantity}
}
