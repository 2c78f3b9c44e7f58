package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"eventticketing/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memState is the content of the in-memory store.
type memState struct {
	events        map[string]domain.Event
	tickets       map[string]domain.Ticket
	registrations map[string]domain.Registration
	transactions  map[string]domain.Transaction
	nextID        int
}

func newMemState() *memState {
	return &memState{
		events:        map[string]domain.Event{},
		tickets:       map[string]domain.Ticket{},
		registrations: map[string]domain.Registration{},
		transactions:  map[string]domain.Transaction{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	return c
}

// fakeStore is an in-memory domain.Store. WithinTx serialises units and
// works on a copy that replaces the state only on success. Because units
// never interleave here, concurrent tests check the service logic only; the
// store-side guards are the WHERE clauses of the ticket, event and
// transaction repositories, asserted in the postgres package tests.
type fakeStore struct {
	mu    sync.Mutex
	state *memState

	// failTransactionCreate makes Transactions().Create fail.
	failTransactionCreate error
	// failRejectOnce makes the next Registrations().Reject fail.
	failRejectOnce error
	txCount               int
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newMemState()}
}

func (s *fakeStore) repos(st *memState, inTx bool) *memRepos {
	return &memRepos{store: s, st: st, inTx: inTx}
}

func (s *fakeStore) Events() domain.EventRepository               { return s.repos(nil, false).Events() }
func (s *fakeStore) Tickets() domain.TicketRepository             { return s.repos(nil, false).Tickets() }
func (s *fakeStore) Registrations() domain.RegistrationRepository { return s.repos(nil, false).Registrations() }
func (s *fakeStore) Transactions() domain.TransactionRepository   { return s.repos(nil, false).Transactions() }

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	work := s.state.clone()
	if err := fn(ctx, s.repos(work, true)); err != nil {
		return err
	}
	s.state = work
	return nil
}

// snapshot returns a copy of the committed state.
func (s *fakeStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *fakeStore) seedEvent(e domain.Event, tickets ...domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.DashboardCode == "" {
		e.DashboardCode = "DASH" + e.ID
	}
	s.state.events[e.ID] = e
	for _, t := range tickets {
		t.EventID = e.ID
		s.state.tickets[t.ID] = t
	}
}

type memRepos struct {
	store *fakeStore
	st    *memState
	inTx  bool
}

func (r *memRepos) do(fn func(st *memState) error) error {
	if r.inTx {
		return fn(r.st)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r *memRepos) Events() domain.EventRepository               { return memEvents{r} }
func (r *memRepos) Tickets() domain.TicketRepository             { return memTickets{r} }
func (r *memRepos) Registrations() domain.RegistrationRepository { return memRegistrations{r} }
func (r *memRepos) Transactions() domain.TransactionRepository   { return memTransactions{r} }

type memEvents struct{ r *memRepos }

func (m memEvents) Create(ctx context.Context, e *domain.Event) error {
	return m.r.do(func(st *memState) error {
		for _, existing := range st.events {
			if existing.Name == e.Name {
				return domain.ErrDuplicateEventName
			}
		}
		st.nextID++
		e.ID = fmt.Sprintf("ev-%d", st.nextID)
		st.events[e.ID] = *e
		return nil
	})
}

func (m memEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var out *domain.Event
	err := m.r.do(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (m memEvents) GetByDashboardCode(ctx context.Context, code string) (*domain.Event, error) {
	var out *domain.Event
	err := m.r.do(func(st *memState) error {
		for _, e := range st.events {
			if e.DashboardCode == code {
				e := e
				out = &e
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (m memEvents) List(ctx context.Context, params domain.EventListParams) ([]*domain.Event, int, error) {
	var out []*domain.Event
	var total int
	now := time.Now()
	err := m.r.do(func(st *memState) error {
		all := make([]*domain.Event, 0, len(st.events))
		for _, e := range st.events {
			if params.ActiveOnly && !e.Active {
				continue
			}
			if params.UpcomingOnly && !e.Time.After(now) {
				continue
			}
			e := e
			all = append(all, &e)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		total = len(all)
		start := params.Offset()
		if start > total {
			start = total
		}
		end := start + params.Limit()
		if end > total {
			end = total
		}
		out = all[start:end]
		return nil
	})
	return out, total, err
}

func (m memEvents) IncrementRegistered(ctx context.Context, id string, amount int64) error {
	return m.r.do(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrNotFound
		}
		e.Registered++
		e.TotalAmount += amount
		st.events[id] = e
		return nil
	})
}

type memTickets struct{ r *memRepos }

func (m memTickets) Create(ctx context.Context, t *domain.Ticket) error {
	return m.r.do(func(st *memState) error {
		st.nextID++
		t.ID = fmt.Sprintf("tk-%d", st.nextID)
		st.tickets[t.ID] = *t
		return nil
	})
}

func (m memTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := m.r.do(func(st *memState) error {
		t, ok := st.tickets[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (m memTickets) ListByEventID(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	out := make([]*domain.Ticket, 0)
	err := m.r.do(func(st *memState) error {
		for _, t := range st.tickets {
			if t.EventID == eventID {
				t := t
				out = append(out, &t)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (m memTickets) IncrementRegistered(ctx context.Context, id string) error {
	return m.r.do(func(st *memState) error {
		t, ok := st.tickets[id]
		if !ok {
			return domain.ErrNotFound
		}
		if !t.Available() {
			return domain.ErrTicketUnavailable
		}
		t.Registered++
		st.tickets[id] = t
		return nil
	})
}

type memRegistrations struct{ r *memRepos }

func (m memRegistrations) Create(ctx context.Context, reg *domain.Registration) error {
	return m.r.do(func(st *memState) error {
		st.registrations[reg.ID] = *reg
		return nil
	})
}

func (m memRegistrations) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	var out *domain.Registration
	err := m.r.do(func(st *memState) error {
		reg, ok := st.registrations[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &reg
		return nil
	})
	return out, err
}

func (m memRegistrations) update(id string, fn func(reg *domain.Registration)) error {
	return m.r.do(func(st *memState) error {
		reg, ok := st.registrations[id]
		if !ok {
			return domain.ErrNotFound
		}
		fn(&reg)
		reg.UpdatedAt = time.Now()
		st.registrations[id] = reg
		return nil
	})
}

func (m memRegistrations) LinkTransaction(ctx context.Context, id, transactionID string) error {
	return m.update(id, func(reg *domain.Registration) { reg.TransactionID = &transactionID })
}

func (m memRegistrations) Approve(ctx context.Context, id, accessCode string) error {
	return m.update(id, func(reg *domain.Registration) {
		reg.Status = domain.RegistrationApproved
		reg.AccessCode = &accessCode
	})
}

func (m memRegistrations) Reject(ctx context.Context, id string) error {
	if err := m.r.store.failRejectOnce; err != nil {
		m.r.store.failRejectOnce = nil
		return err
	}
	err := m.update(id, func(reg *domain.Registration) {
		if reg.Status == domain.RegistrationPending {
			reg.Status = domain.RegistrationRejected
		}
	})
	if err == domain.ErrNotFound {
		return nil
	}
	return err
}

type memTransactions struct{ r *memRepos }

func (m memTransactions) Create(ctx context.Context, trx *domain.Transaction) error {
	if err := m.r.store.failTransactionCreate; err != nil {
		return err
	}
	return m.r.do(func(st *memState) error {
		for _, existing := range st.transactions {
			if existing.GatewayReference == trx.GatewayReference || existing.Reference == trx.Reference {
				return fmt.Errorf("duplicate reference %s", trx.Reference)
			}
		}
		st.transactions[trx.ID] = *trx
		return nil
	})
}

func findTransaction(st *memState, match func(domain.Transaction) bool) (domain.Transaction, bool) {
	for _, trx := range st.transactions {
		if match(trx) {
			return trx, true
		}
	}
	return domain.Transaction{}, false
}

func (m memTransactions) GetByGatewayReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := m.r.do(func(st *memState) error {
		trx, ok := findTransaction(st, func(t domain.Transaction) bool { return t.GatewayReference == ref })
		if !ok {
			return domain.ErrNotFound
		}
		out = &trx
		return nil
	})
	return out, err
}

func (m memTransactions) GetByReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := m.r.do(func(st *memState) error {
		trx, ok := findTransaction(st, func(t domain.Transaction) bool { return t.Reference == ref })
		if !ok {
			return domain.ErrNotFound
		}
		out = &trx
		return nil
	})
	return out, err
}

func (m memTransactions) Finalize(ctx context.Context, ref string, status domain.TransactionStatus, raw string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := m.r.do(func(st *memState) error {
		trx, ok := findTransaction(st, func(t domain.Transaction) bool { return t.GatewayReference == ref })
		if !ok {
			return nil
		}
		if trx.Status == domain.TransactionPending {
			trx.Status = status
			trx.GatewayStatus = &raw
			trx.UpdatedAt = time.Now()
			st.transactions[trx.ID] = trx
		}
		out = &trx
		return nil
	})
	return out, err
}

func (m memTransactions) MarkRegistrationCompleted(ctx context.Context, ref string) (bool, error) {
	var latched bool
	err := m.r.do(func(st *memState) error {
		trx, ok := findTransaction(st, func(t domain.Transaction) bool { return t.GatewayReference == ref })
		if !ok || trx.RegistrationCompleted || trx.RegistrationID == nil || trx.Status != domain.TransactionSuccessful {
			return nil
		}
		trx.RegistrationCompleted = true
		st.transactions[trx.ID] = trx
		latched = true
		return nil
	})
	return latched, err
}

func (m memTransactions) ListStalePending(ctx context.Context, trxType domain.TransactionType, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0)
	err := m.r.do(func(st *memState) error {
		for _, trx := range st.transactions {
			if trx.Status == domain.TransactionPending && trx.Type == trxType && trx.CreatedAt.Before(olderThan) {
				trx := trx
				out = append(out, &trx)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

// fakeGateway classifies statuses like the real adapters and records calls.
type fakeGateway struct {
	mu          sync.Mutex
	trxType     domain.TransactionType
	initErr     error
	verifyErr   error
	verifyRaw   string
	initialized []domain.PaymentRequest
	verified    []string
}

func (g *fakeGateway) Type() domain.TransactionType { return g.trxType }

func (g *fakeGateway) Initialize(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentInit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialized = append(g.initialized, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	if g.trxType == domain.TransactionCrypto {
		return &domain.PaymentInit{
			Reference:        req.Reference,
			GatewayReference: "token-" + req.Reference,
			PaymentLink:      "https://crypto.example/" + req.Reference,
			Amount:           req.CryptoAmount,
			Currency:         "USDC",
		}, nil
	}
	return &domain.PaymentInit{
		Reference:        req.Reference,
		GatewayReference: req.Reference,
		PaymentLink:      "https://card.example/" + req.Reference,
		Amount:           float64(req.Amount),
		Currency:         req.Currency,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, ref string) (*domain.PaymentVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified = append(g.verified, ref)
	if g.trxType == domain.TransactionCrypto {
		return nil, domain.ErrVerificationUnsupported
	}
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return &domain.PaymentVerification{Confirmed: g.verifyRaw == "success", RawStatus: g.verifyRaw}, nil
}

func (g *fakeGateway) Classify(raw string) domain.PaymentOutcome {
	if g.trxType == domain.TransactionCrypto {
		switch raw {
		case "paid":
			return domain.PaymentOutcomeConfirmed
		case "new", "pending", "confirming":
			return domain.PaymentOutcomePending
		}
		return domain.PaymentOutcomeFailed
	}
	if raw == "success" {
		return domain.PaymentOutcomeConfirmed
	}
	return domain.PaymentOutcomeFailed
}

// fakeWebhooks accepts only the signature "valid" and reads reference:status payloads.
type fakeWebhooks struct{}

func (fakeWebhooks) ParseWebhook(payload []byte, signature string) (*domain.PaymentNotification, error) {
	if signature != "valid" {
		return nil, domain.ErrInvalidSignature
	}
	var ref, status string
	for i, c := range string(payload) {
		if c == ':' {
			ref, status = string(payload[:i]), string(payload[i+1:])
			break
		}
	}
	return &domain.PaymentNotification{Reference: ref, RawStatus: status}, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(ref string, _ time.Duration) (string, error) { return "token-" + ref, nil }

func (fakeTokens) Verify(token string) (string, error) {
	if len(token) <= len("token-") || token[:len("token-")] != "token-" {
		return "", domain.ErrInvalidOrderToken
	}
	return token[len("token-"):], nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []string
	created       []string
	err           error
}

func (n *fakeNotifier) SendRegistrationConfirmation(ctx context.Context, event *domain.Event, reg *domain.Registration, ticket *domain.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.confirmations = append(n.confirmations, reg.ID)
	return nil
}

func (n *fakeNotifier) SendEventCreated(ctx context.Context, event *domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.created = append(n.created, event.ID)
	return nil
}

func (n *fakeNotifier) sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmations)
}

type fakeConverter struct {
	rate float64
	err  error
}

func (c fakeConverter) Convert(ctx context.Context, amount float64, fiat string) (float64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return amount / c.rate, nil
}
