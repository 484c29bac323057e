package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// memState bellek içi tablo seti
type memState struct {
	balances  map[string]models.UserBalance
	mutations []models.BalanceMutation
	debits    map[string]models.DebitRecord
	events    map[string]models.PaymentEvent
	orders    map[string]models.Order
	nextID    int64
}

func newMemState() *memState {
	return &memState{
		balances: map[string]models.UserBalance{},
		debits:   map[string]models.DebitRecord{},
		events:   map[string]models.PaymentEvent{},
		orders:   map[string]models.Order{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.balances {
		v.LastMutationMeta = cloneMeta(v.LastMutationMeta)
		c.balances[k] = v
	}
	c.mutations = append([]models.BalanceMutation(nil), s.mutations...)
	for k, v := range s.debits {
		c.debits[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.nextID = s.nextID
	return c
}

func cloneMeta(m models.MutationMeta) models.MutationMeta {
	if m == nil {
		return nil
	}
	c := make(models.MutationMeta, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// memStore tüm transaction'ları sıraya sokan, hata durumunda geri alan sahte store.
// SERIALIZABLE izolasyonun gözlemlenebilir davranışını taklit eder.
type memStore struct {
	mu        sync.Mutex
	state     *memState
	failures  map[string]error
	commits   int
	rollbacks int
	now       func() time.Time
}

var _ interfaces.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		state:    newMemState(),
		failures: map[string]error{},
		now:      time.Now,
	}
}

// failOn op çağrıldığında err döndürür (ör. "orders.MarkPaid")
func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repos interfaces.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &apperrors.RetryableError{Op: "transaction", Err: err}
	}

	work := s.state.clone()
	if err := fn(&memRepos{store: s, st: work}); err != nil {
		s.rollbacks++
		return err
	}
	s.state = work
	s.commits++
	return nil
}

func (s *memStore) direct() *memRepos { return &memRepos{store: s, direct: true} }

func (s *memStore) Balances() interfaces.BalanceRepositoryInterface     { return s.direct().Balances() }
func (s *memStore) Mutations() interfaces.MutationRepositoryInterface   { return s.direct().Mutations() }
func (s *memStore) DebitRecords() interfaces.DebitRecordRepositoryInterface {
	return s.direct().DebitRecords()
}
func (s *memStore) PaymentEvents() interfaces.PaymentEventRepositoryInterface {
	return s.direct().PaymentEvents()
}
func (s *memStore) Orders() interfaces.OrderRepositoryInterface { return s.direct().Orders() }

// seedBalance testler için doğrudan bakiye yazar
func (s *memStore) seedBalance(userID string, remaining, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.balances[userID] = models.UserBalance{UserID: userID, CreditsRemaining: remaining, CreditsTotal: total}
}

func (s *memStore) balance(userID string) (models.UserBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.balances[userID]
	return b, ok
}

func (s *memStore) mutationCount(userID string, reason models.MutationReason) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.state.mutations {
		if m.UserID == userID && m.Reason == reason {
			n++
		}
	}
	return n
}

func (s *memStore) event(eventID string) (models.PaymentEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.events[eventID]
	return e, ok
}

func (s *memStore) order(sessionID string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[sessionID]
	return o, ok
}

// memRepos tx içinde çalışma kopyası, dışında store state'i üzerinde çalışır
type memRepos struct {
	store  *memStore
	st     *memState
	direct bool
}

func (r *memRepos) do(op string, fn func(st *memState) error) error {
	if r.direct {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		if err := r.store.failures[op]; err != nil {
			return err
		}
		return fn(r.store.state)
	}
	if err := r.store.failures[op]; err != nil {
		return err
	}
	return fn(r.st)
}

func (r *memRepos) Balances() interfaces.BalanceRepositoryInterface         { return &memBalances{r} }
func (r *memRepos) Mutations() interfaces.MutationRepositoryInterface       { return &memMutations{r} }
func (r *memRepos) DebitRecords() interfaces.DebitRecordRepositoryInterface { return &memDebits{r} }
func (r *memRepos) PaymentEvents() interfaces.PaymentEventRepositoryInterface {
	return &memEvents{r}
}
func (r *memRepos) Orders() interfaces.OrderRepositoryInterface { return &memOrders{r} }

type memBalances struct{ *memRepos }

func (r *memBalances) GetByUserID(ctx context.Context, userID string) (*models.UserBalance, error) {
	var out *models.UserBalance
	err := r.do("balances.GetByUserID", func(st *memState) error {
		b, ok := st.balances[userID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "bakiye", ID: userID}
		}
		b.LastMutationMeta = cloneMeta(b.LastMutationMeta)
		out = &b
		return nil
	})
	return out, err
}

func (r *memBalances) GetForUpdate(ctx context.Context, userID string) (*models.UserBalance, error) {
	var out *models.UserBalance
	err := r.do("balances.GetForUpdate", func(st *memState) error {
		b, ok := st.balances[userID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "bakiye", ID: userID}
		}
		b.LastMutationMeta = cloneMeta(b.LastMutationMeta)
		out = &b
		return nil
	})
	return out, err
}

func (r *memBalances) CreateIfAbsent(ctx context.Context, userID string) (bool, error) {
	created := false
	err := r.do("balances.CreateIfAbsent", func(st *memState) error {
		if _, ok := st.balances[userID]; ok {
			return nil
		}
		now := r.store.now()
		st.balances[userID] = models.UserBalance{UserID: userID, CreatedAt: now, UpdatedAt: now}
		created = true
		return nil
	})
	return created, err
}

func (r *memBalances) Update(ctx context.Context, balance *models.UserBalance) error {
	return r.do("balances.Update", func(st *memState) error {
		if _, ok := st.balances[balance.UserID]; !ok {
			return &apperrors.NotFoundError{Resource: "bakiye", ID: balance.UserID}
		}
		balance.UpdatedAt = r.store.now()
		b := *balance
		b.LastMutationMeta = cloneMeta(balance.LastMutationMeta)
		st.balances[balance.UserID] = b
		return nil
	})
}

type memMutations struct{ *memRepos }

func (r *memMutations) Append(ctx context.Context, m *models.BalanceMutation) error {
	return r.do("mutations.Append", func(st *memState) error {
		st.nextID++
		m.ID = st.nextID
		m.CreatedAt = r.store.now()
		c := *m
		c.Meta = cloneMeta(m.Meta)
		st.mutations = append(st.mutations, c)
		return nil
	})
}

func (r *memMutations) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.BalanceMutation, error) {
	var out []*models.BalanceMutation
	err := r.do("mutations.ListByUserID", func(st *memState) error {
		var all []models.BalanceMutation
		for _, m := range st.mutations {
			if m.UserID == userID {
				all = append(all, m)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
		for i := offset; i < len(all) && len(out) < limit; i++ {
			m := all[i]
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

type memDebits struct{ *memRepos }

func (r *memDebits) Claim(ctx context.Context, record *models.DebitRecord) (bool, error) {
	claimed := false
	err := r.do("debits.Claim", func(st *memState) error {
		if _, ok := st.debits[record.RequestID]; ok {
			return nil
		}
		record.Status = models.DebitClaimed
		record.CreatedAt = r.store.now()
		st.debits[record.RequestID] = *record
		claimed = true
		return nil
	})
	return claimed, err
}

func (r *memDebits) GetByRequestID(ctx context.Context, requestID string) (*models.DebitRecord, error) {
	var out *models.DebitRecord
	err := r.do("debits.GetByRequestID", func(st *memState) error {
		d, ok := st.debits[requestID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "debit kaydı", ID: requestID}
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *memDebits) Complete(ctx context.Context, requestID string, result models.BalanceSnapshot) error {
	return r.do("debits.Complete", func(st *memState) error {
		d, ok := st.debits[requestID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "debit kaydı", ID: requestID}
		}
		now := r.store.now()
		d.Status = models.DebitCompleted
		d.CreditsRemaining = result.CreditsRemaining
		d.CreditsTotal = result.CreditsTotal
		d.CompletedAt = &now
		st.debits[requestID] = d
		return nil
	})
}

func (r *memDebits) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.do("debits.DeleteOlderThan", func(st *memState) error {
		for k, d := range st.debits {
			if d.CreatedAt.Before(cutoff) {
				delete(st.debits, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memEvents struct{ *memRepos }

func (r *memEvents) Exists(ctx context.Context, eventID string) (bool, error) {
	exists := false
	err := r.do("events.Exists", func(st *memState) error {
		_, exists = st.events[eventID]
		return nil
	})
	return exists, err
}

func (r *memEvents) Claim(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	claimed := false
	err := r.do("events.Claim", func(st *memState) error {
		if _, ok := st.events[event.EventID]; ok {
			return nil
		}
		event.ProcessedAt = r.store.now()
		st.events[event.EventID] = *event
		claimed = true
		return nil
	})
	return claimed, err
}

func (r *memEvents) GetByEventID(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	var out *models.PaymentEvent
	err := r.do("events.GetByEventID", func(st *memState) error {
		e, ok := st.events[eventID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "event", ID: eventID}
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *memEvents) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.do("events.DeleteOlderThan", func(st *memState) error {
		for k, e := range st.events {
			if e.ProcessedAt.Before(cutoff) {
				delete(st.events, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memOrders struct{ *memRepos }

func (r *memOrders) CreatePending(ctx context.Context, order *models.Order) (bool, error) {
	created := false
	err := r.do("orders.CreatePending", func(st *memState) error {
		if _, ok := st.orders[order.SessionID]; ok {
			return nil
		}
		now := r.store.now()
		order.Status = models.OrderPending
		order.CreatedAt = now
		order.UpdatedAt = now
		st.orders[order.SessionID] = *order
		created = true
		return nil
	})
	return created, err
}

func (r *memOrders) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var out *models.Order
	err := r.do("orders.GetBySessionID", func(st *memState) error {
		o, ok := st.orders[sessionID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "sipariş", ID: sessionID}
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *memOrders) GetForUpdate(ctx context.Context, sessionID string) (*models.Order, error) {
	var out *models.Order
	err := r.do("orders.GetForUpdate", func(st *memState) error {
		o, ok := st.orders[sessionID]
		if !ok {
			return &apperrors.NotFoundError{Resource: "sipariş", ID: sessionID}
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *memOrders) MarkPaid(ctx context.Context, order *models.Order) error {
	return r.do("orders.MarkPaid", func(st *memState) error {
		existing, ok := st.orders[order.SessionID]
		if !ok || existing.Status != models.OrderPending {
			return &apperrors.DuplicateError{Key: order.SessionID}
		}
		now := r.store.now()
		order.Status = models.OrderPaid
		order.PaidAt = &now
		order.UpdatedAt = now
		order.CreatedAt = existing.CreatedAt
		st.orders[order.SessionID] = *order
		return nil
	})
}

func (r *memOrders) HasPaidOrder(ctx context.Context, userID, excludeSessionID string) (bool, error) {
	has := false
	err := r.do("orders.HasPaidOrder", func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID == userID && o.Status == models.OrderPaid && o.SessionID != excludeSessionID {
				has = true
				return nil
			}
		}
		return nil
	})
	return has, err
}

func (r *memOrders) DeletePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.do("orders.DeletePendingOlderThan", func(st *memState) error {
		for k, o := range st.orders {
			if o.Status == models.OrderPending && o.CreatedAt.Before(cutoff) {
				delete(st.orders, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// MockPaymentProvider, PaymentProvider için sahte (mock) bir yapıdır.
type MockPaymentProvider struct {
	mock.Mock
}

var _ interfaces.PaymentProvider = (*MockPaymentProvider)(nil)

func (m *MockPaymentProvider) VerifyWebhook(payload []byte, signature string) (*models.ProviderEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderEvent), args.Error(1)
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, req *models.CheckoutSessionRequest) (*models.CheckoutSessionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSessionResult), args.Error(1)
}

func (m *MockPaymentProvider) GetSession(ctx context.Context, sessionID string) (*models.ProviderSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderSession), args.Error(1)
}

// memSeenCache bellek içi seen cache
type memSeenCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

var _ interfaces.SeenCache = (*memSeenCache)(nil)

func newMemSeenCache() *memSeenCache { return &memSeenCache{keys: map[string]bool{}} }

func (c *memSeenCache) Seen(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[key], nil
}

func (c *memSeenCache) MarkSeen(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = true
	return nil
}
