package credit

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memState struct {
	users    map[string]bool
	balances map[string]*Balance
	txs      []*Transaction
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[string]bool, len(s.users)),
		balances: make(map[string]*Balance, len(s.balances)),
		txs:      make([]*Transaction, 0, len(s.txs)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.balances {
		b := *v
		c.balances[k] = &b
	}
	for _, t := range s.txs {
		c.txs = append(c.txs, copyTx(t))
	}
	return c
}

func copyTx(t *Transaction) *Transaction {
	c := *t
	if t.RemainingAmount != nil {
		r := *t.RemainingAmount
		c.RemainingAmount = &r
	}
	return &c
}

// memDB serializes transactions on one mutex, which stands in for the
// balance row lock. Commits swap in the cloned state.
type memDB struct {
	mu sync.Mutex
	st *memState

	// insertHook runs before each insert inside a transaction.
	insertHook func(t *Transaction) error
	// afterRollback runs on the committed state after a failed transaction.
	afterRollback func(st *memState)
}

type memStore struct {
	db   *memDB
	st   *memState
	inTx bool
}

func newMemStore(users ...string) *memStore {
	st := &memState{users: map[string]bool{}, balances: map[string]*Balance{}}
	for _, u := range users {
		st.users[u] = true
	}
	return &memStore{db: &memDB{st: st}}
}

func (s *memStore) view(fn func(st *memState) error) error {
	if s.inTx {
		return fn(s.st)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.st.clone()
	if err := fn(ctx, &memStore{db: s.db, st: work, inTx: true}); err != nil {
		if s.db.afterRollback != nil {
			s.db.afterRollback(s.db.st)
			s.db.afterRollback = nil
		}
		return err
	}
	s.db.st = work
	return nil
}

func (s *memStore) UserExists(_ context.Context, userID string) (bool, error) {
	var ok bool
	err := s.view(func(st *memState) error {
		ok = st.users[userID]
		return nil
	})
	return ok, err
}

func (s *memStore) EnsureBalance(_ context.Context, userID string) error {
	return s.view(func(st *memState) error {
		if !st.users[userID] {
			return ErrUserNotFound
		}
		if _, ok := st.balances[userID]; !ok {
			st.balances[userID] = &Balance{ID: "bal-" + userID, UserID: userID}
		}
		return nil
	})
}

func (s *memStore) LockBalance(ctx context.Context, userID string) (*Balance, error) {
	return s.GetBalance(ctx, userID)
}

func (s *memStore) GetBalance(_ context.Context, userID string) (*Balance, error) {
	var out *Balance
	err := s.view(func(st *memState) error {
		if b, ok := st.balances[userID]; ok {
			c := *b
			out = &c
		}
		return nil
	})
	return out, err
}

func (s *memStore) SetBalance(_ context.Context, userID string, credits int64, at time.Time) error {
	return s.view(func(st *memState) error {
		b, ok := st.balances[userID]
		if !ok {
			return ErrInternal
		}
		b.CurrentCredits = credits
		b.UpdatedAt = at
		return nil
	})
}

func (s *memStore) FindByIdempotencyKey(_ context.Context, userID string, txType TxType, key string) (*Transaction, error) {
	var out *Transaction
	err := s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.UserID != userID || t.Type != txType {
				continue
			}
			if (t.IdempotencyKey != nil && *t.IdempotencyKey == key) || (t.PaymentID != nil && *t.PaymentID == key) {
				out = copyTx(t)
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *memStore) ListLots(_ context.Context, userID string, at time.Time) ([]Transaction, error) {
	var lots []Transaction
	err := s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.UserID != userID || !t.Type.IsGrant() || t.Remaining() <= 0 {
				continue
			}
			if t.ExpirationDate != nil && !t.ExpirationDate.After(at) {
				continue
			}
			lots = append(lots, *copyTx(t))
		}
		return nil
	})
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i].ExpirationDate, lots[j].ExpirationDate
		switch {
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return lots[i].CreatedAt.Before(lots[j].CreatedAt)
	})
	return lots, err
}

func (s *memStore) SetRemaining(_ context.Context, txID string, remaining int64, at time.Time) error {
	return s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.ID == txID {
				t.RemainingAmount = &remaining
				t.UpdatedAt = at
				return nil
			}
		}
		return ErrInternal
	})
}

func (s *memStore) InsertTransaction(_ context.Context, row *Transaction) error {
	if s.inTx && s.db.insertHook != nil {
		if err := s.db.insertHook(row); err != nil {
			return err
		}
	}
	return s.view(func(st *memState) error {
		if !st.users[row.UserID] {
			return ErrUserNotFound
		}
		if row.IdempotencyKey != nil {
			for _, t := range st.txs {
				if t.UserID == row.UserID && t.Type == row.Type && t.IdempotencyKey != nil && *t.IdempotencyKey == *row.IdempotencyKey {
					return ErrDuplicateIdempotencyKey
				}
			}
		}
		st.txs = append(st.txs, copyTx(row))
		return nil
	})
}

func (s *memStore) ListTransactions(_ context.Context, f ListFilter) ([]Transaction, int, error) {
	f = f.Normalize()
	var all []Transaction
	err := s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.UserID == f.UserID && (f.Type == "" || t.Type == f.Type) {
				all = append(all, *copyTx(t))
			}
		}
		return nil
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := min(f.Offset(), total)
	end := min(start+f.PageSize, total)
	return all[start:end], total, err
}

func (s *memStore) AllTransactions(_ context.Context, userID string) ([]Transaction, error) {
	var out []Transaction
	err := s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.UserID == userID {
				out = append(out, *copyTx(t))
			}
		}
		return nil
	})
	return out, err
}

func (s *memStore) ListExpiredLots(_ context.Context, at time.Time, limit int) ([]Transaction, error) {
	var out []Transaction
	err := s.view(func(st *memState) error {
		for _, t := range st.txs {
			if len(out) >= limit {
				break
			}
			if t.ExpirationDate != nil && !t.ExpirationDate.After(at) && t.ExpirationDateProcessedAt == nil && t.Remaining() > 0 {
				out = append(out, *copyTx(t))
			}
		}
		return nil
	})
	return out, err
}

func (s *memStore) LockLot(_ context.Context, txID string) (*Transaction, error) {
	var out *Transaction
	err := s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.ID == txID {
				out = copyTx(t)
			}
		}
		return nil
	})
	return out, err
}

func (s *memStore) MarkExpired(_ context.Context, txID string, at time.Time) error {
	return s.view(func(st *memState) error {
		for _, t := range st.txs {
			if t.ID == txID {
				zero := int64(0)
				t.RemainingAmount = &zero
				t.ExpirationDateProcessedAt = &at
				t.UpdatedAt = at
				return nil
			}
		}
		return ErrInternal
	})
}

// seedLot inserts a lot directly into committed state.
func (s *memStore) seedLot(id, userID string, amount int64, createdAt time.Time, expires *time.Time) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st := s.db.st
	st.users[userID] = true
	b, ok := st.balances[userID]
	if !ok {
		b = &Balance{ID: "bal-" + userID, UserID: userID}
		st.balances[userID] = b
	}
	b.CurrentCredits += amount
	rem := amount
	st.txs = append(st.txs, &Transaction{
		ID: id, UserID: userID, Type: TxTypePurchasePackage, Amount: amount,
		RemainingAmount: &rem, ExpirationDate: expires, CreatedAt: createdAt, UpdatedAt: createdAt,
	})
}

func (s *memStore) balanceOf(userID string) int64 {
	b, _ := s.GetBalance(context.Background(), userID)
	if b == nil {
		return 0
	}
	return b.CurrentCredits
}

func (s *memStore) sumOf(userID string) int64 {
	rows, _ := s.AllTransactions(context.Background(), userID)
	var sum int64
	for _, t := range rows {
		sum += t.Amount
	}
	return sum
}

func (s *memStore) countType(userID string, typ TxType) int {
	rows, _ := s.AllTransactions(context.Background(), userID)
	n := 0
	for _, t := range rows {
		if t.Type == typ {
			n++
		}
	}
	return n
}

func (s *memStore) lot(id string) *Transaction {
	t, _ := s.LockLot(context.Background(), id)
	return t
}
