package user

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeRepo(users ...*User) *fakeRepo {
	r := &fakeRepo{users: map[string]*User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) FindByIdentifier(ctx context.Context, ident Identifier) (*User, error) {
	if ident.BizhubUserID != "" {
		return r.GetByID(ctx, ident.BizhubUserID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		switch {
		case ident.TkSaasUserID != "":
			if u.TkSaasUserID != nil && *u.TkSaasUserID == ident.TkSaasUserID {
				return u, nil
			}
		case ident.Email != "":
			if u.Email == ident.Email {
				return u, nil
			}
		case ident.Phone != "":
			if u.PhoneNumber != nil && *u.PhoneNumber == ident.Phone {
				return u, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeRepo) Upsert(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, other := range r.users {
		if id != u.ID && other.Email == u.Email {
			return ErrEmailAlreadyExists
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeRepo) Update(_ context.Context, p UpdateParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[p.BizhubUserID]
	if !ok {
		return false, nil
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Name = *p.Username
	}
	if p.Phone != nil {
		u.PhoneNumber = p.Phone
	}
	if p.TkSaasUserID != nil {
		u.TkSaasUserID = p.TkSaasUserID
	}
	if p.Synced != nil {
		u.Synced = *p.Synced
	}
	return true, nil
}

func (r *fakeRepo) SetSynced(_ context.Context, id string, synced bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	u.Synced = synced
	return true, nil
}

type memTickets struct {
	mu   sync.Mutex
	now  func() time.Time
	rows map[string]Ticket
}

func newMemTickets(now func() time.Time) *memTickets {
	return &memTickets{now: now, rows: map[string]Ticket{}}
}

func (m *memTickets) Put(_ context.Context, ticket, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[ticket] = Ticket{Value: ticket, UserID: userID, ExpiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memTickets) Take(_ context.Context, ticket string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[ticket]
	delete(m.rows, ticket)
	if !ok || !t.ExpiresAt.After(m.now()) {
		return "", nil
	}
	return t.UserID, nil
}

var baseTime = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestService(repo Repository) (*Service, *testClock) {
	clock := &testClock{t: baseTime}
	svc := NewService(repo, newMemTickets(clock.Now), 2*time.Minute)
	svc.now = clock.Now
	n := 0
	svc.newToken = func(size int) (string, error) {
		n++
		return fmt.Sprintf("tok%d-%d", size, n), nil
	}
	return svc, clock
}

func str(s string) *string { return &s }

func TestSyncGeneratesPartnerIDForNewUser(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	res, err := svc.Sync(context.Background(), SyncParams{BizhubUserID: "u1", Email: "a@example.com", Username: "alice", Phone: "13800000000"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.IsNew || !res.Synced || res.TkSaasUserID != "tok21-1" {
		t.Errorf("result = %+v", res)
	}
	u := repo.users["u1"]
	if u.Name != "alice" || *u.PhoneNumber != "13800000000" || *u.TkSaasUserID != "tok21-1" || !u.Synced {
		t.Errorf("stored = %+v", u)
	}
}

func TestSyncPartnerIDPrecedence(t *testing.T) {
	existing := &User{ID: "u1", Email: "a@example.com", TkSaasUserID: str("stored-id")}

	svc, _ := newTestService(newFakeRepo(existing))
	res, err := svc.Sync(context.Background(), SyncParams{BizhubUserID: "u1", Email: "a@example.com", Username: "alice"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.IsNew || res.TkSaasUserID != "stored-id" {
		t.Errorf("existing row id should survive, got %+v", res)
	}

	svc, _ = newTestService(newFakeRepo(existing))
	res, err = svc.Sync(context.Background(), SyncParams{BizhubUserID: "u1", Email: "a@example.com", Username: "alice", TkSaasUserID: "pushed-id"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.TkSaasUserID != "pushed-id" {
		t.Errorf("payload id should win, got %s", res.TkSaasUserID)
	}
}

func TestSyncRejectsTakenEmail(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(&User{ID: "other", Email: "a@example.com"}))
	_, err := svc.Sync(context.Background(), SyncParams{BizhubUserID: "u1", Email: "a@example.com", Username: "alice"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo := newFakeRepo(&User{ID: "u1", Name: "old", Email: "a@example.com", Synced: true})
	svc, _ := newTestService(repo)
	ctx := context.Background()

	if err := svc.Update(ctx, UpdateParams{BizhubUserID: "u1"}); !errors.Is(err, ErrNoUpdateFields) {
		t.Errorf("empty update err = %v", err)
	}
	if err := svc.Update(ctx, UpdateParams{BizhubUserID: "missing", Username: str("x")}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user err = %v", err)
	}

	synced := false
	if err := svc.Update(ctx, UpdateParams{BizhubUserID: "u1", Username: str("new"), Synced: &synced}); err != nil {
		t.Fatalf("update: %v", err)
	}
	u := repo.users["u1"]
	if u.Name != "new" || u.Synced || u.Email != "a@example.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(&User{ID: "u1", Email: "a@example.com"}))
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v", err)
	}
	u, err := svc.Get(context.Background(), "u1")
	if err != nil || u.Email != "a@example.com" {
		t.Errorf("get = %+v, %v", u, err)
	}
}

func TestMarkUnsynced(t *testing.T) {
	repo := newFakeRepo(&User{ID: "u1", Email: "a@example.com", Synced: true})
	svc, _ := newTestService(repo)
	if err := svc.MarkUnsynced(context.Background(), "u1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if repo.users["u1"].Synced {
		t.Error("expected synced=false")
	}
	if err := svc.MarkUnsynced(context.Background(), "ghost"); err != nil {
		t.Errorf("unknown user should be ignored, got %v", err)
	}
}

func TestIssueTicketLookupPriority(t *testing.T) {
	repo := newFakeRepo(
		&User{ID: "u1", Email: "one@example.com", TkSaasUserID: str("tk-1")},
		&User{ID: "u2", Email: "two@example.com", PhoneNumber: str("13900000000")},
	)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	tests := []struct {
		name  string
		ident Identifier
		want  string
	}{
		{"bizhub id wins", Identifier{BizhubUserID: "u2", TkSaasUserID: "tk-1"}, "u2"},
		{"partner id before email", Identifier{TkSaasUserID: "tk-1", Email: "two@example.com"}, "u1"},
		{"email", Identifier{Email: "two@example.com"}, "u2"},
		{"phone", Identifier{Phone: "13900000000"}, "u2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := svc.IssueTicket(ctx, tt.ident)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			if ticket.UserID != tt.want {
				t.Errorf("user = %s, want %s", ticket.UserID, tt.want)
			}
			if !ticket.ExpiresAt.Equal(baseTime.Add(2 * time.Minute)) {
				t.Errorf("expires = %v", ticket.ExpiresAt)
			}
		})
	}

	if _, err := svc.IssueTicket(ctx, Identifier{}); !errors.Is(err, ErrIdentifierRequired) {
		t.Errorf("empty identifier err = %v", err)
	}
	if _, err := svc.IssueTicket(ctx, Identifier{Email: "ghost@example.com"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestExchangeTicketIsSingleUse(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(&User{ID: "u1", Email: "a@example.com"}))
	ctx := context.Background()

	ticket, err := svc.IssueTicket(ctx, Identifier{BizhubUserID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(ticket.Value) == 0 {
		t.Fatal("empty ticket")
	}

	u, err := svc.ExchangeTicket(ctx, ticket.Value)
	if err != nil || u.ID != "u1" {
		t.Fatalf("exchange = %+v, %v", u, err)
	}
	if _, err := svc.ExchangeTicket(ctx, ticket.Value); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("second exchange err = %v", err)
	}
}

func TestExchangeTicketExpires(t *testing.T) {
	svc, clock := newTestService(newFakeRepo(&User{ID: "u1", Email: "a@example.com"}))
	ctx := context.Background()

	ticket, err := svc.IssueTicket(ctx, Identifier{BizhubUserID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.t = clock.t.Add(2*time.Minute + time.Second)
	if _, err := svc.ExchangeTicket(ctx, ticket.Value); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("expired exchange err = %v", err)
	}
}

func TestRedisTicketStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skipf("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	store := NewTicketStore(client, nil)
	ticket := fmt.Sprintf("test-%d", time.Now().UnixNano())
	if err := store.Put(ctx, ticket, "u1", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, err := store.Take(ctx, ticket); err != nil || got != "u1" {
		t.Fatalf("take = %q, %v", got, err)
	}
	if got, err := store.Take(ctx, ticket); err != nil || got != "" {
		t.Errorf("second take = %q, %v", got, err)
	}
}
