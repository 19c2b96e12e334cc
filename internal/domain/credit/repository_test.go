package credit

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bizhub/credits-api/internal/pkg/database"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skipf("TEST_DATABASE_URL not set")
	}
	db, err := database.NewPostgres(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { database.ClosePostgres(db) })

	if err := database.Migrate(context.Background(), db, "../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *sqlx.DB) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ($1, $2)`, id, id+"@test.local")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM users WHERE id = $1`, id) })
	return id
}

func TestRepositoryConsumeAndReplay(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()
	user := createUser(t, db)

	soon := time.Now().Add(48 * time.Hour)
	later := time.Now().Add(240 * time.Hour)
	a, err := svc.Grant(ctx, GrantParams{UserID: user, Type: TxTypePurchasePackage, Amount: 30, ExpirationDate: &soon})
	if err != nil {
		t.Fatalf("grant a: %v", err)
	}
	b, err := svc.Grant(ctx, GrantParams{UserID: user, Type: TxTypePurchasePackage, Amount: 40, ExpirationDate: &later})
	if err != nil {
		t.Fatalf("grant b: %v", err)
	}

	p := ConsumeParams{UserID: user, OrderID: uuid.NewString(), Amount: 50}
	first, err := svc.ConsumeIdempotent(ctx, p)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	second, err := svc.ConsumeIdempotent(ctx, p)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Idempotent || second.TransactionID != first.TransactionID {
		t.Fatalf("replay = %+v, first = %+v", second, first)
	}

	repo := NewRepository(db)
	lotA, _ := repo.LockLot(ctx, a.ID)
	lotB, _ := repo.LockLot(ctx, b.ID)
	if lotA.Remaining() != 0 || lotB.Remaining() != 20 {
		t.Errorf("remaining a=%d b=%d, want 0/20", lotA.Remaining(), lotB.Remaining())
	}

	bal, err := svc.GetBalance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.CurrentCredits != 20 {
		t.Errorf("balance = %d, want 20", bal.CurrentCredits)
	}

	_, total, _, err := svc.ListTransactions(ctx, ListFilter{UserID: user, Type: TxTypeUsage})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Errorf("usage rows = %d, want 1", total)
	}
}

func TestRepositoryDuplicateKey(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := createUser(t, db)

	key := IdempotencyPrefix + uuid.NewString()
	now := time.Now()
	insert := func() error {
		return repo.InsertTransaction(ctx, &Transaction{
			ID: uuid.NewString(), UserID: user, Type: TxTypeUsage, Amount: -1,
			PaymentID: &key, IdempotencyKey: &key, CreatedAt: now, UpdatedAt: now,
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert(); !errors.Is(err, ErrDuplicateIdempotencyKey) {
		t.Fatalf("second insert err = %v, want ErrDuplicateIdempotencyKey", err)
	}
}

func TestRepositoryTransferUnknownUser(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepository(db), nil)
	user := createUser(t, db)

	_, err := svc.Transfer(context.Background(), TransferParams{FromUserID: user, ToUserID: uuid.NewString(), Amount: 1})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestRepositoryConcurrentConsume(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()
	user := createUser(t, db)

	if _, err := svc.Grant(ctx, GrantParams{UserID: user, Type: TxTypePurchasePackage, Amount: 5}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ConsumeIdempotent(ctx, ConsumeParams{UserID: user, OrderID: uuid.NewString(), Amount: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case !errors.Is(err, ErrInsufficientCredits):
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if successes != 5 {
		t.Errorf("successes = %d, want 5", successes)
	}
	bal, err := svc.GetBalance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.CurrentCredits != 0 {
		t.Errorf("balance = %d, want 0", bal.CurrentCredits)
	}
}

func TestRepositoryConcurrentReplay(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()
	user := createUser(t, db)

	if _, err := svc.Grant(ctx, GrantParams{UserID: user, Type: TxTypePurchasePackage, Amount: 10}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	p := ConsumeParams{UserID: user, OrderID: uuid.NewString(), Amount: 3}
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]int{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ConsumeIdempotent(ctx, p)
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			mu.Lock()
			ids[res.TransactionID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Errorf("transaction ids = %v, want one", ids)
	}
	var rows int
	if err := db.Get(&rows, `SELECT COUNT(*) FROM credit_transaction WHERE user_id = $1 AND type = $2`, user, string(TxTypeUsage)); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("usage rows = %d, want 1", rows)
	}
	bal, err := svc.GetBalance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.CurrentCredits != 7 {
		t.Errorf("balance = %d, want 7", bal.CurrentCredits)
	}
}
