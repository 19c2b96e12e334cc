package credit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/bizhub/credits-api/internal/pkg/storage"
)

var statementHeader = []string{
	"id", "type", "amount", "remaining_amount", "payment_id", "description",
	"expiration_date", "expiration_processed_at", "created_at", "running_balance",
}

// WriteStatement renders the full history of a user as CSV in ledger order
// with a running balance column.
func WriteStatement(rows []Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(statementHeader); err != nil {
		return nil, err
	}

	var running int64
	for _, t := range rows {
		running += t.Amount
		rec := []string{
			t.ID,
			string(t.Type),
			strconv.FormatInt(t.Amount, 10),
			optionalInt(t.RemainingAmount),
			deref(t.PaymentID),
			deref(t.Description),
			optionalTime(t.ExpirationDate),
			optionalTime(t.ExpirationDateProcessedAt),
			t.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(running, 10),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportStatement uploads a user's statement and returns its object key and URL.
func (s *Service) ExportStatement(ctx context.Context, store storage.ObjectStore, userID string) (string, string, error) {
	rows, err := s.store.AllTransactions(ctx, userID)
	if err != nil {
		return "", "", err
	}
	body, err := WriteStatement(rows)
	if err != nil {
		return "", "", fmt.Errorf("%w: render statement: %v", ErrInternal, err)
	}

	key := fmt.Sprintf("statements/%s/%s.csv", userID, s.now().UTC().Format("20060102T150405Z"))
	if err := store.Put(ctx, key, bytes.NewReader(body), "text/csv"); err != nil {
		return "", "", err
	}
	return key, store.GetURL(key), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
