package credit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
)

// Service is the credit ledger. The balance row is the lock every
// mutating operation takes before reading lots or history.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// NewService creates a new credit service
func NewService(store Store, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Grant adds a lot of amount credits. A non-empty IdempotencyKey makes
// the grant a no-op when a row with the same (user, type, key) exists.
func (s *Service) Grant(ctx context.Context, p GrantParams) (*Transaction, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !p.Type.IsGrant() {
		return nil, ErrInvalidType
	}
	if strings.TrimSpace(p.UserID) == "" {
		return nil, ErrUserNotFound
	}

	var out *Transaction
	err := s.withRetry(func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
			if err := tx.EnsureBalance(ctx, p.UserID); err != nil {
				return err
			}
			bal, err := tx.LockBalance(ctx, p.UserID)
			if err != nil {
				return err
			}
			if bal == nil {
				return ErrUserNotFound
			}

			if p.IdempotencyKey != "" {
				existing, err := tx.FindByIdempotencyKey(ctx, p.UserID, p.Type, p.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					out = existing
					return nil
				}
			}

			now := s.now()
			remaining := p.Amount
			row := &Transaction{
				ID:              s.newID(),
				UserID:          p.UserID,
				Type:            p.Type,
				Description:     optional(p.Description),
				Amount:          p.Amount,
				RemainingAmount: &remaining,
				PaymentID:       optional(p.PaymentID),
				IdempotencyKey:  optional(p.IdempotencyKey),
				ExpirationDate:  p.ExpirationDate,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.InsertTransaction(ctx, row); err != nil {
				return err
			}
			if err := tx.SetBalance(ctx, p.UserID, bal.CurrentCredits+p.Amount, now); err != nil {
				return err
			}
			out = row
			return nil
		})
	})
	s.record(ctx, "grant", err, "user_id", p.UserID, "idempotency_key", p.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConsumeIdempotent spends amount credits for an external order. Replaying
// the same order returns the original result with Idempotent set.
func (s *Service) ConsumeIdempotent(ctx context.Context, p ConsumeParams) (*ConsumeResult, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.OrderID) == "" {
		return nil, ErrMissingOrder
	}

	key := IdempotencyPrefix + p.OrderID
	var res *ConsumeResult
	err := s.withRetry(func() error {
		var err error
		res, err = s.consume(ctx, p, key)
		return err
	})

	outcome := "ok"
	if res != nil && res.Idempotent {
		outcome = "replay"
	}
	s.recordOutcome(ctx, "consume", outcome, err, "user_id", p.UserID, "idempotency_key", key)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) consume(ctx context.Context, p ConsumeParams, key string) (*ConsumeResult, error) {
	var res *ConsumeResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		bal, err := tx.LockBalance(ctx, p.UserID)
		if err != nil {
			return err
		}
		var current int64
		if bal != nil {
			current = bal.CurrentCredits
		}

		existing, err := tx.FindByIdempotencyKey(ctx, p.UserID, TxTypeUsage, key)
		if err != nil {
			return err
		}
		if existing != nil {
			res = &ConsumeResult{
				Idempotent:    true,
				TransactionID: existing.ID,
				PaymentID:     key,
				Deducted:      -existing.Amount,
				Balance:       current,
				CreatedAt:     existing.CreatedAt,
			}
			return nil
		}

		if bal == nil || current < p.Amount {
			return ErrInsufficientCredits
		}

		now := s.now()
		if err := s.drawLots(ctx, tx, p.UserID, p.Amount, now); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, p.UserID, current-p.Amount, now); err != nil {
			return err
		}

		createdAt := now
		if p.OccurredAt != nil {
			createdAt = *p.OccurredAt
		}
		desc := p.Description
		if desc == "" {
			scene := p.Scene
			if scene == "" {
				scene = "unknown"
			}
			desc = fmt.Sprintf("Consume credits: %d, scene=%s, order_id=%s", p.Amount, scene, p.OrderID)
		}

		row := &Transaction{
			ID:             s.newID(),
			UserID:         p.UserID,
			Type:           TxTypeUsage,
			Description:    &desc,
			Amount:         -p.Amount,
			PaymentID:      &key,
			IdempotencyKey: &key,
			CreatedAt:      createdAt,
			UpdatedAt:      now,
		}
		if err := tx.InsertTransaction(ctx, row); err != nil {
			return err
		}

		res = &ConsumeResult{
			TransactionID: row.ID,
			PaymentID:     key,
			Deducted:      p.Amount,
			Balance:       current - p.Amount,
			CreatedAt:     createdAt,
		}
		return nil
	})
	return res, err
}

// drawLots takes amount from the user's lots, soonest expiry first.
func (s *Service) drawLots(ctx context.Context, tx Store, userID string, amount int64, now time.Time) error {
	lots, err := tx.ListLots(ctx, userID, now)
	if err != nil {
		return err
	}

	plan, left := allocate(lots, amount)
	if left > 0 {
		logger.LogWarn(ctx, "lots do not cover balance", "user_id", userID, "amount", amount, "uncovered", left)
		return ErrInsufficientCredits
	}
	for _, d := range plan {
		if err := tx.SetRemaining(ctx, d.lot.ID, d.lot.Remaining()-d.take, now); err != nil {
			return err
		}
	}
	return nil
}

type draw struct {
	lot  *Transaction
	take int64
}

// allocate walks lots in order and returns what to take from each and
// how much could not be covered.
func allocate(lots []Transaction, amount int64) ([]draw, int64) {
	var plan []draw
	left := amount
	for i := range lots {
		if left <= 0 {
			break
		}
		avail := lots[i].Remaining()
		if avail <= 0 {
			continue
		}
		take := min(avail, left)
		plan = append(plan, draw{lot: &lots[i], take: take})
		left -= take
	}
	return plan, left
}

// Transfer moves credits between two users atomically. The sender's lots
// are drawn FIFO; the receiver gets a fresh lot without expiry.
func (s *Service) Transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if p.FromUserID == p.ToUserID {
		return nil, ErrSameUserTransfer
	}

	var res *TransferResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		for _, id := range []string{p.FromUserID, p.ToUserID} {
			ok, err := tx.UserExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrUserNotFound, id)
			}
			if err := tx.EnsureBalance(ctx, id); err != nil {
				return err
			}
		}

		// Lock both rows in id order so opposite transfers cannot deadlock.
		ids := []string{p.FromUserID, p.ToUserID}
		sort.Strings(ids)
		locked := make(map[string]*Balance, 2)
		for _, id := range ids {
			b, err := tx.LockBalance(ctx, id)
			if err != nil {
				return err
			}
			if b == nil {
				return ErrUserNotFound
			}
			locked[id] = b
		}

		from, to := locked[p.FromUserID], locked[p.ToUserID]
		if from.CurrentCredits < p.Amount {
			return ErrInsufficientCredits
		}

		now := s.now()
		if err := s.drawLots(ctx, tx, p.FromUserID, p.Amount, now); err != nil {
			return err
		}

		desc := p.Description
		if desc == "" {
			desc = fmt.Sprintf("Transfer credits: %d", p.Amount)
		}
		outDesc := fmt.Sprintf("%s (to %s)", desc, p.ToUserID)
		inDesc := fmt.Sprintf("%s (from %s)", desc, p.FromUserID)
		remaining := p.Amount

		out := &Transaction{
			ID: s.newID(), UserID: p.FromUserID, Type: TxTypeTransferOut,
			Description: &outDesc, Amount: -p.Amount, CreatedAt: now, UpdatedAt: now,
		}
		in := &Transaction{
			ID: s.newID(), UserID: p.ToUserID, Type: TxTypeTransferIn,
			Description: &inDesc, Amount: p.Amount, RemainingAmount: &remaining, CreatedAt: now, UpdatedAt: now,
		}
		for _, row := range []*Transaction{out, in} {
			if err := tx.InsertTransaction(ctx, row); err != nil {
				return err
			}
		}

		if err := tx.SetBalance(ctx, p.FromUserID, from.CurrentCredits-p.Amount, now); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, p.ToUserID, to.CurrentCredits+p.Amount, now); err != nil {
			return err
		}

		res = &TransferResult{
			OutTransactionID: out.ID,
			InTransactionID:  in.ID,
			FromBalance:      from.CurrentCredits - p.Amount,
			ToBalance:        to.CurrentCredits + p.Amount,
		}
		return nil
	})
	s.record(ctx, "transfer", err, "user_id", p.FromUserID, "to_user_id", p.ToUserID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetBalance returns the user's balance row; users without one read as zero.
func (s *Service) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	b, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &Balance{UserID: userID}, nil
	}
	return b, nil
}

// ListTransactions returns one page of history and the total count.
func (s *Service) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, int, ListFilter, error) {
	filter = filter.Normalize()
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, filter, ErrInvalidType
	}
	items, total, err := s.store.ListTransactions(ctx, filter)
	return items, total, filter, err
}

// ExpireLots debits what is left on lots whose expiration passed, up to
// batch lots per call.
func (s *Service) ExpireLots(ctx context.Context, batch int) (ExpireResult, error) {
	var res ExpireResult
	if batch <= 0 {
		batch = 200
	}

	now := s.now()
	lots, err := s.store.ListExpiredLots(ctx, now, batch)
	if err != nil {
		return res, err
	}

	for _, lot := range lots {
		var debited int64
		err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
			debited = 0
			bal, err := tx.LockBalance(ctx, lot.UserID)
			if err != nil {
				return err
			}
			fresh, err := tx.LockLot(ctx, lot.ID)
			if err != nil {
				return err
			}
			if fresh == nil || fresh.ExpirationDateProcessedAt != nil {
				return nil
			}

			var current int64
			if bal != nil {
				current = bal.CurrentCredits
			}
			debited = min(fresh.Remaining(), current)

			if debited > 0 {
				desc := fmt.Sprintf("Expire credits: %d", debited)
				row := &Transaction{
					ID: s.newID(), UserID: lot.UserID, Type: TxTypeExpire,
					Description: &desc, Amount: -debited, PaymentID: fresh.PaymentID,
					CreatedAt: now, UpdatedAt: now,
				}
				if err := tx.InsertTransaction(ctx, row); err != nil {
					return err
				}
				if err := tx.SetBalance(ctx, lot.UserID, current-debited, now); err != nil {
					return err
				}
			}
			return tx.MarkExpired(ctx, lot.ID, now)
		})
		if err != nil {
			logger.LogError(ctx, err, "expire lot failed", "user_id", lot.UserID, "transaction_id", lot.ID)
			s.metrics.IncLedgerOp("expire", "error")
			continue
		}
		res.Lots++
		res.Credits += debited
	}

	s.metrics.AddCreditsExpired(res.Credits)
	if res.Lots > 0 {
		logger.LogInfo(ctx, "credit lots expired", "lots", res.Lots, "credits", res.Credits)
		s.metrics.IncLedgerOp("expire", "ok")
	}
	return res, nil
}

// withRetry runs fn again once when a concurrent writer won the
// idempotency race, so the second attempt takes the replay path.
func (s *Service) withRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		err = fn()
	}
	return err
}

func (s *Service) record(ctx context.Context, op string, err error, fields ...interface{}) {
	s.recordOutcome(ctx, op, "ok", err, fields...)
}

func (s *Service) recordOutcome(ctx context.Context, op, outcome string, err error, fields ...interface{}) {
	switch {
	case err == nil:
	case IsBusinessError(err):
		outcome = "rejected"
		logger.LogInfo(ctx, op+" rejected", append(fields, "reason", err.Error())...)
	default:
		outcome = "error"
		logger.LogError(ctx, err, op+" failed", append(fields, "op", op)...)
	}
	s.metrics.IncLedgerOp(op, outcome)
}

// IsBusinessError reports expected outcomes that are not system failures.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrSameUserTransfer) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrMissingOrder)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
