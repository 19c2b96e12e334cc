package user

import (
	"context"
	"strings"
	"time"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
	"github.com/bizhub/credits-api/internal/pkg/logger"
)

const (
	partnerIDLength = 21
	ticketLength    = 32
)

// Service handles the user directory and SSO tickets
type Service struct {
	repo      Repository
	tickets   TicketStore
	ticketTTL time.Duration
	now       func() time.Time
	newToken  func(n int) (string, error)
}

// NewService creates user service
func NewService(repo Repository, tickets TicketStore, ticketTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		tickets:   tickets,
		ticketTTL: ticketTTL,
		now:       time.Now,
		newToken:  envelope.NewNonce,
	}
}

// Sync upserts a partner-pushed user. The partner id comes from the
// payload, then the stored row, then a fresh token.
func (s *Service) Sync(ctx context.Context, p SyncParams) (*SyncResult, error) {
	if strings.TrimSpace(p.BizhubUserID) == "" {
		return nil, ErrUserIDRequired
	}

	existing, err := s.repo.GetByID(ctx, p.BizhubUserID)
	if err != nil {
		return nil, err
	}

	partnerID := p.TkSaasUserID
	if partnerID == "" && existing != nil && existing.TkSaasUserID != nil {
		partnerID = *existing.TkSaasUserID
	}
	if partnerID == "" {
		if partnerID, err = s.newToken(partnerIDLength); err != nil {
			return nil, err
		}
	}

	u := &User{
		ID:           p.BizhubUserID,
		Name:         p.Username,
		Email:        p.Email,
		PhoneNumber:  optional(p.Phone),
		TkSaasUserID: &partnerID,
		Synced:       true,
	}
	if err := s.repo.Upsert(ctx, u); err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "user synced", "user_id", u.ID, "is_new", existing == nil)
	return &SyncResult{TkSaasUserID: partnerID, IsNew: existing == nil, Synced: true}, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, p UpdateParams) error {
	if strings.TrimSpace(p.BizhubUserID) == "" {
		return ErrUserIDRequired
	}
	if p.Empty() {
		return ErrNoUpdateFields
	}

	found, err := s.repo.Update(ctx, p)
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}

// Get returns user by ID
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserIDRequired
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Find resolves an identifier to a user.
func (s *Service) Find(ctx context.Context, ident Identifier) (*User, error) {
	if ident.Empty() {
		return nil, ErrIdentifierRequired
	}
	u, err := s.repo.FindByIdentifier(ctx, ident)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// MarkUnsynced flags a user the partner deleted. Unknown users are ignored.
func (s *Service) MarkUnsynced(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrUserIDRequired
	}
	found, err := s.repo.SetSynced(ctx, id, false)
	if err != nil {
		return err
	}
	if !found {
		logger.LogWarn(ctx, "unsync for unknown user", "user_id", id)
	}
	return nil
}

// IssueTicket creates a short-lived SSO ticket for the identified user.
func (s *Service) IssueTicket(ctx context.Context, ident Identifier) (*Ticket, error) {
	u, err := s.Find(ctx, ident)
	if err != nil {
		return nil, err
	}

	value, err := s.newToken(ticketLength)
	if err != nil {
		return nil, err
	}
	t := &Ticket{Value: value, UserID: u.ID, ExpiresAt: s.now().Add(s.ticketTTL)}
	if err := s.tickets.Put(ctx, t.Value, t.UserID, s.ticketTTL); err != nil {
		return nil, err
	}
	return t, nil
}

// ExchangeTicket consumes a ticket and returns its user. A ticket works once.
func (s *Service) ExchangeTicket(ctx context.Context, ticket string) (*User, error) {
	if strings.TrimSpace(ticket) == "" {
		return nil, ErrInvalidTicket
	}
	userID, err := s.tickets.Take(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrInvalidTicket
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidTicket
	}
	return u, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
