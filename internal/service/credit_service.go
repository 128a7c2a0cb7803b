package service

import (
	"context"
	"errors"
	"fmt"

	"pixelmint/api/internal/models"
	"pixelmint/api/internal/pricing"
	"pixelmint/api/internal/repository"
)

type creditStore interface {
	CreditBalance(ctx context.Context, userID string) (int, error)
	DebitCredits(ctx context.Context, userID string, cost int, kind models.CreditEntryKind) (int, error)
	GrantCredits(ctx context.Context, userID string, amount int, reason *string, actorID string) (models.User, error)
}

type ledgerReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.CreditEntry, int, error)
	List(ctx context.Context, limit, offset int) ([]models.CreditEntry, int, error)
}

type CreditService struct {
	users  creditStore
	ledger ledgerReader
}

func NewCreditService(users creditStore, ledger ledgerReader) *CreditService {
	return &CreditService{
		users:  users,
		ledger: ledger,
	}
}

type CreditStatus struct {
	Credits         int
	CanGenerate     bool
	CreditsPerImage int
}

func (s *CreditService) Check(ctx context.Context, userID string) (CreditStatus, error) {
	balance, err := s.users.CreditBalance(ctx, userID)
	if err != nil {
		return CreditStatus{}, err
	}
	return CreditStatus{
		Credits:         balance,
		CanGenerate:     balance >= pricing.CreditsPerImage,
		CreditsPerImage: pricing.CreditsPerImage,
	}, nil
}

// Consume charges one image's worth of credits through the same atomic debit
// the generation transaction uses.
func (s *CreditService) Consume(ctx context.Context, userID string) (int, error) {
	remaining, err := s.users.DebitCredits(ctx, userID, pricing.CreditsPerImage, models.CreditEntryGeneration)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return 0, &InsufficientCreditsError{Credits: remaining}
		}
		return 0, err
	}
	return remaining, nil
}

// Grant adds credits to the target user on behalf of an admin. The reason is
// persisted in the ledger together with the acting admin's id. Role
// enforcement happens in the route middleware, which reloads the caller from
// the database on every request.
func (s *CreditService) Grant(ctx context.Context, actorID string, userID string, amount int, reason *string) (models.User, error) {
	if amount <= 0 {
		return models.User{}, &ValidationError{Issues: map[string][]string{
			"credits": {"credits must be a positive integer"},
		}}
	}
	if userID == "" {
		return models.User{}, &ValidationError{Issues: map[string][]string{
			"userId": {"userId is required"},
		}}
	}

	user, err := s.users.GrantCredits(ctx, userID, amount, reason, actorID)
	if err != nil {
		return models.User{}, fmt.Errorf("grant credits: %w", err)
	}
	return user, nil
}

type LedgerPage struct {
	Entries []models.CreditEntry
	Total   int
	Page    int
	HasMore bool
}

func (s *CreditService) History(ctx context.Context, userID string, page, limit int) (LedgerPage, error) {
	page, limit = normalizePage(page, limit)

	entries, total, err := s.ledger.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return LedgerPage{}, err
	}
	return LedgerPage{
		Entries: entries,
		Total:   total,
		Page:    page,
		HasMore: page*limit < total,
	}, nil
}

func (s *CreditService) GlobalLedger(ctx context.Context, page, limit int) (LedgerPage, error) {
	page, limit = normalizePage(page, limit)

	entries, total, err := s.ledger.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return LedgerPage{}, err
	}
	return LedgerPage{
		Entries: entries,
		Total:   total,
		Page:    page,
		HasMore: page*limit < total,
	}, nil
}
