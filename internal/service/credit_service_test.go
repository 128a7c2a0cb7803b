package service

import (
	"context"
	"errors"
	"testing"

	"pixelmint/api/internal/models"
	"pixelmint/api/internal/repository"
)

type fakeCreditStore struct {
	balance int
	debits  int
	granted []int
	missing bool
}

func (f *fakeCreditStore) CreditBalance(ctx context.Context, userID string) (int, error) {
	if f.missing {
		return 0, repository.ErrUserNotFound
	}
	return f.balance, nil
}

func (f *fakeCreditStore) DebitCredits(ctx context.Context, userID string, cost int, kind models.CreditEntryKind) (int, error) {
	if f.missing {
		return 0, repository.ErrUserNotFound
	}
	if f.balance < cost {
		return f.balance, repository.ErrInsufficientCredits
	}
	f.balance -= cost
	f.debits++
	return f.balance, nil
}

func (f *fakeCreditStore) GrantCredits(ctx context.Context, userID string, amount int, reason *string, actorID string) (models.User, error) {
	if f.missing {
		return models.User{}, repository.ErrUserNotFound
	}
	f.balance += amount
	f.granted = append(f.granted, amount)
	return models.User{ID: userID, Credits: f.balance}, nil
}

type fakeLedger struct {
	entries []models.CreditEntry
}

func (f *fakeLedger) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.CreditEntry, int, error) {
	return paginateEntries(f.entries, limit, offset)
}

func (f *fakeLedger) List(ctx context.Context, limit, offset int) ([]models.CreditEntry, int, error) {
	return paginateEntries(f.entries, limit, offset)
}

func paginateEntries(entries []models.CreditEntry, limit, offset int) ([]models.CreditEntry, int, error) {
	total := len(entries)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return entries[offset:end], total, nil
}

func TestCheckCredits(t *testing.T) {
	tests := []struct {
		name        string
		balance     int
		canGenerate bool
	}{
		{"zero", 0, false},
		{"exact_cost", 1, true},
		{"plenty", 42, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc := NewCreditService(&fakeCreditStore{balance: test.balance}, &fakeLedger{})
			status, err := svc.Check(context.Background(), "u")
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if status.Credits != test.balance {
				t.Errorf("credits = %d, want %d", status.Credits, test.balance)
			}
			if status.CanGenerate != test.canGenerate {
				t.Errorf("canGenerate = %v, want %v", status.CanGenerate, test.canGenerate)
			}
			if status.CreditsPerImage != 1 {
				t.Errorf("creditsPerImage = %d, want 1", status.CreditsPerImage)
			}
		})
	}
}

func TestCheckCreditsUserMissing(t *testing.T) {
	svc := NewCreditService(&fakeCreditStore{missing: true}, &fakeLedger{})
	if _, err := svc.Check(context.Background(), "ghost"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConsume(t *testing.T) {
	store := &fakeCreditStore{balance: 2}
	svc := NewCreditService(store, &fakeLedger{})

	remaining, err := svc.Consume(context.Background(), "u")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if remaining != 1 || store.debits != 1 {
		t.Errorf("remaining=%d debits=%d, want 1 and 1", remaining, store.debits)
	}
}

func TestConsumeInsufficient(t *testing.T) {
	store := &fakeCreditStore{balance: 0}
	svc := NewCreditService(store, &fakeLedger{})

	_, err := svc.Consume(context.Background(), "u")
	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Credits != 0 {
		t.Errorf("reported balance = %d, want 0", insufficient.Credits)
	}
	if store.debits != 0 {
		t.Error("debit recorded despite insufficient balance")
	}
}

func TestGrantValidation(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		amount int
	}{
		{"zero_amount", "target", 0},
		{"negative_amount", "target", -5},
		{"missing_user_id", "", 10},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := &fakeCreditStore{}
			svc := NewCreditService(store, &fakeLedger{})

			_, err := svc.Grant(context.Background(), "admin-1", test.userID, test.amount, nil)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(store.granted) != 0 {
				t.Error("grant recorded despite invalid input")
			}
		})
	}
}

func TestGrant(t *testing.T) {
	store := &fakeCreditStore{balance: 5}
	svc := NewCreditService(store, &fakeLedger{})

	reason := "goodwill"
	user, err := svc.Grant(context.Background(), "admin-1", "target", 20, &reason)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if user.Credits != 25 {
		t.Errorf("credits = %d, want 25", user.Credits)
	}
}

func TestHistoryPagination(t *testing.T) {
	entries := make([]models.CreditEntry, 25)
	svc := NewCreditService(&fakeCreditStore{}, &fakeLedger{entries: entries})

	page, err := svc.History(context.Background(), "u", 1, 12)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Entries) != 12 || page.Total != 25 || !page.HasMore {
		t.Errorf("page 1: entries=%d total=%d hasMore=%v", len(page.Entries), page.Total, page.HasMore)
	}

	page, err = svc.History(context.Background(), "u", 3, 12)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Entries) != 1 || page.HasMore {
		t.Errorf("page 3: entries=%d hasMore=%v", len(page.Entries), page.HasMore)
	}
}
