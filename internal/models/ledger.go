package models

import "time"

type CreditEntryKind string

const (
	CreditEntrySignupBonus CreditEntryKind = "signup_bonus"
	CreditEntryGeneration  CreditEntryKind = "generation"
	CreditEntryAdminGrant  CreditEntryKind = "admin_grant"
)

// CreditEntry records one balance movement. Every mutation of a user's
// credits appends exactly one entry whose BalanceAfter matches the
// post-update balance.
type CreditEntry struct {
	ID           string
	UserID       string
	Delta        int
	BalanceAfter int
	Kind         CreditEntryKind
	Reason       *string
	ActorID      *string
	CreatedAt    time.Time
}
