package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser    Role = "user"
	RoleAuditor Role = "auditor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAuditor
}

// CanAudit reports whether the role may approve or reject verification requests.
func (r Role) CanAudit() bool {
	return r == RoleAuditor
}

type User struct {
	ID            uuid.UUID `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	// CreditBalance is the spendable balance; ReservedCredits is held in
	// escrow behind active marketplace listings. Both are kept in step with
	// the credits ledger inside the same transaction as every ledger append.
	CreditBalance   int64     `json:"credit_balance"`
	ReservedCredits int64     `json:"reserved_credits"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
