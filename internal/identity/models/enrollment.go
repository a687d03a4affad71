package models

import (
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// CodeType determines what redeeming an enrollment code grants.
type CodeType string

const (
	// CodeTypeUser enrolls a standard-tier principal.
	CodeTypeUser CodeType = "user"
	// CodeTypeAdmin enrolls an admin. Admin codes are seeded from config,
	// outside the normal issuance flow.
	CodeTypeAdmin CodeType = "admin"
)

// ParseCodeType validates a code type string.
func ParseCodeType(s string) (CodeType, error) {
	switch CodeType(s) {
	case CodeTypeUser, CodeTypeAdmin:
		return CodeType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "code type must be user or admin")
	}
}

// EnrollmentCode is a redeemable token that maps to a principal. It is the
// second credential scheme next to bearer tokens; both resolve to the same
// canonical PrincipalID.
//
// Invariants:
//   - a code bound to a principal never re-binds to a different principal
//     unless explicitly reset
//   - redemption is atomic claim-then-bind; the store enforces this under a
//     single mutex hold or a single SQL statement
//   - MaxUses <= 1 means single-use: Used flips after the first successful
//     bind; multi-use codes count Uses up to MaxUses instead
type EnrollmentCode struct {
	Code           string
	Type           CodeType
	Active         bool
	Used           bool
	MaxUses        int
	Uses           int
	BoundPrincipal id.PrincipalID
	RedeemedAt     *time.Time
	CreatedAt      time.Time
}

// NewEnrollmentCode constructs an active, unclaimed code. maxUses <= 1 yields
// a single-use code.
func NewEnrollmentCode(code string, codeType CodeType, maxUses int, now time.Time) *EnrollmentCode {
	if maxUses < 1 {
		maxUses = 1
	}
	return &EnrollmentCode{
		Code:      code,
		Type:      codeType,
		Active:    true,
		MaxUses:   maxUses,
		CreatedAt: now,
	}
}

// SingleUse reports whether the code is consumed by its first redemption.
func (c *EnrollmentCode) SingleUse() bool {
	return c.MaxUses <= 1
}

// Bound reports whether the code has been claimed by a principal.
func (c *EnrollmentCode) Bound() bool {
	return !c.BoundPrincipal.IsNil()
}

// CanRedeemBy checks every redemption precondition for the candidate
// principal. Use with ApplyRedemption inside the store's atomic claim.
func (c *EnrollmentCode) CanRedeemBy(candidate id.PrincipalID) error {
	if !c.Active {
		return dErrors.New(dErrors.CodeCodeInactive, "enrollment code is inactive")
	}
	if c.SingleUse() && c.Used {
		return dErrors.New(dErrors.CodeCodeAlreadyRedeemed, "enrollment code already redeemed")
	}
	if !c.SingleUse() && c.Uses >= c.MaxUses {
		return dErrors.New(dErrors.CodeCodeAlreadyRedeemed, "enrollment code uses exhausted")
	}
	if c.Bound() && c.BoundPrincipal != candidate {
		return dErrors.New(dErrors.CodeCodeAlreadyRedeemed, "enrollment code bound to another principal")
	}
	return nil
}

// ApplyRedemption claims the code for the candidate. First redemption binds;
// later redemptions of a multi-use code only count.
func (c *EnrollmentCode) ApplyRedemption(candidate id.PrincipalID, now time.Time) {
	c.Uses++
	if c.SingleUse() {
		c.Used = true
	}
	if !c.Bound() {
		c.BoundPrincipal = candidate
		redeemedAt := now
		c.RedeemedAt = &redeemedAt
	}
}

// CanReset checks whether the binding can be cleared.
func (c *EnrollmentCode) CanReset() error {
	if !c.Bound() {
		return dErrors.New(dErrors.CodeConflict, "enrollment code is not bound")
	}
	return nil
}

// ApplyReset clears the binding and usage so the code can be claimed again.
// This is the only path by which a bound code changes principal.
func (c *EnrollmentCode) ApplyReset() {
	c.BoundPrincipal = id.PrincipalID{}
	c.RedeemedAt = nil
	c.Used = false
	c.Uses = 0
	c.Active = true
}
