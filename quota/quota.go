// Package quota decides whether a user may keep chatting. Pure functions
// over a user record; no storage access.
package quota

import "github.com/alexstashenko/hr-assistant-bot/users"

const (
	// DefaultDemoLimit is how many messages a regular user may send before
	// the demo is over.
	DefaultDemoLimit = 10

	// AdminLimit is effectively unlimited for one operator chatting by hand.
	AdminLimit = 1_000_000

	// WarnThreshold is the remaining-message count at or below which replies
	// carry a low-quota warning.
	WarnThreshold = 3
)

// Policy fixes the demo limit and the privileged admin identity.
type Policy struct {
	DemoLimit   int
	AdminUserID int64
}

// NewPolicy clamps a non-positive demo limit to the default.
func NewPolicy(demoLimit int, adminUserID int64) Policy {
	if demoLimit <= 0 {
		demoLimit = DefaultDemoLimit
	}
	return Policy{DemoLimit: demoLimit, AdminUserID: adminUserID}
}

// LimitFor returns the message allowance for userID.
func (p Policy) LimitFor(userID int64) int {
	if p.AdminUserID != 0 && userID == p.AdminUserID {
		return AdminLimit
	}
	return p.DemoLimit
}

// Remaining never goes negative, no matter how far past the limit the
// recorded count is.
func (p Policy) Remaining(userID int64, rec users.Record) int {
	remaining := p.LimitFor(userID) - rec.MessageCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasAllowance reports whether userID may send one more message. Zero
// remaining means denied; there is no grace message.
func (p Policy) HasAllowance(userID int64, rec users.Record) bool {
	return p.Remaining(userID, rec) > 0
}

// ShouldWarn reports whether the reply should carry a low-quota warning.
// The reply that spends the last message warns with a zero count, so the
// user learns the demo is over before the next message is denied. Admins
// never see warnings.
func (p Policy) ShouldWarn(userID int64, remaining int) bool {
	if p.AdminUserID != 0 && userID == p.AdminUserID {
		return false
	}
	return remaining >= 0 && remaining <= WarnThreshold
}
