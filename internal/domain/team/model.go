package team

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"
)

// Role constants for team membership.
const (
	RoleOwner  = "Owner"
	RoleAdmin  = "Admin"
	RoleMember = "Member"
)

// ValidRoles contains all valid membership roles, most privileged first.
var ValidRoles = []string{RoleOwner, RoleAdmin, RoleMember}

// Invite code format.
const (
	InviteCodeLength   = 8
	InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Max length constants.
const (
	MaxNameLength = 100
)

// Domain errors
var (
	ErrEmptyName         = errors.New("team name cannot be empty")
	ErrNameTooLong       = errors.New("team name cannot exceed 100 characters")
	ErrInvalidInviteCode = errors.New("invite code must be 8 characters A-Z or 0-9")
	ErrInvalidRole       = errors.New("role must be one of: Owner, Admin, Member")
	ErrNotMember         = errors.New("you are not a member of this team")
	ErrNotManager        = errors.New("only team owners and admins can manage members")
	ErrLastOwner         = errors.New("a team must keep at least one owner")
	ErrAlreadyMember     = errors.New("account is already a member of this team")
)

// Team is a group whose members log moods together.
type Team struct {
	ID         string
	Name       string
	InviteCode string
	CreatedBy  string // account ID
	CreatedAt  time.Time
}

// Validate checks the team's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (t *Team) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !IsValidInviteCode(t.InviteCode) {
		return ErrInvalidInviteCode
	}
	return nil
}

// Member links an account to a team with a role.
type Member struct {
	ID        string
	TeamID    string
	AccountID string
	Role      string
	CreatedAt time.Time

	// Read-side fields joined from the account table.
	Email       string
	DisplayName string
}

// Validate checks the membership's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (m *Member) Validate() error {
	if m.TeamID == "" {
		return errors.New("team_id is required")
	}
	if m.AccountID == "" {
		return errors.New("account_id is required")
	}
	if !IsValidRole(m.Role) {
		return ErrInvalidRole
	}
	return nil
}

// CanManage reports whether the member may add, remove or re-role others.
func (m *Member) CanManage() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// Initial returns the first letter of the member's name for avatars.
func (m *Member) Initial() string {
	name := m.DisplayName
	if name == "" {
		name = m.Email
	}
	if name == "" {
		name = m.AccountID
	}
	if name == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(name)[0]))
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CountOwners returns how many members hold the Owner role.
func CountOwners(members []Member) int {
	n := 0
	for _, m := range members {
		if m.Role == RoleOwner {
			n++
		}
	}
	return n
}

// GenerateInviteCode returns a random 8-character code from InviteCodeAlphabet.
// PRE: none
// POST: returned code satisfies IsValidInviteCode
func GenerateInviteCode() (string, error) {
	max := big.NewInt(int64(len(InviteCodeAlphabet)))
	var b strings.Builder
	b.Grow(InviteCodeLength)
	for i := 0; i < InviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(InviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode trims and upper-cases a user-entered code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidInviteCode reports whether code has the generated format.
func IsValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(InviteCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
