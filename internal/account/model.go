package account

import "time"

// State is the lifecycle position of an account.
type State string

const (
	StateActive      State = "active"
	StateDeactivated State = "deactivated"
)

// Account represents a registered guardian.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	PhoneNumber  string
	CreatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool
}

// State reports whether the account may log in.
func (a Account) State() State {
	if a.IsActive {
		return StateActive
	}
	return StateDeactivated
}

// Registration is the input to Register.
type Registration struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// Credentials is the input to Login.
type Credentials struct {
	Email    string
	Password string
}

// Session is a freshly authenticated account with its bearer token.
type Session struct {
	Account   Account
	Token     string
	ExpiresAt time.Time
}
