package account

import "time"

// RoleAdmin satisfies every role requirement.
const RoleAdmin = "admin"

// Account represents the accounts table / collection
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	AccessToken  *string
	Roles        []string
	CreatedAt    time.Time
}

// Credentials is what a caller presents at login.
type Credentials struct {
	Email    string
	Password string
}

// Registration is the input for creating an account.
type Registration struct {
	Name     string
	Email    string
	Password string
}
