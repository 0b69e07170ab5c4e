package provider

// Credentials contains the institutional login credentials.
// The values are supplied once at construction and never logged.
type Credentials struct {
	Username string
	Password string
}

// NewCredentials creates a new Credentials instance
func NewCredentials(username, password string) *Credentials {
	return &Credentials{
		Username: username,
		Password: password,
	}
}
