package email

import "time"

// Settings holds the IMAP connection parameters for one account.
type Settings struct {
	Account  string
	Host     string
	Port     int
	Username string
	Password string

	// StartTLS upgrades a plaintext connection instead of dialing
	// implicit TLS.
	StartTLS bool

	// Timeout bounds the initial dial. Zero means no timeout.
	Timeout time.Duration
}
