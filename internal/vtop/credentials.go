package vtop

import (
	"fmt"
	"log/slog"
	"strings"
)

// Credentials are immutable once created, the password is never rendered by
// String, GoString or slog.
type Credentials struct {
	username string
	password string
}

// NewCredentials normalizes the username to uppercase.
func NewCredentials(username, password string) Credentials {
	return Credentials{
		username: strings.ToUpper(strings.TrimSpace(username)),
		password: password,
	}
}

func (c Credentials) Username() string {
	return c.username
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{username: %s, password: <redacted>}", c.username)
}

func (c Credentials) GoString() string {
	return c.String()
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.username))
}
