package graphql

import (
	"context"
	"errors"
	"os"
	"strings"
)

// TokenProvider supplies the bearer token for the upstream's authorization
// header. How the token is fetched, cached, or rotated is the provider's
// business; the client only consumes a ready-to-use string.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, useful for tests and simple deployments.
type StaticToken string

// Token returns the fixed token string.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	value := strings.TrimSpace(string(t))
	if value == "" {
		return "", errors.New("static token is empty")
	}
	return value, nil
}

// EnvToken resolves the token from an environment variable on every call, so
// a rotated value is picked up without a restart.
type EnvToken struct {
	Name string
}

// Token reads the configured environment variable.
func (t EnvToken) Token(ctx context.Context) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", errors.New("token env var name is not configured")
	}
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", errors.New("token env var " + name + " is unset")
	}
	return value, nil
}
