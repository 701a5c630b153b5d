package ports

import "context"

// SecretStore resolves credential references such as "secret://dca/controller/token".
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}
