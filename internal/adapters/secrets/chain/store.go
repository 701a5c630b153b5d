package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/dcloud-assistant/internal/adapters/secrets/file"
	passstore "github.com/bnema/dcloud-assistant/internal/adapters/secrets/pass"
	"github.com/bnema/dcloud-assistant/internal/ports"
)

var errNoStores = errors.New("secret chain needs at least one store")

// Store asks each backend in order and returns the first value found.
type Store struct {
	stores []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(stores ...ports.SecretStore) (*Store, error) {
	for i, store := range stores {
		if store == nil {
			return nil, fmt.Errorf("secret store %d is nil", i)
		}
	}
	if len(stores) == 0 {
		return nil, errNoStores
	}

	return &Store{stores: stores}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for _, store := range s.stores {
		value, err := store.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		errs = append(errs, err)
	}

	return "", fmt.Errorf("resolve secret %q: %w", key, errors.Join(errs...))
}
