package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

// SecretRefPrefix marks a credential value that must be resolved through the secret store.
const SecretRefPrefix = "secret://"

type ControllerConfig struct {
	URL           string
	Token         string
	InfraUser     string
	InfraPassword string
}

type subcloudEntry struct {
	Name     string `json:"name"`
	URL      string `json:"URL"`
	K8sToken string `json:"k8s_token"`
}

// InstanceRegistry is the read-only, process-wide list of addressable instances.
// The controller is always first.
type InstanceRegistry struct {
	instances []domain.Instance
}

func NewInstanceRegistry(ctx context.Context, cfg ControllerConfig, descriptorPath string, secrets ports.SecretStore, logger zerolog.Logger) (*InstanceRegistry, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, domain.ConfigError("controller url is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, domain.ConfigError("controller token is required")
	}

	token, err := resolveSecret(ctx, secrets, cfg.Token)
	if err != nil {
		return nil, domain.ConfigError("resolve controller token: %v", err)
	}

	controller := domain.Instance{
		Name: domain.DefaultInstanceName,
		URL:  cfg.URL,
		Kind: domain.KindControllerCloud,
		Credential: domain.Credential{
			BearerToken: token,
			Infra:       domain.InfraLogin{User: cfg.InfraUser, Password: cfg.InfraPassword, AuthURL: cfg.URL},
		},
	}
	if err := controller.Validate(); err != nil {
		return nil, domain.ConfigError("%v", err)
	}

	registry := &InstanceRegistry{instances: []domain.Instance{controller}}

	entries, err := readDescriptor(descriptorPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", descriptorPath).Msg("No subcloud information was added to the list of instances")
		return registry, nil
	}

	for _, entry := range entries {
		subcloud, err := registry.subcloudFromEntry(ctx, entry, cfg, secrets)
		if err != nil {
			logger.Warn().Err(err).Str("subcloud", entry.Name).Msg("skipping subcloud")
			continue
		}
		registry.instances = append(registry.instances, subcloud)
	}

	logger.Info().Int("instances", len(registry.instances)).Msg("instance registry loaded")

	return registry, nil
}

func (r *InstanceRegistry) List() []domain.Instance {
	out := make([]domain.Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

func (r *InstanceRegistry) Default() domain.Instance {
	return r.instances[0]
}

// Lookup matches names exactly; case matters.
func (r *InstanceRegistry) Lookup(name string) (domain.Instance, bool) {
	for _, instance := range r.instances {
		if instance.Name == name {
			return instance, true
		}
	}

	return domain.Instance{}, false
}

func (r *InstanceRegistry) subcloudFromEntry(ctx context.Context, entry subcloudEntry, cfg ControllerConfig, secrets ports.SecretStore) (domain.Instance, error) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return domain.Instance{}, errors.New("subcloud name is empty")
	}
	if _, exists := r.Lookup(name); exists {
		return domain.Instance{}, fmt.Errorf("duplicate instance name %q", name)
	}

	token, err := resolveSecret(ctx, secrets, entry.K8sToken)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("resolve k8s token: %w", err)
	}

	subcloud := domain.Instance{
		Name: name,
		URL:  strings.TrimSpace(entry.URL),
		Kind: domain.KindSubcloud,
		Credential: domain.Credential{
			BearerToken: token,
			Infra:       domain.InfraLogin{User: cfg.InfraUser, Password: cfg.InfraPassword, AuthURL: strings.TrimSpace(entry.URL)},
		},
	}
	if err := subcloud.Validate(); err != nil {
		return domain.Instance{}, err
	}

	return subcloud, nil
}

func readDescriptor(path string) ([]subcloudEntry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("no subcloud descriptor configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subcloud descriptor: %w", err)
	}

	var entries []subcloudEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode subcloud descriptor: %w", err)
	}

	return entries, nil
}

func resolveSecret(ctx context.Context, secrets ports.SecretStore, value string) (string, error) {
	if !strings.HasPrefix(value, SecretRefPrefix) {
		return value, nil
	}
	if secrets == nil {
		return "", fmt.Errorf("secret reference %q given but no secret store is configured", value)
	}

	resolved, err := secrets.Get(ctx, strings.TrimPrefix(value, SecretRefPrefix))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resolved), nil
}
