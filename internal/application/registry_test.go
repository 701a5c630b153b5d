package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/dcloud-assistant/internal/domain"
	portmocks "github.com/bnema/dcloud-assistant/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "subclouds.json")
	if content == "" {
		return path
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func controllerConfig() ControllerConfig {
	return ControllerConfig{URL: controllerURL, Token: controllerToken, InfraUser: "admin", InfraPassword: "secret"}
}

func TestRegistryControllerOnlyWhenDescriptorMissing(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, "")

	instances := registry.List()
	require.Len(t, instances, 1)
	controller := registry.Default()
	assert.Equal(t, domain.DefaultInstanceName, controller.Name)
	assert.Equal(t, domain.KindControllerCloud, controller.Kind)
	assert.Equal(t, controllerToken, controller.Credential.BearerToken)
	assert.Equal(t, domain.InfraLogin{User: "admin", Password: "secret", AuthURL: controllerURL}, controller.Credential.Infra)
}

func TestRegistryLoadsSubcloudsAndSkipsBadEntries(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, `[
		{"name": "subcloud1", "URL": "https://10.10.20.1:5000", "k8s_token": "tok-1"},
		{"name": "", "URL": "https://10.10.21.1:5000", "k8s_token": "tok-x"},
		{"name": "subcloud1", "URL": "https://10.10.22.1:5000", "k8s_token": "tok-dup"},
		{"name": "System Controller", "URL": "https://10.10.23.1:5000", "k8s_token": "tok-shadow"},
		{"name": "subcloud2", "URL": "subcloud2.example.com", "k8s_token": "tok-2"},
		{"name": "subcloud3", "URL": "http://10.10.24.1:5000", "k8s_token": "tok-3"}
	]`)

	instances := registry.List()
	require.Len(t, instances, 3)
	assert.Equal(t, domain.DefaultInstanceName, instances[0].Name)
	assert.Equal(t, "subcloud1", instances[1].Name)
	assert.Equal(t, "subcloud3", instances[2].Name)

	sub, ok := registry.Lookup("subcloud1")
	require.True(t, ok)
	assert.Equal(t, domain.KindSubcloud, sub.Kind)
	assert.Equal(t, "tok-1", sub.Credential.BearerToken)
	assert.Equal(t, "https://10.10.20.1:5000", sub.Credential.Infra.AuthURL)
	assert.Equal(t, "admin", sub.Credential.Infra.User)
}

func TestRegistryMalformedDescriptorFallsBackToController(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, `{"name": "not-an-array"`)
	assert.Len(t, registry.List(), 1)
}

func TestRegistryLookupIsExact(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, `[{"name": "Subcloud1", "URL": "https://10.10.20.1:5000", "k8s_token": "t"}]`)

	_, ok := registry.Lookup("Subcloud1")
	assert.True(t, ok)
	_, ok = registry.Lookup("subcloud1")
	assert.False(t, ok)
	_, ok = registry.Lookup("")
	assert.False(t, ok)
}

func TestRegistryListReturnsCopy(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, "")
	list := registry.List()
	list[0].Name = "mutated"

	assert.Equal(t, domain.DefaultInstanceName, registry.Default().Name)
}

func TestRegistryControllerConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ControllerConfig
		want string
	}{
		{name: "missing url", cfg: ControllerConfig{Token: "t"}, want: "controller url is required"},
		{name: "missing token", cfg: ControllerConfig{URL: controllerURL}, want: "controller token is required"},
		{name: "invalid url", cfg: ControllerConfig{URL: "controller.local", Token: "t"}, want: "no http(s)://<ipv4>: prefix"},
		{name: "secret ref without store", cfg: ControllerConfig{URL: controllerURL, Token: "secret://dca/token"}, want: "no secret store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewInstanceRegistry(context.Background(), tt.cfg, "", nil, zerolog.Nop())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfig)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRegistryResolvesSecretReferences(t *testing.T) {
	t.Parallel()

	secrets := portmocks.NewMockSecretStore(t)
	secrets.EXPECT().Get(mock.Anything, "dca/controller/token").Return("resolved-controller", nil).Once()
	secrets.EXPECT().Get(mock.Anything, "dca/subcloud1/token").Return("resolved-sub1", nil).Once()
	secrets.EXPECT().Get(mock.Anything, "dca/subcloud2/token").Return("", errors.New("not in pass")).Once()

	cfg := controllerConfig()
	cfg.Token = "secret://dca/controller/token"
	registry, err := NewInstanceRegistry(context.Background(), cfg, writeDescriptor(t, `[
		{"name": "subcloud1", "URL": "https://10.10.20.1:5000", "k8s_token": "secret://dca/subcloud1/token"},
		{"name": "subcloud2", "URL": "https://10.10.21.1:5000", "k8s_token": "secret://dca/subcloud2/token"}
	]`), secrets, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "resolved-controller", registry.Default().Credential.BearerToken)
	sub, ok := registry.Lookup("subcloud1")
	require.True(t, ok)
	assert.Equal(t, "resolved-sub1", sub.Credential.BearerToken)
	_, ok = registry.Lookup("subcloud2")
	assert.False(t, ok)
}

func TestRegistryUnresolvableControllerSecretIsConfigError(t *testing.T) {
	t.Parallel()

	secrets := portmocks.NewMockSecretStore(t)
	secrets.EXPECT().Get(mock.Anything, "dca/controller/token").Return("", errors.New("missing")).Once()

	cfg := controllerConfig()
	cfg.Token = "secret://dca/controller/token"
	_, err := NewInstanceRegistry(context.Background(), cfg, "", secrets, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfig)
}
