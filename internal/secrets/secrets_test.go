package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	values map[string]string
	calls  int
}

func (f *fakeBackend) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	value, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	resp := azsecrets.GetSecretResponse{}
	resp.Value = &value
	return resp, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestVaultClient_CachesSecrets(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{"jwt-secret": "s3cret"}}
	client := newVaultClient(backend, &VaultConfig{VaultName: "kv", CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())

	for i := 0; i < 3; i++ {
		value, err := client.GetSecret(context.Background(), "jwt-secret")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", value)
	}
	assert.Equal(t, 1, backend.calls)

	client.ClearCache()
	_, err := client.GetSecret(context.Background(), "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestVaultClient_MissingSecret(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{}}
	client := newVaultClient(backend, &VaultConfig{VaultName: "kv"}, zap.NewNop())

	_, err := client.GetSecret(context.Background(), "smtp-password")
	assert.Error(t, err)
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{"admin-api-key": "from-vault"}}
	p := &Provider{
		source: SourceVault,
		vault:  newVaultClient(backend, &VaultConfig{VaultName: "kv"}, zap.NewNop()),
		logger: zap.NewNop(),
	}

	t.Run("vault value when env unset", func(t *testing.T) {
		t.Setenv("ADMIN_API_KEY", "")
		value, err := p.GetSecretOrEnv(context.Background(), "admin-api-key", "ADMIN_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "from-vault", value)
	})

	t.Run("environment overrides vault", func(t *testing.T) {
		t.Setenv("ADMIN_API_KEY", "from-env")
		value, err := p.GetSecretOrEnv(context.Background(), "admin-api-key", "ADMIN_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "from-env", value)
	})
}
