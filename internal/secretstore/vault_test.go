package secretstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "correct horse battery staple", false)
	require.NoError(t, err)

	require.NoError(t, v.Set("anthropic", "api_key", "sk-ant-12345"))

	got, err := v.Get("anthropic", "api_key")
	require.NoError(t, err)
	require.Equal(t, "sk-ant-12345", got)
}

func TestWrongPasswordFailsAuthentication(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "right-password", false)
	require.NoError(t, err)
	require.NoError(t, v.Set("openai", "api_key", "sk-openai-xyz"))

	wrong, err := Open(dir, "wrong-password")
	require.NoError(t, err) // Open never validates eagerly.

	_, err = wrong.Get("openai", "api_key")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestReinitWithoutForceFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "pw", false)
	require.NoError(t, err)
	require.NoError(t, v.Set("gemini", "api_key", "g-key"))

	_, err = Init(dir, "pw2", false)
	require.Error(t, err)

	_, err = Init(dir, "pw2", true)
	require.NoError(t, err)
}

func TestListMasksByDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "pw", false)
	require.NoError(t, err)
	require.NoError(t, v.Set("gh", "token", "ghp_abc"))

	entries, err := v.List(true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "****", entries[0].Masked)
}

func TestGetFallsBackToEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "pw", false)
	require.NoError(t, err)

	t.Setenv("GOVCTL_SECRET_GEMINI_API_KEY", "env-key")
	got, err := v.Get("gemini", "api_key")
	require.NoError(t, err)
	require.Equal(t, "env-key", got)
}

func TestRotateReencryptsAllSecrets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "old-pw", false)
	require.NoError(t, err)
	require.NoError(t, v.Set("anthropic", "api_key", "secret-1"))
	require.NoError(t, v.Set("openai", "api_key", "secret-2"))

	require.NoError(t, Rotate(dir, "old-pw", "new-pw"))

	newVault, err := Open(dir, "new-pw")
	require.NoError(t, err)
	got, err := newVault.Get("anthropic", "api_key")
	require.NoError(t, err)
	require.Equal(t, "secret-1", got)

	_, err = Open(dir, "old-pw")
	require.NoError(t, err) // Open never validates eagerly.
}

func TestRotateWithWrongOldPasswordLeavesVaultUntouched(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	v, err := Init(dir, "old-pw", false)
	require.NoError(t, err)
	require.NoError(t, v.Set("anthropic", "api_key", "secret-1"))

	err = Rotate(dir, "totally-wrong", "new-pw")
	require.Error(t, err)

	stillOld, err := Open(dir, "old-pw")
	require.NoError(t, err)
	got, err := stillOld.Get("anthropic", "api_key")
	require.NoError(t, err)
	require.Equal(t, "secret-1", got)
}
