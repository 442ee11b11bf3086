package afs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nebulastore/pkg/afs"
)

func TestLoadConnectorConfigYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "connector.yaml")
	contents := `
backend: docstore
credentialKind: bucketName
bucketName: widgets
useCache: true
maxRetryAttempts: 5
maxBlobSize: 2097152
region: us-east-1
`
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))

	cfg, err := afs.LoadConnectorConfig(p)
	require.NoError(t, err)
	require.Equal(t, afs.BackendDocStore, cfg.Backend)
	require.Equal(t, afs.CredentialBucketName, cfg.CredentialKind)
	require.Equal(t, "widgets", cfg.BucketName)
	require.True(t, cfg.UseCache)
	require.Equal(t, 5, cfg.MaxRetryAttempts)
	require.EqualValues(t, 2097152, cfg.MaxBlobSize)
	require.Equal(t, "us-east-1", cfg.Region)
}

func TestLoadConnectorConfigRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "connector.yaml")
	require.NoError(t, os.WriteFile(p, []byte("backend: carrier-pigeon\n"), 0o644))

	_, err := afs.LoadConnectorConfig(p)
	require.Error(t, err)
}

func TestLoadConnectorConfigMissingFile(t *testing.T) {
	_, err := afs.LoadConnectorConfig("/nonexistent/connector.yaml")
	require.Error(t, err)
}
