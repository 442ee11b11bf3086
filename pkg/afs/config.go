package afs

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/nebulastore/pkg/nerrs"
)

// fileConfig is the YAML-facing shape of ConnectorConfig: a host process
// that wants to describe a connector declaratively (rather than building
// a ConnectorConfig literal in Go) writes one of these and loads it with
// LoadConnectorConfig. Credential/bearer-provider fields that require a
// live Go value (BearerProvider) are not representable in YAML and stay
// zero; callers needing one set it on the returned ConnectorConfig
// themselves.
type fileConfig struct {
	Backend string `yaml:"backend"`

	CredentialKind   string `yaml:"credentialKind"`
	ConnectionString string `yaml:"connectionString"`
	AccountName      string `yaml:"accountName"`
	AccountKey       string `yaml:"accountKey"`
	SASToken         string `yaml:"sasToken"`
	ConfigFilePath   string `yaml:"configFilePath"`
	ConfigProfile    string `yaml:"configProfile"`
	BucketName       string `yaml:"bucketName"`

	UseCache         bool   `yaml:"useCache"`
	TimeoutMs        int    `yaml:"timeoutMs"`
	MaxRetryAttempts int    `yaml:"maxRetryAttempts"`
	MaxBlobSize      int64  `yaml:"maxBlobSize"`
	EncryptionScope  string `yaml:"encryptionScope"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
	Namespace        string `yaml:"namespace"`
}

func parseBackendKind(s string) (BackendKind, error) {
	switch s {
	case "local", "":
		return BackendLocal, nil
	case "s3":
		return BackendS3, nil
	case "docstore":
		return BackendDocStore, nil
	case "streamlog":
		return BackendStreamLog, nil
	default:
		return 0, nerrs.InvalidConfig.New("unknown backend kind %q", s)
	}
}

func parseCredentialKind(s string) (CredentialKind, error) {
	switch s {
	case "", "none":
		return CredentialNone, nil
	case "connectionString":
		return CredentialConnectionString, nil
	case "accountKeyPair":
		return CredentialAccountKeyPair, nil
	case "sasToken":
		return CredentialSASToken, nil
	case "bearerProvider":
		return CredentialBearerProvider, nil
	case "configFile":
		return CredentialConfigFile, nil
	case "bucketName":
		return CredentialBucketName, nil
	default:
		return 0, nerrs.InvalidConfig.New("unknown credential kind %q", s)
	}
}

// LoadConnectorConfig reads a YAML-described ConnectorConfig from path.
// This is the host-facing convenience spec §6 allows alongside
// constructing a ConnectorConfig literal in Go; the core library never
// reads files on its own behalf.
func LoadConnectorConfig(path string) (ConnectorConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ConnectorConfig{}, nerrs.InvalidConfig.Wrap(err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return ConnectorConfig{}, nerrs.InvalidConfig.Wrap(err)
	}

	backend, err := parseBackendKind(fc.Backend)
	if err != nil {
		return ConnectorConfig{}, err
	}
	credKind, err := parseCredentialKind(fc.CredentialKind)
	if err != nil {
		return ConnectorConfig{}, err
	}

	return ConnectorConfig{
		Backend:          backend,
		CredentialKind:   credKind,
		ConnectionString: fc.ConnectionString,
		AccountName:      fc.AccountName,
		AccountKey:       fc.AccountKey,
		SASToken:         fc.SASToken,
		ConfigFilePath:   fc.ConfigFilePath,
		ConfigProfile:    fc.ConfigProfile,
		BucketName:       fc.BucketName,
		UseCache:         fc.UseCache,
		TimeoutMs:        fc.TimeoutMs,
		MaxRetryAttempts: fc.MaxRetryAttempts,
		MaxBlobSize:      fc.MaxBlobSize,
		EncryptionScope:  fc.EncryptionScope,
		Region:           fc.Region,
		Endpoint:         fc.Endpoint,
		Namespace:        fc.Namespace,
	}, nil
}
