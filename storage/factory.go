package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// Factory creates identity stores from location URIs.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// StoreFor creates an identity store from a location URI.
//
// Supported schemes:
//   - mem:// - In-process memory (tests, single-instance deployments)
//   - file:// - Local filesystem, one JSON record per device
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *Factory) StoreFor(location interfaces.StoreLocation) (interfaces.IdentityStore, error) {
	switch strings.ToLower(location.Scheme) {
	case "mem":
		return NewMemoryStore(), nil
	case "file":
		return f.createFileStore(location)
	case "s3":
		return f.createS3Store(location)
	case "vault":
		return f.createVaultStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidStoreLocation, location.Scheme)
	}
}

// createFileStore creates a file system identity store.
// URI format: file:///var/lib/attestd or file://./relative/path
func (f *Factory) createFileStore(location interfaces.StoreLocation) (interfaces.IdentityStore, error) {
	f.log.Debug("Creating file store", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI", interfaces.ErrInvalidStoreLocation)
	}

	return NewFileStore(path, f.log)
}

// createS3Store creates an S3 identity store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=custom.s3.com
func (f *Factory) createS3Store(location interfaces.StoreLocation) (interfaces.IdentityStore, error) {
	f.log.Debug("Creating S3 store", slog.String("uri", location.String()))

	bucketName := location.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket name in S3 URI", interfaces.ErrInvalidStoreLocation)
	}
	prefix := strings.TrimPrefix(location.Path, "/")

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := location.GetParam("endpoint")

	var accessKey, secretKey string
	if location.Auth != "" {
		parts := strings.SplitN(location.Auth, ":", 2)
		accessKey = parts[0]
		if len(parts) == 2 {
			secretKey = parts[1]
		}
	}

	return NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey, f.log)
}

// createVaultStore creates a Vault identity store.
// URI format: vault://vault.example.com:8200/secret/device-identities?scheme=https&token=...
func (f *Factory) createVaultStore(location interfaces.StoreLocation) (interfaces.IdentityStore, error) {
	f.log.Debug("Creating Vault store", slog.String("uri", location.String()))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing Vault address in URI", interfaces.ErrInvalidStoreLocation)
	}

	scheme := location.GetParam("scheme")
	if scheme == "" {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, location.Host)

	parts := strings.Split(strings.Trim(location.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		return nil, fmt.Errorf("%w: Vault URI path must be /<mount>/<data-path>", interfaces.ErrInvalidStoreLocation)
	}
	mountPath := parts[0]
	dataPath := strings.Join(parts[1:], "/")

	return NewVaultStore(address, mountPath, dataPath, location.GetParam("token"), f.log)
}
