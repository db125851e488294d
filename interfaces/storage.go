package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrIdentityNotFound is returned when a device identity record does
	// not exist in the store.
	ErrIdentityNotFound = errors.New("device identity not found")

	// ErrStoreUnavailable is returned when an identity store is not
	// accessible, due to network issues, authentication failures, or
	// service outages.
	ErrStoreUnavailable = errors.New("identity store unavailable")

	// ErrInvalidStoreLocation is returned when an identity store URI is
	// malformed or unsupported.
	ErrInvalidStoreLocation = errors.New("invalid identity store location URI")
)

// IdentityStore provides persistence for device identity records keyed by
// device identifier.
type IdentityStore interface {
	// Get retrieves a record by device ID. Returns ErrIdentityNotFound
	// if no record exists.
	Get(ctx context.Context, id DeviceID) (*DeviceIdentity, error)

	// Put saves a record, replacing any existing record for the same
	// device ID.
	Put(ctx context.Context, identity *DeviceIdentity) error

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this store.
	LocationURI() string
}

// StoreLocation represents a URI for an identity store backend.
type StoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStoreLocation creates a new store location from a URI string with
// validation. Supported schemes: mem, file, s3, vault.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidStoreLocation, err)
	}

	switch parsed.Scheme {
	case "mem", "file", "s3", "vault":
		// Valid scheme
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidStoreLocation, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// IdentityStoreFactory creates identity stores from location URIs.
type IdentityStoreFactory interface {
	// StoreFor creates a store from a URI.
	// Supports mem://, file://, s3://, vault://
	StoreFor(location StoreLocation) (IdentityStore, error)
}
