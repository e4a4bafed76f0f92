package factory

import (
	"fmt"
	"net/url"
	"strings"

	"go-medical-imaging/internal/storage"
)

// StorageType represents different types of image sources
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// StorageFactory resolves the image source for a location
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageSource, error)
	ForLocation(location string) (storage.ImageSource, error)
}

type storageFactory struct {
	http  storage.ImageSource
	azure storage.ImageSource
}

// NewStorageFactory creates a factory. azure may be nil when no account is configured.
func NewStorageFactory(http, azure storage.ImageSource) StorageFactory {
	return &storageFactory{http: http, azure: azure}
}

// CreateStorage returns the source for the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageSource, error) {
	switch storageType {
	case HTTPStorage:
		if f.http == nil {
			return nil, fmt.Errorf("http storage not configured")
		}
		return f.http, nil
	case AzureStorage:
		if f.azure == nil {
			return nil, fmt.Errorf("azure storage not configured")
		}
		return f.azure, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ForLocation picks the source from the location's scheme
func (f *storageFactory) ForLocation(location string) (storage.ImageSource, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	return f.CreateStorage(StorageTypeForScheme(parsed.Scheme))
}

// StorageTypeForScheme maps a URL scheme to a storage type
func StorageTypeForScheme(scheme string) StorageType {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return HTTPStorage
	case storage.AzureScheme:
		return AzureStorage
	default:
		return StorageType(scheme)
	}
}
