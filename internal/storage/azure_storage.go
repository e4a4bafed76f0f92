package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureScheme marks blob locations: azblob://<container>/<blob path>
const AzureScheme = "azblob"

type azureStorage struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureStorage creates an ImageSource reading from one storage account.
func NewAzureStorage(accountName, accountKey string, maxBytes int64) (ImageSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &azureStorage{client: client, maxBytes: maxBytes}, nil
}

func (s *azureStorage) FetchImage(ctx context.Context, location string) ([]byte, error) {
	containerName, blobName, err := ParseBlobLocation(location)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	return readLimited(resp.Body, s.maxBytes)
}

// ParseBlobLocation splits azblob://container/blob into its parts.
func ParseBlobLocation(location string) (string, string, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if parsed.Scheme != AzureScheme {
		return "", "", fmt.Errorf("invalid blob URL: scheme must be %s", AzureScheme)
	}

	blobName := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob URL: expected %s://<container>/<blob>", AzureScheme)
	}
	return parsed.Host, blobName, nil
}
