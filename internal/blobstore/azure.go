package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/pkg/errors"
	"github.com/vk/blockflow/internal/ctxlog"
)

// DefaultAzureContainer is the container audio is uploaded into.
const DefaultAzureContainer = "audiofiles"

// AzureStore keeps objects in one Azure Blob Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore connects using a storage account connection string. The
// connection string must carry an account key so links can be signed.
func NewAzureStore(connectionString, container string) (*AzureStore, error) {
	if container == "" {
		container = DefaultAzureContainer
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create azure blob client")
	}
	return &AzureStore{client: client, container: container}, nil
}

// Put uploads the stream as a block blob, overwriting any existing blob.
func (s *AzureStore) Put(ctx context.Context, r io.Reader, name string) (string, error) {
	if name == "" {
		name = NewObjectName("mp3")
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	logger := ctxlog.FromContext(ctx).With("store", "azure", "container", s.container, "blob", name)
	logger.Debug("Uploading blob.")

	if _, err := s.client.UploadStream(ctx, s.container, name, r, nil); err != nil {
		return "", errors.Wrapf(err, "failed to upload blob %s", name)
	}
	logger.Debug("Blob uploaded.")
	return name, nil
}

// SignedURL returns a read-only SAS link for the blob.
func (s *AzureStore) SignedURL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	url, err := blobClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(expiry), nil)
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign url for blob %s", name)
	}
	return url, nil
}
