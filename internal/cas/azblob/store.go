// Copyright 2025 Shadow Atlas Contributors
//
// Package azblob implements internal/cas.Store against Azure Blob Storage,
// the object-store backend forestrie's massif committer is built on
// (_examples/forestrie-go-merklelog/massifs). We talk to the SDK's service
// client directly rather than through forestrie's internal wrapper package,
// since that wrapper isn't a standalone importable module.

package azblob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Store publishes content-addressed blobs into one Azure Blob Storage
// container. The blob name is the payload's content id, so Put is
// idempotent by construction: re-uploading identical bytes targets the
// same blob name.
type Store struct {
	client    *azblob.Client
	container string
}

// Open constructs a Store from an Azure Storage connection string and a
// target container name. The container is not created automatically;
// operators provision it out of band.
func Open(connectionString, container string) (*Store, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("azblob: creating client: %w", err)
	}
	return &Store{client: client, container: container}, nil
}

func contentID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func blobName(id string) string {
	// Azure blob names may not contain ':'; the content id's scheme
	// separator is rewritten to '/' so blobs land under a "sha256/" prefix.
	return "sha256/" + id[len("sha256:"):]
}

// Put implements cas.Store.
func (s *Store) Put(ctx context.Context, payload []byte) (string, error) {
	id := contentID(payload)

	_, err := s.client.UploadBuffer(ctx, s.container, blobName(id), payload, nil)
	if err != nil {
		return "", fmt.Errorf("azblob: upload: %w", err)
	}
	return id, nil
}

// Head implements cas.Store.
func (s *Store) Head(ctx context.Context, contentID string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(blobName(contentID))
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("azblob: get properties: %w", err)
	}
	return true, nil
}
