package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/stack"
)

// RegisterCloud adds the GCS and Azure Blob resolvers to a registry. Both
// authenticate through their SDK default credential chains.
func RegisterCloud(r *Registry) {
	r.Register("gcs", NewGCSObject)
	r.Register("azblob", NewAzureBlob)
}

// GCSObject resolves to the contents of a Google Cloud Storage object,
// referenced as "gs://bucket/object".
type GCSObject struct {
	base
	Bucket string
	Object string
}

// NewGCSObject is the factory for the "gcs" tag.
func NewGCSObject(arg interface{}) (stack.Resolver, error) {
	ref, err := stringArg("gcs", arg)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimPrefix(ref, "gs://")
	if trimmed == ref {
		return nil, fmt.Errorf("gcs reference must start with gs://, got %q", ref)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("gcs reference must be gs://bucket/object, got %q", ref)
	}
	return &GCSObject{Bucket: parts[0], Object: parts[1]}, nil
}

func (r *GCSObject) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.ResolutionError("gcs", "creating GCS client", err)
	}
	defer client.Close()

	reader, err := client.Bucket(r.Bucket).Object(r.Object).NewReader(ctx)
	if err != nil {
		return nil, errors.ResolutionError("gcs", fmt.Sprintf("fetching gs://%s/%s", r.Bucket, r.Object), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.ResolutionError("gcs", fmt.Sprintf("reading gs://%s/%s", r.Bucket, r.Object), err)
	}
	return string(data), nil
}

// AzureBlob resolves to the contents of an Azure Blob Storage blob,
// referenced as "account/container/blob".
type AzureBlob struct {
	base
	Account   string
	Container string
	Blob      string
}

// NewAzureBlob is the factory for the "azblob" tag.
func NewAzureBlob(arg interface{}) (stack.Resolver, error) {
	ref, err := stringArg("azblob", arg)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(ref, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("azblob reference must be account/container/blob, got %q", ref)
	}
	return &AzureBlob{Account: parts[0], Container: parts[1], Blob: parts[2]}, nil
}

func (r *AzureBlob) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errors.ResolutionError("azblob", "creating Azure credential", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", r.Account)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.ResolutionError("azblob", "creating Azure blob client", err)
	}

	resp, err := client.DownloadStream(ctx, r.Container, r.Blob, nil)
	if err != nil {
		return nil, errors.ResolutionError("azblob",
			fmt.Sprintf("fetching %s/%s/%s", r.Account, r.Container, r.Blob), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ResolutionError("azblob",
			fmt.Sprintf("reading %s/%s/%s", r.Account, r.Container, r.Blob), err)
	}
	return string(data), nil
}
