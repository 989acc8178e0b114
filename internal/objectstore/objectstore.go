// Package objectstore publishes reports to S3, MinIO, Google Cloud Storage
// or Azure Blob Storage.
package objectstore

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderS3    = "s3"
	ProviderMinIO = "minio"
	ProviderGCS   = "gcs"
	ProviderAzure = "azure"
)

// Config describes how to connect to an object store provider.
type Config struct {
	Provider     string
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	PathStyle    bool
	Insecure     bool

	GCPProject         string
	GCPCredentialsFile string

	AzureAccount  string
	AzureKey      string
	AzureSASToken string
}

// ObjectInfo captures metadata about a remote object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

// Provider is a generic object store client. Keys passed to and returned
// by a Provider are relative to Config.Prefix.
type Provider interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Upload(ctx context.Context, key string, localPath string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewProvider creates a provider client based on cfg.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	provider := NormalizeProvider(cfg.Provider)
	if provider == "" {
		return nil, fmt.Errorf("objectstore provider is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore bucket is required")
	}
	cfg.Provider = provider
	switch provider {
	case ProviderS3:
		return newS3Provider(ctx, cfg)
	case ProviderMinIO:
		return newMinIOProvider(cfg)
	case ProviderGCS:
		return newGCSProvider(ctx, cfg)
	case ProviderAzure:
		return newAzureProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported objectstore provider: %s", cfg.Provider)
	}
}

// NormalizeProvider maps known aliases to provider names.
func NormalizeProvider(value string) string {
	provider := strings.ToLower(strings.TrimSpace(value))
	switch provider {
	case "aws", "s3":
		return ProviderS3
	case "minio":
		return ProviderMinIO
	case "gcp", "gcs":
		return ProviderGCS
	case "azure", "blob":
		return ProviderAzure
	default:
		return provider
	}
}

// ResolveKey joins a base prefix with a key without introducing double slashes.
func ResolveKey(prefix string, key string) string {
	cleanPrefix := strings.TrimPrefix(prefix, "/")
	cleanKey := strings.TrimPrefix(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	if strings.HasSuffix(cleanPrefix, "/") {
		return cleanPrefix + cleanKey
	}
	return cleanPrefix + "/" + cleanKey
}

// RelativeKey strips prefix from a remote key. Keys outside prefix are
// returned unchanged.
func RelativeKey(prefix string, remoteKey string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	if cleanPrefix == "" {
		return remoteKey
	}
	if rest, ok := strings.CutPrefix(remoteKey, cleanPrefix+"/"); ok {
		return rest
	}
	return remoteKey
}

// ContentType returns the MIME type uploads of localPath are stored with.
func ContentType(localPath string) string {
	switch ext := strings.ToLower(filepath.Ext(localPath)); ext {
	case ".jsonl":
		return "application/x-ndjson"
	case "":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
