package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcsProvider struct {
	cfg    Config
	client *storage.Client
}

func newGCSProvider(ctx context.Context, cfg Config) (Provider, error) {
	var options []option.ClientOption
	if file := strings.TrimSpace(cfg.GCPCredentialsFile); file != "" {
		options = append(options, option.WithCredentialsFile(file))
	}
	if project := strings.TrimSpace(cfg.GCPProject); project != "" {
		options = append(options, option.WithQuotaProject(project))
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		options = append(options, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, err
	}
	return &gcsProvider{cfg: cfg, client: client}, nil
}

func (p *gcsProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := p.client.Bucket(p.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: ResolveKey(p.cfg.Prefix, prefix)})
	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, ObjectInfo{
			Key:          RelativeKey(p.cfg.Prefix, attrs.Name),
			Size:         attrs.Size,
			ETag:         attrs.Etag,
			LastModified: attrs.Updated,
		})
	}
	return objects, nil
}

func (p *gcsProvider) Upload(ctx context.Context, key string, localPath string) (ObjectInfo, error) {
	remoteKey := ResolveKey(p.cfg.Prefix, key)
	file, err := os.Open(localPath)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return ObjectInfo{}, err
	}
	writer := p.client.Bucket(p.cfg.Bucket).Object(remoteKey).NewWriter(ctx)
	writer.ContentType = ContentType(localPath)
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return ObjectInfo{}, err
	}
	if err := writer.Close(); err != nil {
		return ObjectInfo{}, err
	}
	info := ObjectInfo{Key: key, Size: stat.Size()}
	if attrs := writer.Attrs(); attrs != nil {
		info.ETag = attrs.Etag
		info.LastModified = attrs.Updated
	}
	return info, nil
}

func (p *gcsProvider) Delete(ctx context.Context, key string) error {
	return p.client.Bucket(p.cfg.Bucket).Object(ResolveKey(p.cfg.Prefix, key)).Delete(ctx)
}

func (p *gcsProvider) Close() error {
	return p.client.Close()
}
