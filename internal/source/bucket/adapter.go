package bucket

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/timmy/shotrank/internal/source"
	"github.com/timmy/shotrank/internal/storage"
)

// SourceType is the source type recorded for bucket screenshots.
const SourceType = "bucket"

var imageFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpg",
	".jpeg": "jpg",
	".gif":  "gif",
	".webp": "webp",
}

// Adapter implements source.Source over an object storage prefix. Each image
// object is one screenshot; its key is the source id.
type Adapter struct {
	store  storage.ObjectStorage
	prefix string
}

// NewAdapter creates a bucket adapter listing objects under prefix.
func NewAdapter(store storage.ObjectStorage, prefix string) *Adapter {
	return &Adapter{store: store, prefix: strings.TrimPrefix(prefix, "/")}
}

// Type returns the source type.
func (a *Adapter) Type() string {
	return SourceType
}

// FetchBatch lists the next page of image objects. Non-image keys are
// skipped, so a page may hold fewer than limit items while a cursor remains.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Screenshot, string, error) {
	objects, next, err := a.store.List(ctx, a.prefix, cursor, limit)
	if err != nil {
		return nil, "", err
	}

	items := make([]source.Screenshot, 0, len(objects))
	for _, obj := range objects {
		format, ok := imageFormats[strings.ToLower(path.Ext(obj.Key))]
		if !ok || obj.Size == 0 {
			continue
		}
		items = append(items, source.Screenshot{
			SourceID:   obj.Key,
			SiteURL:    a.store.GetURL(obj.Key),
			Format:     format,
			StorageKey: obj.Key,
		})
	}
	return items, next, nil
}

// Read downloads the object behind item.
func (a *Adapter) Read(ctx context.Context, item source.Screenshot) ([]byte, error) {
	body, err := a.store.Download(ctx, item.StorageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", item.StorageKey, err)
	}
	return data, nil
}
