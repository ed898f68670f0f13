package source

import "context"

// Screenshot is a website screenshot offered by a source.
type Screenshot struct {
	SourceID   string // Unique ID within the source
	SiteURL    string // Page the screenshot was taken of
	Format     string // File format (png, jpg, webp, ...)
	LocalPath  string // Local file path, set by file-backed sources
	StorageKey string // Object key, set by bucket-backed sources
}

// Source defines the interface for screenshot sources.
type Source interface {
	// Type returns the source type recorded on stored images.
	// Parameters: none.
	// Returns:
	//   - string: stable source type such as "manifest" or "bucket".
	Type() string

	// FetchBatch fetches a batch of screenshots starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of screenshots.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []Screenshot, nextCursor string, err error)

	// Read returns the raw image bytes of a screenshot.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - item: screenshot previously returned by FetchBatch.
	// Returns:
	//   - []byte: encoded image data.
	//   - error: non-nil if the image cannot be read.
	Read(ctx context.Context, item Screenshot) ([]byte, error)
}
