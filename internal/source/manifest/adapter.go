package manifest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/timmy/shotrank/internal/source"
)

// SourceType is the source type recorded for manifest screenshots.
const SourceType = "manifest"

// Item represents a line in the manifest JSONL file.
type Item struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SiteURL    string `json:"site_url"`
	Format     string `json:"format"`
	CapturedAt string `json:"captured_at"`
}

// Adapter implements source.Source over a JSONL manifest and an images directory.
type Adapter struct {
	manifestPath string
	imagesDir    string

	once    sync.Once
	items   []source.Screenshot
	loadErr error
}

// NewAdapter creates a new manifest adapter.
// Parameters:
//   - manifestPath: path to the JSONL manifest.
//   - imagesDir: directory holding the files named in the manifest; defaults to
//     an "images" directory next to the manifest.
// Returns:
//   - *Adapter: initialized manifest adapter.
func NewAdapter(manifestPath, imagesDir string) *Adapter {
	if imagesDir == "" {
		imagesDir = filepath.Join(filepath.Dir(manifestPath), "images")
	}
	return &Adapter{
		manifestPath: manifestPath,
		imagesDir:    imagesDir,
	}
}

// Type returns the source type.
func (a *Adapter) Type() string {
	return SourceType
}

// FetchBatch returns a page of manifest items. The cursor is an index into
// the items sorted by source id.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Screenshot, string, error) {
	a.once.Do(func() { a.loadErr = a.loadItems() })
	if a.loadErr != nil {
		return nil, "", fmt.Errorf("failed to load manifest: %w", a.loadErr)
	}

	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(a.items) {
		return []source.Screenshot{}, "", nil
	}

	end := len(a.items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	next := ""
	if end < len(a.items) {
		next = strconv.Itoa(end)
	}
	return a.items[start:end], next, nil
}

// Read reads the screenshot file from disk.
func (a *Adapter) Read(ctx context.Context, item source.Screenshot) ([]byte, error) {
	data, err := os.ReadFile(item.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", item.LocalPath, err)
	}
	return data, nil
}

// Count returns the number of usable manifest items.
func (a *Adapter) Count() (int, error) {
	a.once.Do(func() { a.loadErr = a.loadItems() })
	return len(a.items), a.loadErr
}

func (a *Adapter) loadItems() error {
	file, err := os.Open(a.manifestPath)
	if err != nil {
		return err
	}
	defer file.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue
		}
		if item.ID == "" || item.Filename == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}

		localPath := filepath.Join(a.imagesDir, item.Filename)
		if _, err := os.Stat(localPath); err != nil {
			continue
		}

		format := strings.ToLower(item.Format)
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(item.Filename)), ".")
		}

		seen[item.ID] = struct{}{}
		a.items = append(a.items, source.Screenshot{
			SourceID:  item.ID,
			SiteURL:   item.SiteURL,
			Format:    format,
			LocalPath: localPath,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading manifest: %w", err)
	}

	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].SourceID < a.items[j].SourceID
	})
	return nil
}
