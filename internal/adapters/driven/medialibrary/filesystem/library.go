// Package filesystem implements the media library over a directory of images.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder for dimensions
	_ "image/jpeg" // register decoder for dimensions
	_ "image/png"  // register decoder for dimensions
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/logger"
)

// Ensure Library implements the interfaces.
var (
	_ driven.MediaLibrary   = (*Library)(nil)
	_ driven.LibraryWatcher = (*Library)(nil)
)

// URIScheme prefixes every asset URI.
const URIScheme = "file://"

// contentTypes maps supported extensions to MIME types.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".heic": "image/heic",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Library lists image files under a root directory.
type Library struct {
	root string

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// file is one image found during a scan.
type file struct {
	path    string
	modTime int64
	info    fs.FileInfo
}

// New creates a library rooted at root.
func New(root string) *Library {
	return &Library{root: root}
}

// Root returns the library directory.
func (l *Library) Root() string {
	return l.root
}

// Permission reports granted when the root is a readable directory.
func (l *Library) Permission(_ context.Context) (domain.Permission, error) {
	if l.root == "" {
		return domain.PermissionUndetermined, nil
	}
	if err := l.checkRoot(); err != nil {
		return domain.PermissionDenied, nil
	}
	return domain.PermissionGranted, nil
}

// RequestPermission re-checks the root. A directory cannot prompt.
func (l *Library) RequestPermission(ctx context.Context) (domain.Permission, error) {
	p, err := l.Permission(ctx)
	if p == domain.PermissionUndetermined {
		return domain.PermissionDenied, err
	}
	return p, err
}

// Remediation describes how to make the library readable.
func (l *Library) Remediation() string {
	if l.root == "" {
		return "set library.root (or PIXDEX_LIBRARY_ROOT) to your photo directory"
	}
	return fmt.Sprintf("make %s a readable directory or point library.root elsewhere", l.root)
}

func (l *Library) checkRoot() error {
	info, err := os.Stat(l.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", l.root)
	}
	f, err := os.Open(l.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	return f.Close()
}

// ListPage returns up to pageSize images newest first, continuing after the cursor.
func (l *Library) ListPage(ctx context.Context, pageSize int, after string) (*domain.Page, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive", domain.ErrInvalidInput)
	}
	cursor, err := DecodeCursor(after)
	if err != nil {
		return nil, err
	}
	if err := l.checkRoot(); err != nil {
		return nil, &domain.PermissionError{Remediation: l.Remediation()}
	}

	files, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}

	start := 0
	if !cursor.IsStart() {
		start = sort.Search(len(files), func(i int) bool {
			return !before(files[i], cursor.ModTime, cursor.After) &&
				!(files[i].modTime == cursor.ModTime && files[i].path == cursor.After)
		})
	}
	end := min(start+pageSize, len(files))

	page := &domain.Page{
		Assets:      make([]domain.Asset, 0, end-start),
		TotalCount:  len(files),
		EndCursor:   after,
		HasNextPage: end < len(files),
	}
	for _, f := range files[start:end] {
		page.Assets = append(page.Assets, l.asset(f))
	}
	if end > start {
		last := files[end-1]
		page.EndCursor = (&Cursor{Version: CursorVersion, After: last.path, ModTime: last.modTime}).Encode()
	}
	return page, nil
}

// before reports whether f sorts before the (modTime, path) key.
// Order is modification time descending, then path ascending.
func before(f file, modTime int64, path string) bool {
	if f.modTime != modTime {
		return f.modTime > modTime
	}
	return f.path < path
}

// scan walks the root and returns every supported image in listing order.
func (l *Library) scan(ctx context.Context) ([]file, error) {
	var files []file
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.root {
				return err
			}
			logger.Warn("filesystem: skipping %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != l.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isImage(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil // removed mid-scan
		}
		files = append(files, file{path: path, modTime: info.ModTime().UnixNano(), info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return before(files[i], files[j].modTime, files[j].path)
	})
	return files, nil
}

func (l *Library) asset(f file) domain.Asset {
	rel, err := filepath.Rel(l.root, f.path)
	if err != nil {
		rel = f.path
	}
	a := domain.Asset{
		ID:           filepath.ToSlash(rel),
		URI:          PathToURI(f.path),
		Filename:     f.info.Name(),
		CreationTime: f.info.ModTime(),
	}
	if dir := filepath.Dir(rel); dir != "." {
		a.AlbumID = filepath.ToSlash(dir)
	}
	a.Width, a.Height = dimensions(f.path)
	return a
}

// dimensions decodes the image header. Unknown formats report zero.
func dimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// LocalContent reads the image bytes of an asset.
func (l *Library) LocalContent(_ context.Context, asset domain.Asset) (*domain.ImagePayload, error) {
	path := URIToPath(asset.URI)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrContentUnavailable, asset.URI, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", domain.ErrContentUnavailable, asset.URI)
	}

	filename := asset.Filename
	if filename == "" {
		filename = filepath.Base(path)
	}
	return &domain.ImagePayload{
		URI:         asset.URI,
		Filename:    filename,
		ContentType: contentType(path),
		Data:        data,
	}, nil
}

// Watch emits a signal whenever an image or directory under the root changes.
// Signals are coalesced: a pending signal absorbs later events.
func (l *Library) Watch(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.New("filesystem: library closed")
	}
	if err := l.checkRoot(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(watcher, l.root); err != nil {
		watcher.Close()
		return nil, err
	}
	l.watchers = append(l.watchers, watcher)

	out := make(chan struct{}, 1)
	go l.watchLoop(ctx, watcher, out)
	return out, nil
}

func (l *Library) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !l.handleFsEvent(watcher, event) {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem: watch error: %v", err)
		}
	}
}

// handleFsEvent reports whether event changes the library.
// New directories are added to the watch set.
func (l *Library) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	rel, err := filepath.Rel(l.root, event.Name)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if isHidden(part) {
			return false
		}
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(watcher, event.Name); err != nil {
				logger.Warn("filesystem: watch %s: %v", event.Name, err)
			}
			return true
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	// Removed directories cannot be stat'ed; any removal may drop images.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return isImage(event.Name) || filepath.Ext(event.Name) == ""
	}
	return isImage(event.Name)
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops every watcher. Safe to call more than once.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	for _, w := range l.watchers {
		errs = append(errs, w.Close())
	}
	l.watchers = nil
	return errors.Join(errs...)
}

// PathToURI converts an absolute path into an asset URI.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return URIScheme + filepath.ToSlash(path)
}

// URIToPath converts an asset URI into a local path. Bare paths pass through.
func URIToPath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, URIScheme))
}

func isImage(path string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// isHidden reports dot-prefixed names. "." and ".." are not hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
