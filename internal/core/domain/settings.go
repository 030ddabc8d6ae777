package domain

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultPageSize            = 160
	DefaultBatchSize           = 16
	DefaultExtractConcurrency  = 2
	DefaultCheckConcurrency    = 16
	DefaultRequestTimeout      = 30 * time.Second
	DefaultRequestsPerSecond   = 4.0
	DefaultRequestBurst        = 4
	DefaultSimilarityThreshold = 0.7
	DefaultExtractionURL       = "http://localhost:5000"
	DefaultWatchDebounce       = 2 * time.Second

	// MaxIndexBits bounds the bucket code width.
	MaxIndexBits = 16
)

// LibrarySettings configures the media library adapter.
type LibrarySettings struct {
	// Root is the directory scanned as the photo library.
	Root string `toml:"root"`
}

// ExtractionSettings configures the remote feature extraction service.
type ExtractionSettings struct {
	// BaseURL is the extraction service endpoint.
	BaseURL string `toml:"base_url"`

	// BatchSize is the number of images sent per request.
	BatchSize int `toml:"batch_size"`

	// Concurrency is the number of batches in flight at once.
	Concurrency int `toml:"concurrency"`

	// Timeout bounds each batch request.
	Timeout time.Duration `toml:"timeout"`

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst is the maximum request burst.
	Burst int `toml:"burst"`
}

// SyncSettings configures the sync engine.
type SyncSettings struct {
	// PageSize is the number of assets fetched per library page.
	PageSize int `toml:"page_size"`

	// CheckConcurrency bounds parallel existence checks within a page.
	CheckConcurrency int `toml:"check_concurrency"`

	// WatchDebounce coalesces library change events before re-syncing.
	WatchDebounce time.Duration `toml:"watch_debounce"`

	// Interval triggers a periodic pass while watching. Zero disables it.
	Interval time.Duration `toml:"interval"`
}

// IndexSettings configures the similarity index.
type IndexSettings struct {
	// Bits fixes the bucket code width. Zero derives it from corpus size.
	Bits int `toml:"bits"`

	// Threshold is the minimum cosine similarity returned by queries.
	Threshold float64 `toml:"threshold"`
}

// StorageSettings configures on-disk locations.
type StorageSettings struct {
	// DataDir holds the database and asset cache.
	DataDir string `toml:"data_dir"`
}

// Settings holds all application settings.
type Settings struct {
	Library    LibrarySettings    `toml:"library"`
	Extraction ExtractionSettings `toml:"extraction"`
	Sync       SyncSettings       `toml:"sync"`
	Index      IndexSettings      `toml:"index"`
	Storage    StorageSettings    `toml:"storage"`
}

// DefaultSettings returns settings with sensible defaults.
// Library root and data directory are resolved at bootstrap.
func DefaultSettings() Settings {
	return Settings{
		Extraction: ExtractionSettings{
			BaseURL:           DefaultExtractionURL,
			BatchSize:         DefaultBatchSize,
			Concurrency:       DefaultExtractConcurrency,
			Timeout:           DefaultRequestTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultRequestBurst,
		},
		Sync: SyncSettings{
			PageSize:         DefaultPageSize,
			CheckConcurrency: DefaultCheckConcurrency,
			WatchDebounce:    DefaultWatchDebounce,
		},
		Index: IndexSettings{
			Threshold: DefaultSimilarityThreshold,
		},
	}
}

// Validate checks settings for values the engine cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.Extraction.BatchSize <= 0:
		return fmt.Errorf("%w: extraction batch size must be positive", ErrInvalidInput)
	case s.Extraction.Concurrency <= 0:
		return fmt.Errorf("%w: extraction concurrency must be positive", ErrInvalidInput)
	case s.Extraction.Timeout <= 0:
		return fmt.Errorf("%w: extraction timeout must be positive", ErrInvalidInput)
	case s.Sync.PageSize <= 0:
		return fmt.Errorf("%w: page size must be positive", ErrInvalidInput)
	case s.Sync.CheckConcurrency <= 0:
		return fmt.Errorf("%w: check concurrency must be positive", ErrInvalidInput)
	case s.Sync.Interval < 0:
		return fmt.Errorf("%w: sync interval must not be negative", ErrInvalidInput)
	case s.Index.Bits < 0 || s.Index.Bits > MaxIndexBits:
		return fmt.Errorf("%w: index bits must be between 0 and %d", ErrInvalidInput, MaxIndexBits)
	case s.Index.Threshold < -1 || s.Index.Threshold > 1:
		return fmt.Errorf("%w: similarity threshold must be within [-1, 1]", ErrInvalidInput)
	}
	return nil
}

// SettingKeys lists the dotted keys accepted by Settings.Set.
var SettingKeys = []string{
	"library.root",
	"extraction.base_url",
	"extraction.batch_size",
	"extraction.concurrency",
	"extraction.timeout",
	"extraction.requests_per_second",
	"extraction.burst",
	"sync.page_size",
	"sync.check_concurrency",
	"sync.watch_debounce",
	"sync.interval",
	"index.bits",
	"index.threshold",
	"storage.data_dir",
}

// Set assigns one setting by dotted key. Numbers may arrive as any numeric
// type and durations as strings ("30s") or time.Duration values.
func (s *Settings) Set(key string, value any) error {
	var err error
	switch key {
	case "library.root":
		s.Library.Root, err = asString(value)
	case "extraction.base_url":
		s.Extraction.BaseURL, err = asString(value)
	case "extraction.batch_size":
		s.Extraction.BatchSize, err = asInt(value)
	case "extraction.concurrency":
		s.Extraction.Concurrency, err = asInt(value)
	case "extraction.timeout":
		s.Extraction.Timeout, err = asDuration(value)
	case "extraction.requests_per_second":
		s.Extraction.RequestsPerSecond, err = asFloat(value)
	case "extraction.burst":
		s.Extraction.Burst, err = asInt(value)
	case "sync.page_size":
		s.Sync.PageSize, err = asInt(value)
	case "sync.check_concurrency":
		s.Sync.CheckConcurrency, err = asInt(value)
	case "sync.watch_debounce":
		s.Sync.WatchDebounce, err = asDuration(value)
	case "sync.interval":
		s.Sync.Interval, err = asDuration(value)
	case "index.bits":
		s.Index.Bits, err = asInt(value)
	case "index.threshold":
		s.Index.Threshold, err = asFloat(value)
	case "storage.data_dir":
		s.Storage.DataDir, err = asString(value)
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrInvalidInput, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, key, err)
	}
	return nil
}

func asString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		return time.ParseDuration(d)
	}
	return 0, fmt.Errorf("expected duration, got %T", v)
}
