package file

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// EnvPrefix namespaces environment overrides, e.g. PIXDEX_LIBRARY_ROOT.
const EnvPrefix = "PIXDEX"

// envOverrides mirrors the settings that may be overridden from the
// environment. Pointers distinguish unset from zero.
type envOverrides struct {
	LibraryRoot       *string        `envconfig:"LIBRARY_ROOT"`
	ExtractionURL     *string        `envconfig:"EXTRACTION_URL"`
	BatchSize         *int           `envconfig:"BATCH_SIZE"`
	Concurrency       *int           `envconfig:"CONCURRENCY"`
	Timeout           *time.Duration `envconfig:"TIMEOUT"`
	RequestsPerSecond *float64       `envconfig:"REQUESTS_PER_SECOND"`
	PageSize          *int           `envconfig:"PAGE_SIZE"`
	Interval          *time.Duration `envconfig:"SYNC_INTERVAL"`
	IndexBits         *int           `envconfig:"INDEX_BITS"`
	Threshold         *float64       `envconfig:"THRESHOLD"`
	DataDir           *string        `envconfig:"DATA_DIR"`
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays PIXDEX_* environment variables onto settings.
func ApplyEnv(settings *domain.Settings) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: environment: %v", domain.ErrInvalidInput, err)
	}

	overrides := []struct {
		key   string
		value any
		ok    bool
	}{
		{"library.root", deref(env.LibraryRoot), env.LibraryRoot != nil},
		{"extraction.base_url", deref(env.ExtractionURL), env.ExtractionURL != nil},
		{"extraction.batch_size", deref(env.BatchSize), env.BatchSize != nil},
		{"extraction.concurrency", deref(env.Concurrency), env.Concurrency != nil},
		{"extraction.timeout", deref(env.Timeout), env.Timeout != nil},
		{"extraction.requests_per_second", deref(env.RequestsPerSecond), env.RequestsPerSecond != nil},
		{"sync.page_size", deref(env.PageSize), env.PageSize != nil},
		{"sync.interval", deref(env.Interval), env.Interval != nil},
		{"index.bits", deref(env.IndexBits), env.IndexBits != nil},
		{"index.threshold", deref(env.Threshold), env.Threshold != nil},
		{"storage.data_dir", deref(env.DataDir), env.DataDir != nil},
	}
	for _, o := range overrides {
		if !o.ok {
			continue
		}
		if err := settings.Set(o.key, o.value); err != nil {
			return err
		}
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
