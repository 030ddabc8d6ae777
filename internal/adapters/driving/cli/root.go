// Package cli provides the pixdex command line interface built on cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
	"github.com/custodia-labs/pixdex/internal/logger"
)

// skipBootstrap marks commands that never touch the store.
const skipBootstrap = "pixdex/skip-bootstrap"

var version = "dev"

// Options carries the global flags that shape bootstrap.
type Options struct {
	DataDir  string
	Library  string
	InMemory bool
	Verbose  bool
}

// Services are the core services the commands drive. Any field may be nil;
// commands that need a missing service fail with a "not configured" error.
type Services struct {
	Sync       driving.SyncOrchestrator
	Similarity driving.SimilarityService
	Keyword    driving.KeywordService
	Gallery    driving.GalleryService
	Settings   driving.SettingsService
	Scheduler  driving.Scheduler
}

// Bootstrapper wires services for the parsed options. The returned closer
// releases whatever the services hold open and may be nil.
type Bootstrapper func(ctx context.Context, opts Options) (*Services, func() error, error)

var (
	options       Options
	bootstrap     Bootstrapper
	closeServices func() error

	syncOrchestrator  driving.SyncOrchestrator
	similarityService driving.SimilarityService
	keywordService    driving.KeywordService
	galleryService    driving.GalleryService
	settingsService   driving.SettingsService
	scheduler         driving.Scheduler
)

var rootCmd = &cobra.Command{
	Use:   "pixdex",
	Short: "On-device visual similarity search for your photo library",
	Long: `pixdex indexes a local photo library through a remote extraction
service and answers "find images like this one" queries from an on-device
locality-sensitive hash index.

Run 'pixdex sync' to index the library, then 'pixdex similar <photo>'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&options.DataDir, "data-dir", "", "directory for the database and cache (default ~/.pixdex)")
	flags.StringVar(&options.Library, "library", "", "root directory of the photo library")
	flags.BoolVar(&options.InMemory, "in-memory", false, "keep the index in memory for this run only")
}

// SetVersion sets the version reported by 'pixdex version'.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that wires services before a command runs.
func SetBootstrap(b Bootstrapper) {
	bootstrap = b
}

// SetServices installs already wired services.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	syncOrchestrator = s.Sync
	similarityService = s.Similarity
	keywordService = s.Keyword
	galleryService = s.Gallery
	settingsService = s.Settings
	scheduler = s.Scheduler
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, shutdown())
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(options.Verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	svc, closer, err := bootstrap(cmd.Context(), options)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	SetServices(svc)
	closeServices = closer
	return nil
}

func shutdown() error {
	if closeServices == nil {
		return nil
	}
	closer := closeServices
	closeServices = nil
	return closer()
}

// assetURI turns a command argument into an asset URI. Arguments that already
// carry a scheme pass through; anything else is treated as a local path.
func assetURI(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
