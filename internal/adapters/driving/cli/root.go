// Package cli implements the trialdex command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services are the driving ports the commands call.
type Services struct {
	Loader driving.TrialLoader

	// Search is nil when the AACT database is not configured.
	Search driving.TrialSearch

	// Watcher is nil unless records are read from a local directory.
	Watcher driving.TrialWatcher
}

// Options are the global flags passed to the bootstrap function.
type Options struct {
	ConfigDir string
	Verbose   bool

	// CheckProviders asks the bootstrap to ping the embedding provider
	// before the command runs.
	CheckProviders bool
}

// Bootstrap builds the services from configuration. The returned cleanup
// releases connections when the command finishes.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	trialLoader  driving.TrialLoader
	trialSearch  driving.TrialSearch
	trialWatcher driving.TrialWatcher

	bootstrap Bootstrap
	cleanup   func()

	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "trialdex",
	Short: "Load clinical trial records into a hybrid search index",
	Long: `trialdex fetches study records from ClinicalTrials.gov, normalises them
into documents with a fixed metadata schema, chunks and embeds them, and
writes the chunks to a search table carrying both text and vectors.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.trialdex)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that builds services before a command runs.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup enables logging and builds services for commands that need them.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationNoServices] == "true" || trialLoader != nil || bootstrap == nil {
		return nil
	}

	services, release, err := bootstrap(cmd.Context(), Options{
		ConfigDir:      configDir,
		Verbose:        verbose,
		CheckProviders: cmd.Annotations[annotationCheckProviders] == "true",
	})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	trialLoader = services.Loader
	trialSearch = services.Search
	trialWatcher = services.Watcher
	cleanup = release
	return nil
}

const (
	// annotationNoServices marks commands that run without configuration.
	annotationNoServices = "no-services"

	// annotationCheckProviders marks commands that embed.
	annotationCheckProviders = "check-providers"
)

var errLoaderNotConfigured = errors.New("loader not configured")

func requireLoader() (driving.TrialLoader, error) {
	if trialLoader == nil {
		return nil, errLoaderNotConfigured
	}
	return trialLoader, nil
}
