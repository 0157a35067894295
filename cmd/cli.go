package cmd

import (
	"context"

	"bandfx/internal/config"
	applog "bandfx/internal/log"
	"bandfx/pkg/build"

	"github.com/spf13/cobra"
)

// options are the flags shared by every command.
type options struct {
	configPath string
	verbose    bool
}

// Execute parses os.Args and runs the selected command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.Get()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML configuration file (default: bandfx.yaml or config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newAnalyzeCommand(opts),
		newProfileCommand(opts),
		newPlayCommand(opts),
		newDevicesCommand(opts),
	)
	return rootCmd
}

// load reads the configuration and applies the log level.
func (o *options) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	level, _ := applog.ParseLevel(cfg.LogLevel)
	if o.verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
	return cfg, nil
}
