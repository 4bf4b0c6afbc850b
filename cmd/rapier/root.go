package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/rapier/internal/config"
	"github.com/recera/rapier/internal/datafile"
	"github.com/recera/rapier/pkg/page"
)

type globalFlags struct {
	verbose    bool
	configPath string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "rapier",
		Short: "Rapier - HTML templates and components",
		Long: `Rapier gathers <template> components out of plain HTML pages, renders
them with {{...}} text streams and binds data onto model elements.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flags.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to rapier.yaml (defaults to ./rapier.yaml)")

	rootCmd.AddCommand(newRenderCommand(flags))
	rootCmd.AddCommand(newExprCommand())
	rootCmd.AddCommand(newComponentsCommand(flags))
	rootCmd.AddCommand(newDevCommand(flags))

	return rootCmd
}

func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.LoadFile(f.configPath)
	}
	return config.Load(".")
}

// openPage parses the page at path with the configured options
func openPage(cfg *config.Config, path string) (*page.Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	opts := cfg.ComponentOptions()
	opts.Logger = slog.Default()
	return page.Parse(file, opts)
}

// renderPage parses a page, binds the data file onto it and returns the
// resulting markup
func renderPage(cfg *config.Config, pagePath, dataPath string) (*page.Page, error) {
	p, err := openPage(cfg, pagePath)
	if err != nil {
		return nil, err
	}
	data, err := datafile.Load(dataPath)
	if err != nil {
		return nil, err
	}
	if err := p.Bind(data, nil); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", pagePath, err)
	}
	return p, nil
}
