package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/rapier/internal/datafile"
)

func newRenderCommand(flags *globalFlags) *cobra.Command {
	var dataPath string
	var componentName string
	var variant string
	var output string

	cmd := &cobra.Command{
		Use:   "render <page.html>",
		Short: "Render a page or one of its components",
		Long: `Parses the page, gathers its templates and binds the data file onto every
model element. With --component only that component is rendered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer file.Close()
				out = file
			}

			if componentName != "" {
				p, err := openPage(cfg, args[0])
				if err != nil {
					return err
				}
				data, err := datafile.Load(dataPath)
				if err != nil {
					return err
				}
				markup, err := p.RenderComponent(componentName, data, variant)
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, markup)
				return err
			}

			p, err := renderPage(cfg, args[0], dataPath)
			if err != nil {
				return err
			}
			return p.Render(out)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON or YAML data file (- for stdin)")
	cmd.Flags().StringVar(&componentName, "component", "", "Render only this component")
	cmd.Flags().StringVar(&variant, "variant", "", "Variant of --component to render")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}
