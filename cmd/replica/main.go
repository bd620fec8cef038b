// Command replica inspects and reconstructs extracted documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsawler/replica"
	"github.com/tsawler/replica/render"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "replica",
		Short:         "Inspect and reconstruct extracted documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	logger := func() (*zap.Logger, error) {
		if verbose {
			return zap.NewDevelopment()
		}
		return zap.NewProduction()
	}

	cmd.AddCommand(inspectCmd(), rebuildCmd(logger))
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <document.json>",
		Short: "Print a document's metadata and tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := replica.LoadDocument(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			md := doc.Metadata
			fmt.Fprintf(out, "Pages: %d\n", md.PageCount)
			if md.CMName != "" {
				fmt.Fprintf(out, "Module: %s\n", md.CMName)
			}
			if md.Version != "" {
				fmt.Fprintf(out, "Version: %s\n", md.Version)
			}
			if md.Date != "" {
				fmt.Fprintf(out, "Date: %s\n", md.Date)
			}
			if md.TestOrganization != "" {
				fmt.Fprintf(out, "Organization: %s\n", md.TestOrganization)
			}

			for _, page := range doc.Pages {
				for i := range page.Tables {
					t := &page.Tables[i]
					fmt.Fprintf(out, "\n[page %d] %s", page.Number, t.ID)
					if t.Caption != nil {
						fmt.Fprintf(out, " %q", *t.Caption)
					}
					fmt.Fprintf(out, " (%s)\n", t.Structured.Kind)
					fmt.Fprint(out, t.ToASCII())
				}
			}
			return nil
		},
	}
}

func rebuildCmd(logger func() (*zap.Logger, error)) *cobra.Command {
	var outDir string
	var scale float64

	cmd := &cobra.Command{
		Use:   "rebuild <document.json>",
		Short: "Reconstruct a document's pages as PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger()
			if err != nil {
				return err
			}
			defer log.Sync()

			doc, err := replica.LoadDocument(args[0])
			if err != nil {
				return err
			}

			cfg := render.DefaultConfig()
			if scale > 0 {
				cfg.Scale = scale
			}

			paths, err := replica.Rebuild(doc).
				WithConfig(cfg).
				WithLogger(log).
				Into(outDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "pages", "output directory for page images")
	cmd.Flags().Float64Var(&scale, "scale", 0, "raster pixels per page unit (default from config)")
	return cmd
}
