package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cnext/internal/diagfmt"
	"cnext/internal/driver"
	"cnext/internal/project"
)

var (
	generateOut     string
	generateFormat  string
	generateTimings bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "output directory (default <input>/gen)")
	generateCmd.Flags().StringVar(&generateFormat, "format", "pretty", "diagnostic format (pretty|json)")
	generateCmd.Flags().BoolVar(&generateTimings, "timings", false, "print per-phase timings after the run")
}

var generateCmd = &cobra.Command{
	Use:   "generate [flags] [path]",
	Short: "Generate C sources and headers from a tree directory",
	Long: `Generate compiles every serialized syntax tree under the given
directory into C implementation files with C and C++ headers, using the
nearest cnext.toml for the entry point, overflow mode and header map.
Nothing is written unless every file generates cleanly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inputDir := "."
	if len(args) == 1 {
		inputDir = args[0]
	}
	outDir := generateOut
	if outDir == "" {
		outDir = filepath.Join(inputDir, "gen")
	}

	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	colorValue, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	cfg, manifestPath, err := project.LoadNearest(inputDir)
	if err != nil {
		return err
	}
	if manifestPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "using %s\n", manifestPath)
	}

	res, err := driver.Build(cmd.Context(), driver.Options{
		InputDir:       inputDir,
		OutDir:         outDir,
		Config:         cfg,
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
	})
	if err != nil {
		return err
	}

	if err := reportDiagnostics(res, colorValue); err != nil {
		return err
	}
	if generateTimings {
		fmt.Fprint(cmd.OutOrStdout(), res.Timings.Summary())
	}
	if res.HasErrors() {
		return fmt.Errorf("generation failed")
	}
	for _, path := range res.Written {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}

// reportDiagnostics renders every bag of the run to stderr in the selected
// format.
func reportDiagnostics(res *driver.Result, colorValue string) error {
	merged := res.Bag
	for i := range res.Files {
		merged.Merge(res.Files[i].Bag)
	}
	merged.Sort()
	if merged.Len() == 0 {
		return nil
	}

	if generateFormat == "json" {
		return diagfmt.JSON(os.Stderr, merged, res.FileSet)
	}
	opts := diagfmt.DefaultPrettyOpts()
	opts.Color = diagfmt.ParseColorMode(colorValue).Enabled(os.Stderr)
	diagfmt.Pretty(os.Stderr, merged, res.FileSet, opts)
	return nil
}
