// Package main implements the cnextc CLI, the backend of the C-Next
// compiler: it turns the front end's serialized syntax trees into C
// sources with matching C and C++ headers.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"cnext/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cnextc",
	Short: "C-Next compiler backend",
	Long:  `cnextc generates C sources and C/C++ headers from C-Next syntax trees`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("jobs", 0, "parallel generation workers (0 = all CPUs)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics per file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
