// Command sort-blobs-list normalizes the line ordering of one or more
// manifest files in place, section by section, matching
// original_source/sort-blobs-list.py.
package main

import (
	"fmt"
	"os"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/spf13/cobra"
)

var dirFirst bool

var rootCmd = &cobra.Command{
	Use:   "sort-blobs-list [files...]",
	Short: "Sort a manifest's lines within each blank-line-separated section",
	Args:  cobra.ArbitraryArgs,
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVar(&dirFirst, "dir-first", false, "Sort directories before their contents")
}

func run(_ *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		files = []string{"proprietary-files.txt"}
	}

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			fmt.Printf("File %s not found\n", file)
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}

		sorted := manifest.SortSections(string(data), dirFirst)

		if err := os.WriteFile(file, []byte(sorted), 0644); err != nil {
			return fmt.Errorf("write %s: %w", file, err)
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
