// Package cmd wires the cobra CLI surface (§6) onto the extraction
// pipeline, grounded on the teacher's internal/cmd/root.go: a single
// root command, a PersistentPreRunE that loads configuration, and
// signal.NotifyContext-scoped execution.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"

	"github.com/LineageOS/android-tools-extract-utils/config"
	. "github.com/LineageOS/android-tools-extract-utils/internal/cmdglobals"
	recipepkg "github.com/LineageOS/android-tools-extract-utils/recipe"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	rootCmd = cobra.Command{
		Use:               "extract-utils <list-file> <source>",
		Version:           "devel",
		Short:             "Extract, pin, and package proprietary Android device blobs into a vendor tree",
		Args:              cobra.ExactArgs(2),
		PersistentPreRunE: preRun,
		RunE:              run,
	}

	verbose    *bool
	recipeFile *string

	onlyCommon *bool
	onlyTarget *bool
	noCleanup  *bool
	kang       *bool
	section    *string
	regenMk    *bool
	regen      *bool
	legacy     *bool
	keepDump   *bool

	recipe *config.RecipeV2
)

func init() {
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		rootCmd.Version = buildInfo.Main.Version
	}

	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enables debug-level logging")
	recipeFile = rootCmd.PersistentFlags().StringP("recipe", "c", "extract-utils.yaml", "Path to the device recipe config file (.yaml/.yml/.json)")

	onlyCommon = rootCmd.Flags().Bool("only-common", false, "Only extract the common module")
	onlyTarget = rootCmd.Flags().Bool("only-target", false, "Only extract the target module")
	rootCmd.MarkFlagsMutuallyExclusive("only-common", "only-target")

	noCleanup = rootCmd.Flags().BoolP("no-cleanup", "n", false, "Do not clean up the vendor output tree before writing")
	kang = rootCmd.Flags().BoolP("kang", "k", false, "Print regenerated pin hashes instead of enforcing recorded ones")
	section = rootCmd.Flags().StringP("section", "s", "", "Only apply to the named manifest section")
	regenMk = rootCmd.Flags().BoolP("regenerate-makefiles", "m", false, "Regenerate makefiles")
	regen = rootCmd.Flags().BoolP("regenerate", "r", false, "Regenerate generated proprietary-file sections from a tree scan")
	legacy = rootCmd.Flags().BoolP("legacy", "l", false, "Generate legacy makefiles")
	keepDump = rootCmd.Flags().Bool("keep-dump", false, "Keep the local extraction dump directory after the run")
}

func preRun(_ *cobra.Command, _ []string) error {
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	Logger.Info().Str("recipe", *recipeFile).Msg("loading device recipe")

	format := config.ConfigFormatJSON
	if ext := filepath.Ext(*recipeFile); ext == ".yaml" || ext == ".yml" {
		format = config.ConfigFormatYAML
	}

	var err error
	recipe, err = config.LoadRecipeFromFile(*recipeFile, format)
	if err != nil {
		return fmt.Errorf("load recipe config: %w", err)
	}

	if *onlyCommon {
		if recipe.CommonRecipe == "" {
			return fmt.Errorf("--only-common requires common_recipe to be set in %s", *recipeFile)
		}

		Logger.Info().Str("common_recipe", recipe.CommonRecipe).Msg("loading common module recipe")

		commonFormat := config.ConfigFormatJSON
		if ext := filepath.Ext(recipe.CommonRecipe); ext == ".yaml" || ext == ".yml" {
			commonFormat = config.ConfigFormatYAML
		}

		commonPath := recipe.CommonRecipe
		recipe, err = config.LoadRecipeFromFile(commonPath, commonFormat)
		if err != nil {
			return fmt.Errorf("load common recipe config: %w", err)
		}
		// Keep the path set so Run's --only-common check sees it.
		recipe.CommonRecipe = commonPath
	}

	return nil
}

func run(cmd *cobra.Command, args []string) error {
	opts := RunOptions{
		ListFile:       args[0],
		Source:         args[1],
		Section:        *section,
		Kang:           *kang,
		NoCleanup:      *noCleanup,
		KeepDump:       *keepDump,
		Regenerate:     *regen,
		RegenMakefiles: *regenMk,
		Legacy:         *legacy,
		OnlyCommon:     *onlyCommon,
		OnlyTarget:     *onlyTarget,
	}

	hooks := &config.Hooks{LibToPackageFixup: recipepkg.LibToPackageFixup}

	return Run(cmd.Context(), recipe, hooks, opts, Logger)
}

// Execute runs the root command with a signal-scoped context, cancelled
// on the first interrupt so an in-flight extraction can unwind cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		Logger.Fatal().Err(err).Msg("extraction run failed")
	}
}
