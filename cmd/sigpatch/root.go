package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/joshuapare/sigpatch/internal/catalog"
	"github.com/joshuapare/sigpatch/internal/logger"
	"github.com/joshuapare/sigpatch/internal/patch"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	noColor     bool
	catalogPath string
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "sigpatch",
	Short: "Patch executables by byte signature",
	Long: `sigpatch locates code in an executable by unique byte signatures and
rewrites a few bytes next to them. Patches come from a catalog: the built-in
one targets the Europa Universalis IV executable and unlocks features that
Ironman mode restricts, and --catalog loads definitions from a YAML file.

Every edit is checked against the image before anything is written, and a
batch that fails part-way is rolled back, so the image on disk is either
fully patched or untouched.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return setup() },
	PersistentPostRun: func(cmd *cobra.Command, args []string) { _ = logger.Close() },
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&catalogPath, "catalog", "", "Load patch definitions from a YAML file instead of the built-in catalog")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append log records to this file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// setup applies the global flags to logging and color output.
func setup() error {
	fd := os.Stdout.Fd()
	color.NoColor = noColor || (!isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd))

	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return logger.Init(logger.Options{Level: level, JSON: jsonOut, File: logFile})
}

// loadCatalog returns the catalog named by --catalog, or the built-in one.
func loadCatalog() (*catalog.Catalog, error) {
	if catalogPath == "" {
		return catalog.Builtin()
	}
	printVerbose("Loading catalog: %s\n", catalogPath)
	logger.Debug("loading catalog", "path", catalogPath)
	c, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printWarn prints a notice to stderr. It is shown in quiet and JSON modes.
func printWarn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// statusLabel pads the status name to width before coloring it, so
// columns line up whether or not escape codes are emitted.
func statusLabel(s patch.Status, width int) string {
	text := fmt.Sprintf("%-*s", width, s)
	switch s {
	case patch.StatusAvailable:
		return okColor.Sprint(text)
	case patch.StatusAlreadyApplied:
		return dimColor.Sprint(text)
	case patch.StatusAmbiguous:
		return warnColor.Sprint(text)
	default:
		return badColor.Sprint(text)
	}
}

// offsetList renders offsets the way they are printed everywhere else.
func offsetList(offsets []int) string {
	parts := make([]string, len(offsets))
	for i, off := range offsets {
		parts[i] = fmt.Sprintf("0x%08X", off)
	}
	return strings.Join(parts, ", ")
}
