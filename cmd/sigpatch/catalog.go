package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/sigpatch/internal/sig"
)

var catalogYAML bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the patch catalog",
	Long: `The catalog command prints every patch definition with its signatures.
With --yaml it prints a document that --catalog accepts, which is a
convenient starting point for a custom catalog.

Example:
  sigpatch catalog
  sigpatch catalog --yaml > my-patches.yaml
  sigpatch --catalog my-patches.yaml list eu4.exe`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(args)
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogYAML, "yaml", false, "Output the catalog as YAML")
	rootCmd.AddCommand(catalogCmd)
}

type catalogEditJSON struct {
	Anchor string `json:"anchor"`
	Before string `json:"before"`
	After  string `json:"after"`
	Window int    `json:"window"`
}

type catalogEntryJSON struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Edits       []catalogEditJSON `json:"edits"`
}

func runCatalog(_ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	if catalogYAML {
		return cat.Encode(os.Stdout)
	}

	entries := make([]catalogEntryJSON, 0, cat.Len())
	for _, def := range cat.Definitions() {
		entry := catalogEntryJSON{Name: def.Name, Description: def.Description}
		for _, e := range def.Edits {
			entry.Edits = append(entry.Edits, catalogEditJSON{
				Anchor: sig.Format(e.Anchor, true),
				Before: sig.Format(e.Before, true),
				After:  sig.Format(e.After, false),
				Window: e.SearchWindow(),
			})
		}
		entries = append(entries, entry)
	}

	if jsonOut {
		return printJSON(entries)
	}

	for i, entry := range entries {
		if i > 0 {
			printInfo("\n")
		}
		printInfo("%s\n", okColor.Sprint(entry.Name))
		if entry.Description != "" {
			printInfo("  %s\n", entry.Description)
		}
		for j, e := range entry.Edits {
			printInfo("  edit %d (window %d)\n", j, e.Window)
			printInfo("    anchor  %s\n", e.Anchor)
			printInfo("    before  %s\n", e.Before)
			printInfo("    after   %s\n", e.After)
		}
	}
	return nil
}
