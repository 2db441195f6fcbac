package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/sigpatch/internal/image"
	"github.com/joshuapare/sigpatch/internal/logger"
	"github.com/joshuapare/sigpatch/internal/patch"
)

var listCmd = &cobra.Command{
	Use:   "list <image>",
	Short: "Show which patches apply to an executable",
	Long: `The list command probes every catalog patch against the image without
modifying it and reports one status per patch:

  AVAILABLE    all edits found, ready to apply
  APPLIED      already patched
  UNAVAILABLE  signature not found (different game version)
  AMBIGUOUS    signature found more than once
  INVALID      malformed definition

Example:
  sigpatch list eu4.exe
  sigpatch list eu4.exe --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type listJSON struct {
	Image   string         `json:"image"`
	Size    int            `json:"size"`
	Patches []patch.Report `json:"patches"`
}

func runList(args []string) error {
	imagePath := args[0]

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	printVerbose("Mapping image: %s\n", imagePath)
	return image.View(imagePath, func(data []byte) error {
		engine := patch.NewEngine(patch.EngineConfig{Logger: logger.L})
		reports := engine.Survey(data, cat.Definitions())

		if jsonOut {
			return printJSON(listJSON{Image: imagePath, Size: len(data), Patches: reports})
		}

		width := 0
		for _, rep := range reports {
			width = max(width, len(rep.Name))
		}
		for _, rep := range reports {
			printInfo("%-*s  %s", width, rep.Name, statusLabel(rep.Status, len("UNAVAILABLE")))
			if verbose {
				switch {
				case len(rep.Offsets) > 0:
					printInfo("  %s", offsetList(rep.Offsets))
				case rep.Error != "":
					printInfo("  %s", dimColor.Sprint(rep.Error))
				}
			}
			printInfo("\n")
			if verbose && rep.Description != "" {
				printInfo("%-*s  %s\n", width, "", rep.Description)
			}
		}
		printVerbose("%s\n", fmt.Sprintf("%d patch(es) probed against %d bytes", len(reports), len(data)))
		return nil
	})
}
