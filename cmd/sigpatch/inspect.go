package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/sigpatch/internal/hexdump"
	"github.com/joshuapare/sigpatch/internal/image"
	"github.com/joshuapare/sigpatch/internal/patch"
	"github.com/joshuapare/sigpatch/internal/peinfo"
	"github.com/joshuapare/sigpatch/internal/sig"
)

var (
	inspectPatch   string
	inspectContext int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Show where a patch would be applied",
	Long: `The inspect command locates each edit of one patch without modifying
the image. For every edit it prints the anchor and target offsets, the PE
section and virtual address of the target, a hex dump around it and the
byte change the patch would make.

Example:
  sigpatch inspect eu4.exe -p modded-ironman
  sigpatch inspect eu4.exe -p midgame-ironman --context 64`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args)
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectPatch, "patch", "p", "", "Patch to inspect")
	inspectCmd.Flags().IntVarP(&inspectContext, "context", "c", 32, "Bytes of context around each edit")
	_ = inspectCmd.MarkFlagRequired("patch")
	rootCmd.AddCommand(inspectCmd)
}

type editJSON struct {
	Index    int              `json:"index"`
	Status   patch.Status     `json:"status"`
	Anchor   int              `json:"anchor"`
	Offset   int              `json:"offset"`
	Location *peinfo.Location `json:"location,omitempty"`
	Pattern  string           `json:"pattern"`
	Current  string           `json:"current,omitempty"`
	After    string           `json:"after"`
	Error    string           `json:"error,omitempty"`
}

type inspectJSON struct {
	Image       string       `json:"image"`
	Patch       string       `json:"patch"`
	Description string       `json:"description,omitempty"`
	Status      patch.Status `json:"status"`
	Machine     string       `json:"machine,omitempty"`
	Edits       []editJSON   `json:"edits"`
}

func runInspect(args []string) error {
	imagePath := args[0]
	if inspectContext < 0 {
		return fmt.Errorf("--context must not be negative, got %d", inspectContext)
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	def, err := cat.Lookup(inspectPatch)
	if err != nil {
		return err
	}

	return image.View(imagePath, func(data []byte) error {
		rep := patch.Probe(def, data)
		out := inspectJSON{
			Image:       imagePath,
			Patch:       def.Name,
			Description: def.Description,
			Status:      rep.Status,
		}

		pe, peErr := peinfo.Parse(data)
		if peErr != nil {
			printVerbose("No PE headers: %v\n", peErr)
		} else {
			out.Machine = pe.MachineName()
		}

		for i, e := range def.Edits {
			out.Edits = append(out.Edits, inspectEdit(data, pe, i, e))
		}

		if jsonOut {
			return printJSON(out)
		}

		printInfo("%s  %s\n", def.Name, statusLabel(rep.Status, 0))
		if def.Description != "" {
			printInfo("  %s\n", def.Description)
		}
		if out.Machine != "" {
			printInfo("  PE image, %s, %d sections\n", out.Machine, len(pe.Sections))
		}
		for i, ej := range out.Edits {
			printInfo("\n")
			printEdit(data, def.Edits[i], ej)
		}
		return nil
	})
}

// inspectEdit locates one edit on its own, so that every edit is reported
// even when an earlier one fails.
func inspectEdit(data []byte, pe *peinfo.Image, index int, e patch.SubEdit) editJSON {
	ej := editJSON{
		Index:   index,
		Anchor:  -1,
		Offset:  -1,
		Pattern: sig.Format(e.Before, true),
		After:   sig.Format(e.After, false),
	}

	var err error
	ej.Anchor, err = patch.FindUnique(data, e.Anchor)
	if err == nil {
		ej.Offset, err = patch.Locate(data, ej.Anchor, e.SearchWindow(), e.Before, e.After)
	}
	ej.Status = patch.StatusOf(err)
	if err != nil {
		ej.Error = err.Error()
	}
	if err != nil && !errors.Is(err, patch.ErrAlreadyApplied) {
		ej.Offset = -1
	}
	if ej.Offset < 0 {
		return ej
	}

	ej.Current = sig.Format(data[ej.Offset:ej.Offset+len(e.Before)], false)
	if pe != nil {
		if loc, ok := pe.Locate(ej.Offset); ok {
			ej.Location = &loc
		}
	}
	return ej
}

func printEdit(data []byte, e patch.SubEdit, ej editJSON) {
	printInfo("Edit %d  %s\n", ej.Index, statusLabel(ej.Status, 0))
	printInfo("  anchor   %s\n", sig.Format(e.Anchor, true))
	if ej.Anchor >= 0 {
		printInfo("           at 0x%08X\n", ej.Anchor)
	}
	printInfo("  before   %s\n", ej.Pattern)
	printInfo("  after    %s\n", ej.After)
	if ej.Error != "" && ej.Offset < 0 {
		printInfo("  error    %s\n", ej.Error)
		return
	}

	printInfo("  target   0x%08X", ej.Offset)
	if ej.Location != nil {
		printInfo("  %s", ej.Location)
	}
	printInfo("\n")

	current := data[ej.Offset : ej.Offset+len(e.Before)]
	if ej.Status == patch.StatusAvailable {
		printInfo("  change   %s\n", hexDiff(current, e.After))
	}

	r := hexdump.Around(ej.Offset, len(e.Before), inspectContext, len(data), hexdump.DefaultWidth)
	printInfo("%s", hexdump.String(data[r.Start:r.End], r.Start, hexdump.Options{
		Marks: []hexdump.Range{{Start: ej.Offset, End: ej.Offset + len(e.Before)}},
		Mark:  func(s string) string { return warnColor.Sprint(s) },
	}))
}
