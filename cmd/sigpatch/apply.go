package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/sigpatch/internal/image"
	"github.com/joshuapare/sigpatch/internal/logger"
	"github.com/joshuapare/sigpatch/internal/patch"
	"github.com/joshuapare/sigpatch/internal/writer"
)

var (
	applyPatches      []string
	applyOutput       string
	applyDryRun       bool
	applyNoBackup     bool
	applyBackupSuffix string
	applyStrict       bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <image>",
	Short: "Apply patches to an executable",
	Long: `Applies one or more catalog patches to an executable image.

The apply command:
1. Resolves each patch against the image in the order given
2. Skips patches that are already applied (unless --strict)
3. Rolls back the whole batch if any patch cannot be applied
4. Creates a backup when patching in place (unless --no-backup)
5. Writes the result atomically to --output, or over the input

Nothing is written when no patch changed the image and --output is not set.`,
	Example: `  # Patch the game in place, keeping eu4.exe.backup
  sigpatch apply eu4.exe -p modded-ironman,enable-ironman-loading

  # Write the patched copy elsewhere
  sigpatch apply eu4.exe -p midgame-ironman -o eu4-patched.exe

  # Check that every patch would apply
  sigpatch apply --dry-run eu4.exe -p modded-ironman`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(args)
	},
}

func init() {
	applyCmd.Flags().StringSliceVarP(&applyPatches, "patch", "p", nil,
		"Patches to apply, comma separated")
	applyCmd.Flags().StringVarP(&applyOutput, "output", "o", "",
		"Write the patched image here instead of over the input")
	applyCmd.Flags().BoolVarP(&applyDryRun, "dry-run", "n", false,
		"Resolve and apply in memory without writing anything")
	applyCmd.Flags().StringVarP(&applyBackupSuffix, "backup-suffix", "b", ".backup",
		"Suffix for the backup of an image patched in place")
	applyCmd.Flags().BoolVar(&applyNoBackup, "no-backup", false,
		"Skip creating a backup when patching in place")
	applyCmd.Flags().BoolVar(&applyStrict, "strict", false,
		"Fail if a patch is already applied instead of skipping it")
	_ = applyCmd.MarkFlagRequired("patch")

	rootCmd.AddCommand(applyCmd)
}

type applyPatchJSON struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Offsets []int  `json:"offsets,omitempty"`
	Error   string `json:"error,omitempty"`
}

type applyJSON struct {
	Image   string           `json:"image"`
	Output  string           `json:"output,omitempty"`
	Backup  string           `json:"backup,omitempty"`
	DryRun  bool             `json:"dry_run"`
	Written bool             `json:"written"`
	Applied int              `json:"applied"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Patches []applyPatchJSON `json:"patches"`
	Error   string           `json:"error,omitempty"`
}

func runApply(args []string) error {
	imagePath := args[0]

	if len(applyPatches) == 0 {
		return errors.New("no patches given (use -p)")
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	defs, err := cat.LookupAll(applyPatches)
	if err != nil {
		return err
	}

	printVerbose("Loading image: %s\n", imagePath)
	img, err := image.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	original := append([]byte(nil), img.Data...)

	// Plain-text progress; JSON mode prints one document at the end.
	report := func(format string, a ...interface{}) {
		if !jsonOut {
			printInfo(format, a...)
		}
	}

	engine := patch.NewEngine(patch.EngineConfig{
		DryRun:        applyDryRun,
		FailOnApplied: applyStrict,
		Logger:        logger.L,
	})
	result, applyErr := engine.Apply(img.Data, defs)

	out := applyJSON{
		Image:   imagePath,
		DryRun:  applyDryRun,
		Applied: result.Applied,
		Skipped: result.Skipped,
		Failed:  result.Failed,
	}
	for _, d := range result.Details {
		p := applyPatchJSON{Name: d.Name, Status: d.Status.String(), Offsets: d.Offsets}
		if d.Error != nil {
			p.Error = d.Error.Error()
		}
		out.Patches = append(out.Patches, p)
	}

	for _, d := range result.Details {
		if d.Status == patch.PatchStatusSkipped {
			printWarn("Skipping %s (already applied)\n", d.Name)
		}
	}
	if !jsonOut {
		printApplyDetails(result)
	}
	if applyErr != nil {
		if jsonOut {
			out.Error = applyErr.Error()
			_ = printJSON(out)
		}
		return fmt.Errorf("apply failed: %w", applyErr)
	}

	if err := engine.ValidateNoSideEffects(original, img.Data); err != nil {
		return fmt.Errorf("refusing to write: %w", err)
	}
	if verbose && result.TransactionLog.TotalCount() > 0 {
		report("\n%s\n", engine.ExportLog())
	}

	switch {
	case applyDryRun:
		report("Dry run: %d patch(es) would be applied, nothing written.\n", result.Applied)
	case !result.Changed() && applyOutput == "":
		report("No changes made; %s left untouched.\n", imagePath)
	default:
		backup, target, err := writeResult(img)
		if err != nil {
			return err
		}
		out.Backup, out.Output, out.Written = backup, target, true
		if backup != "" {
			report("Backup:  %s\n", backup)
		}
		report("Written: %s\n", target)
	}

	if jsonOut {
		return printJSON(out)
	}
	return nil
}

// writeResult persists the patched image and returns the backup path (if
// one was made) and the path written.
func writeResult(img *image.File) (backup, target string, err error) {
	target = applyOutput
	if target == "" {
		target = img.Path
		if !applyNoBackup {
			backup, err = writer.CreateBackup(img.Path, applyBackupSuffix)
			if err != nil {
				return "", "", fmt.Errorf("failed to create backup: %w", err)
			}
			if backup != img.Path+applyBackupSuffix {
				logger.Warn("backup name taken, using a timestamped one", "path", backup)
			}
			logger.Info("created backup", "path", backup)
		}
	}

	var sink writer.Sink = &writer.FileWriter{Path: target, Perm: img.Mode}
	if err := sink.WriteImage(img.Data); err != nil {
		return backup, "", fmt.Errorf("failed to write image: %w", err)
	}
	logger.Info("wrote image", "path", target, "bytes", len(img.Data))
	return backup, target, nil
}

func printApplyDetails(result *patch.EngineResult) {
	for _, d := range result.Details {
		switch d.Status {
		case patch.PatchStatusApplied:
			verb := "Applied"
			if result.DryRun {
				verb = "Would apply"
			}
			printInfo("%s %s at %s\n", okColor.Sprint(verb), d.Name, offsetList(d.Offsets))
		case patch.PatchStatusRolledBack:
			printInfo("%s %s\n", warnColor.Sprint("Rolled back"), d.Name)
		case patch.PatchStatusFailed:
			printInfo("%s %s: %v\n", badColor.Sprint("Failed"), d.Name, d.Error)
		}
	}
}
