package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/daemon"
	"github.com/adeonir/veiled/internal/disksize"
	"github.com/adeonir/veiled/internal/registry"
	"github.com/adeonir/veiled/internal/ui"
	"github.com/adeonir/veiled/internal/updater"
)

// updateCooldown limits how often a scheduled run probes for new releases.
const updateCooldown = 24 * time.Hour

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan search paths and apply exclusions",
	Long: `Scan the configured search paths for artifact directories, exclude any
new ones from Time Machine, re-apply exclusions that were lost, and drop
registry entries for paths that no longer exist.

Running repeatedly is safe: an unchanged tree yields no new exclusions.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		eng, cfg, err := newEngine(log)
		if err != nil {
			fatal(err)
		}

		if cfg.AutoUpdate {
			autoUpdate(log)
		}

		sum, err := eng.Run(cmd.Context())
		if err != nil {
			fatal(err)
		}

		if sum.PermissionDenied {
			fmt.Fprintln(os.Stderr, color.YellowString(
				"warning: tmutil was denied access; grant Full Disk Access to the terminal running veiled"))
		}
		if sum.Errors > 0 {
			fmt.Fprintf(os.Stderr, "%s %s skipped with errors (re-run with --verbose for details)\n",
				color.YellowString("warning:"), ui.CountNoun(sum.Errors, "path"))
		}

		printRunSummary(sum.Reapplied, sum.New, sum.TotalManaged, sum.SavedBytes)
	},
}

func printRunSummary(reapplied, added, total int, savedBytes uint64) {
	if reapplied > 0 {
		fmt.Printf("%s %s\n",
			ui.AccentStyle.Render("Re-applied"),
			ui.CountNoun(reapplied, "lost exclusion"))
	}

	switch {
	case added > 0:
		details := ""
		if added != total {
			details = fmt.Sprintf(" (%d total, %s saved)", total, disksize.Format(savedBytes))
		} else if savedBytes > 0 {
			details = fmt.Sprintf(" (%s saved)", disksize.Format(savedBytes))
		}
		fmt.Printf("%s %d new %s%s\n",
			ui.AccentStyle.Render("Excluded"),
			added, ui.Pluralize(added, "path"), details)
	case reapplied == 0:
		fmt.Println(ui.MutedStyle.Render("Nothing new to exclude."))
	}
}

// autoUpdate runs the self-update on a cooldown. The cooldown stamp lives
// in the registry, so it takes its own short lock cycle before the main
// reconciliation starts. Update failures never block the run.
func autoUpdate(log *slog.Logger) {
	stateDir, err := registry.DefaultDir()
	if err != nil {
		log.Debug("auto-update skipped", "error", err)
		return
	}

	due, err := updateDue(stateDir, time.Now())
	if err != nil {
		log.Debug("auto-update skipped", "error", err)
		return
	}
	if !due {
		log.Debug("skipping update check, inside cooldown")
		return
	}

	res, err := updater.New(Version).Check()
	if err != nil {
		log.Debug("auto-update failed", "error", err)
		return
	}
	if res.Updated {
		log.Debug("updated", "from", res.OldVersion, "to", res.NewVersion)
		if err := daemon.Restart(); err != nil {
			log.Debug("daemon restart failed", "error", err)
		}
	}
}

// updateDue checks and, when due, refreshes the cooldown stamp under the
// registry lock.
func updateDue(stateDir string, now time.Time) (bool, error) {
	guard, err := registry.Locked(stateDir)
	if err != nil {
		return false, err
	}
	defer guard.Close()

	reg, err := guard.Load()
	if err != nil && !errors.Is(err, registry.ErrCorrupt) {
		return false, err
	}

	last := reg.LastUpdateCheck
	if last > 0 && last <= now.Unix() && now.Unix()-last < int64(updateCooldown.Seconds()) {
		return false, nil
	}

	reg.LastUpdateCheck = now.Unix()
	if err := guard.Save(reg); err != nil {
		return false, err
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
