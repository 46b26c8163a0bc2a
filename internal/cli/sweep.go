package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classbank/classbank/internal/app/cycles"
	"github.com/classbank/classbank/internal/app/ledger"
	"github.com/classbank/classbank/internal/daemon"
	"github.com/classbank/classbank/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Rotate all overdue class cycles once and exit",
	Long: `Run one pass of the weekly cycle sweep against the configured
database. Useful for cron-driven deployments that do not keep the
server's built-in scheduler enabled.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	manager := cycles.NewManager(db, ledger.NewKeyedMutex(), log)
	sweeper, err := daemon.NewSweeper(db, manager, cfg.Cycles.SweepSchedule, log)
	if err != nil {
		return err
	}
	return sweeper.Sweep(context.Background())
}
