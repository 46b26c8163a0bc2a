package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/classbank/classbank/internal/api"
	"github.com/classbank/classbank/internal/app/cycles"
	"github.com/classbank/classbank/internal/app/ledger"
	"github.com/classbank/classbank/internal/app/rewards"
	"github.com/classbank/classbank/internal/app/shop"
	"github.com/classbank/classbank/internal/daemon"
	"github.com/classbank/classbank/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ClassBank API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	if secret := os.Getenv("CLASSBANK_AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	locks := ledger.NewKeyedMutex()
	goals := ledger.NewGoalTracker(db, locks, log)
	recorder := ledger.NewRecorder(db, goals, locks, log)
	allocator := ledger.NewAllocator(db, goals, locks, log)
	cycleMgr := cycles.NewManager(db, locks, log)
	storeGate := shop.NewGate(db, recorder, log)
	taskGate := rewards.NewGate(db, recorder, log)

	server := api.NewServer(db, recorder, allocator, goals, cycleMgr, storeGate, taskGate,
		[]byte(cfg.Auth.Secret))
	if cfg.Metrics.Enabled {
		server.EnableMetrics()
	}

	var sweeper *daemon.Sweeper
	if cfg.Cycles.AutoReset {
		sweeper, err = daemon.NewSweeper(db, cycleMgr, cfg.Cycles.SweepSchedule, log)
		if err != nil {
			return fmt.Errorf("cycle sweep schedule: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	httpServer := &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.API.Addr()).Msg("classbank serving")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
