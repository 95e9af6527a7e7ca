package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/lab-borrowing/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers such as the overdue and due-soon reminder scan.`,
}

var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Send overdue and due-soon reminders",
	Long:  `Scan active borrowings on a ticker and notify borrowers whose items are overdue or due tomorrow.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReminderWorker()
	},
}

var (
	reminderInterval time.Duration
	reminderOnce     bool
)

func startReminderWorker() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	svc, err := buildServices(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reminderOnce {
		// a single scan waits for its notifications before the process exits
		stats, err := svc.Reminder.WithPublisher(svc.Bus.Sync()).RunOnce(ctx)
		if err != nil {
			lg.Error("reminder scan failed", "error", err)
			return
		}
		lg.Info("reminder scan complete", "scanned", stats.Scanned, "overdue", stats.Overdue, "due_soon", stats.DueSoon)
		return
	}

	interval := getDurationFlag(reminderInterval, cfg.Reminder.Interval)
	lg.Info("reminder worker is running. Press Ctrl+C to stop.", "interval", interval)
	if err := svc.Reminder.Run(ctx, interval); err != nil && err != context.Canceled {
		lg.Error("reminder worker stopped", "error", err)
	}
	lg.Info("reminder worker shutdown complete")
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if configValue > 0 {
		return configValue
	}
	return time.Hour
}

func init() {
	reminderWorkerCmd.Flags().DurationVar(&reminderInterval, "interval", 0, "Scan interval (overrides config)")
	reminderWorkerCmd.Flags().BoolVar(&reminderOnce, "once", false, "Run a single scan and exit")

	workerCmd.AddCommand(reminderWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
