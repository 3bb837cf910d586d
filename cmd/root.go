package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/crm-analytics/cmd/worker"
	"github.com/jmehdipour/crm-analytics/internal/model"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:          "crm-analytics",
		Short:        "RFM/CLV segmentation and churn scoring for CRM firms",
		SilenceUsage: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(churnCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// firmFlag registers the --firm flag on cmd.
func firmFlag(cmd *cobra.Command, id *int64, required bool) {
	usage := "firm ID of FIRMS_STG (0 = every firm)"
	if required {
		usage = "firm ID of FIRMS_STG"
	}
	cmd.Flags().Int64Var(id, "firm", 0, usage)
	if required {
		_ = cmd.MarkFlagRequired("firm")
	}
}

func parseAnalysis(s string) (model.Analysis, error) {
	a, ok := model.ParseAnalysis(s)
	if !ok {
		return "", fmt.Errorf("unknown analysis %q (all | segmentation | churn)", s)
	}
	return a, nil
}
