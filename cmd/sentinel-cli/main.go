package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/app"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/datasource"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ledger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/validation"
)

var (
	configFile string
	verbose    bool
	cfg        *config.Config
	appLog     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sentinel-cli",
	Short: "Operate a CryptoSentinel deployment",
	Long:  `Inspects the prediction ledger, runs pipelines in-process and queries a running server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = app.LoadConfig(cmd.Context(), configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = app.NewLogger(cfg)
		appLog.SetOutput(os.Stderr)
		if !verbose {
			appLog.SetLevel(logrus.WarnLevel)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warn")

	predictionsCmd.Flags().Int("limit", 20, "Number of most recent predictions to show")
	clearLedgerCmd.Flags().Bool("yes", false, "Confirm deletion of the ledger and its mirrors")
	statusCmd.Flags().String("addr", "http://localhost:8000", "Base URL of a running sentinel")

	rootCmd.AddCommand(predictionsCmd, accuracyCmd, clearLedgerCmd, runCmd, statusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// openLedger rehydrates the configured ledger without loading models.
func openLedger(ctx context.Context) (*ledger.PredictionLedger, func()) {
	db := app.OpenDatabase(ctx, cfg, appLog)
	parts := app.NewLedger(cfg, db, appLog)
	parts.Ledger.Rehydrate(ctx, parts.Sources...)
	return parts.Ledger, func() {
		if db != nil {
			db.Close()
		}
	}
}

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "List the most recent predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		l, closeFn := openLedger(cmd.Context())
		defer closeFn()

		printPredictions(cmd.OutOrStdout(), l.Recent(limit))
		return nil
	},
}

var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Summarize prediction accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, closeFn := openLedger(cmd.Context())
		defer closeFn()

		s := validation.Summarize(l.Snapshot())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total predictions: %d\n", s.Total)
		fmt.Fprintf(out, "Validated:         %d\n", s.ValidatedCount)
		fmt.Fprintf(out, "Correct:           %d\n", s.CorrectCount)
		fmt.Fprintf(out, "Accuracy:          %.2f%%\n", s.AccuracyPct)
		fmt.Fprintf(out, "Average error:     %.2f\n", s.AvgError)
		return nil
	},
}

var clearLedgerCmd = &cobra.Command{
	Use:   "clear-ledger",
	Short: "Delete every prediction from the ledger file and the remote mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to clear the ledger without --yes")
		}

		l, closeFn := openLedger(cmd.Context())
		defer closeFn()

		n := l.Len()
		if err := l.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("ledger cleared in memory but not everywhere: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d predictions\n", n)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:       "run feature|training|inference",
	Short:     "Run one pipeline in-process",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"feature", "training", "inference"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Build(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		a.Service.Init(ctx)
		result, err := a.Service.RunPipeline(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s pipeline failed: %w", args[0], err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running sentinel",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		client := datasource.NewRateLimitedHTTPClient(datasource.DefaultHTTPClientConfig(), appLog)
		defer client.Close()

		resp, err := client.Get(ctx, strings.TrimRight(addr, "/")+"/pipeline/status")
		if err != nil {
			return fmt.Errorf("sentinel unreachable at %s: %w", addr, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("sentinel returned %s", resp.Status)
		}

		var status models.PipelineStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("failed to decode status: %w", err)
		}
		printStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

func printPredictions(out io.Writer, records []*models.PredictionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No predictions recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tTARGET\tPRICE\tPREDICTED\tDIR\tCONF\tMODEL\tACTUAL\tRESULT")
	for _, r := range records {
		actual, result := "-", "pending"
		if r.ActualPrice != nil {
			actual = fmt.Sprintf("%.2f", *r.ActualPrice)
		}
		if r.WasCorrect != nil {
			result = "wrong"
			if *r.WasCorrect {
				result = "correct"
			}
		}
		if r.ValidationNote != nil {
			result += " (" + string(*r.ValidationNote) + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\t%.0f%%\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.TargetAt.Local().Format(time.TimeOnly),
			r.PriceAtCreation,
			r.PredictedPrice,
			r.PredictedDirection,
			r.Confidence,
			r.ModelUsed,
			actual,
			result,
		)
	}
	_ = w.Flush()
}

func printStatus(out io.Writer, s models.PipelineStatus) {
	fmt.Fprintf(out, "Models loaded:      %t\n", s.ModelsLoaded)
	if s.ModelsLoaded {
		fmt.Fprintf(out, "Best model:         %s (%s)\n", s.BestModel, s.ModelVersion)
	}
	fmt.Fprintf(out, "Predictions:        %d (%d pending)\n", s.PredictionHistoryCount, s.PendingPredictions)
	fmt.Fprintf(out, "Drift reference:    %t\n", s.DriftReference)
	fmt.Fprintf(out, "Alerts:             %d\n", s.AlertsCount)

	if len(s.Lanes) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LANE\tINTERVAL\tLAST RUN\tNEXT RUN\tLAST ERROR")
	for _, l := range s.Lanes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Name, l.Interval, formatTime(l.LastRun), formatTime(l.NextRun), l.LastError)
	}
	_ = w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
