package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/cmd/exopredict/commands"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
)

var rootCmd = &cobra.Command{
	Use:   "exopredict",
	Short: "exopredict - exoplanet candidate classification",
	Long: `exopredict - classify transit signals as confirmed planets, candidates or
false positives using an exported model bundle.

Available commands:
  serve    - Start the HTTP prediction API
  predict  - Predict records from a JSON or CSV file
  inspect  - Summarize the loaded artifact bundle
  history  - List recent predictions
  am       - Manage exopredict configuration ("I am")
  version  - Show build information

Examples:
  exopredict serve -v                          # Serve on the configured port
  exopredict predict koi.csv --proba           # Batch table next to the artifacts
  exopredict predict row.json --artifacts ./m  # Use another bundle
  exopredict inspect                           # What the bundle expects`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dir, _ := cmd.Flags().GetString("artifacts"); dir != "" {
			am.GetViper().Set("artifacts.dir", dir)
		}

		cfg, err := am.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}

		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs || cfg.Log.JSON, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (-v, -vv)")
	rootCmd.PersistentFlags().String("artifacts", "", "Artifact bundle directory (overrides artifacts.dir)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs (overrides log.json)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.InspectCmd)
	rootCmd.AddCommand(commands.PredictCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
