package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/history"
)

// HistoryCmd lists recent predictions
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent predictions",
	Long: `List the most recent predictions recorded by the server and the predict
command, newest first.

Examples:
  exopredict history              # Last 20 predictions
  exopredict history --limit 100  # Last 100
  exopredict history --json       # Machine-readable`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyLimit int
	historyJSON  bool
)

func init() {
	HistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "Number of entries to show")
	HistoryCmd.Flags().BoolVarP(&historyJSON, "json", "j", false, "Output entries as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if !cfg.Database.Enabled {
		return errors.WithHint(errors.New("prediction history is disabled"), "set database.enabled = true in am.toml")
	}

	store, closeHistory, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), entries, historyJSON)
}

// printHistory writes entries as a table, or as JSON when asJSON is set
func printHistory(w io.Writer, entries []history.Entry, asJSON bool) error {
	if asJSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode history")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No predictions recorded yet")
		return err
	}

	data := pterm.TableData{{"time", "source", "classifier", "rows", "prediction", "confidence", "location"}}
	for _, e := range entries {
		confidence := ""
		if e.Confidence != nil {
			confidence = strconv.FormatFloat(*e.Confidence*100, 'f', 1, 64) + "%"
		}
		data = append(data, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Source,
			e.Classifier,
			strconv.Itoa(e.Rows),
			e.Prediction,
			confidence,
			e.Location,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
