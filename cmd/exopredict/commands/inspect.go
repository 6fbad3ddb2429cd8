package commands

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/model"
)

// InspectCmd summarizes the artifact bundle
var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the loaded artifact bundle",
	Long: `Load the artifact bundle and print what it expects: the classifier, the
numeric columns in model order with their imputed values and whisker bounds,
the accepted aliases of each column and the decoded labels.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	p, err := loadPredictor(cfg)
	if err != nil {
		return err
	}
	return printBundle(cmd.OutOrStdout(), p.Bundle())
}

// printBundle writes the bundle summary and column table to w
func printBundle(w io.Writer, b *artifact.Bundle) error {
	labels := "none (raw class ids)"
	if b.Labels != nil {
		labels = strings.Join(b.Labels.Classes(), ", ")
	}
	classes := make([]string, 0, len(b.Classifier.Classes()))
	for _, c := range b.Classifier.Classes() {
		classes = append(classes, c.String())
	}

	fmt.Fprintf(w, "Directory:      %s\n", b.Dir)
	fmt.Fprintf(w, "Classifier:     %s (%s)\n", b.Classifier.Kind(), b.ClassifierFile)
	fmt.Fprintf(w, "Classes:        %s\n", strings.Join(classes, ", "))
	fmt.Fprintf(w, "Probabilities:  %t\n", b.Proba != nil)
	fmt.Fprintf(w, "Labels:         %s\n", labels)
	fmt.Fprintf(w, "Feature order:  %s\n\n", strings.Join(b.FeatureOrder(), ", "))

	data := pterm.TableData{{"column", "imputed", "lower", "upper", "aliases"}}
	stats := imputerStatistics(b)
	for i, col := range b.NumericColumns {
		bounds, ok := b.Whiskers[col]
		if !ok {
			bounds = artifact.Unbounded()
		}
		imputed := "-"
		if i < len(stats) {
			imputed = formatFloat(stats[i])
		}
		aliases := append([]string(nil), b.FeatureMap[col]...)
		sort.Strings(aliases)
		data = append(data, []string{
			col, imputed, formatFloat(bounds.Lower), formatFloat(bounds.Upper), strings.Join(aliases, ", "),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

// imputerStatistics returns per-column fill values when the imputer exposes them
func imputerStatistics(b *artifact.Bundle) []float64 {
	if im, ok := b.Imputer.(*model.SimpleImputer); ok {
		return im.Statistics
	}
	return nil
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
