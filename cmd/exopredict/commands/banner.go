package commands

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(cfg *am.Config, b *artifact.Bundle, historyEnabled, watching bool) {
	info := version.Get()

	pterm.DefaultHeader.Println("exopredict")
	pterm.Printf("%s %s (commit %s)\n", pterm.Gray("Version:   "), info.Version, info.Short())
	pterm.Printf("%s %s\n", pterm.Gray("Built:     "), info.BuildTime)
	pterm.Printf("%s %s\n", pterm.Gray("Artifacts: "), b.Dir)
	pterm.Printf("%s %s (%s)\n", pterm.Gray("Classifier:"), pterm.LightCyan(b.Classifier.Kind()), b.ClassifierFile)
	pterm.Printf("%s %d numeric, %d model features\n", pterm.Gray("Columns:   "), len(b.NumericColumns), len(b.FeatureOrder()))
	pterm.Printf("%s %s\n", pterm.Gray("Output:    "), cfg.OutputDir())
	if historyEnabled {
		pterm.Printf("%s %s\n", pterm.Gray("History:   "), cfg.Database.Path)
	}
	if watching {
		pterm.Printf("%s %s\n", pterm.Gray("Watching:  "), pterm.LightGreen("artifact changes reload the bundle"))
	}
	pterm.Println()
	pterm.Info.Println(fmt.Sprintf("Listening on http://localhost:%d (Ctrl+C to stop)", cfg.Server.Port))
}
