package logger

// Output controls what categories of CLI output are shown at each verbosity
// level. Log levels filter by severity; categories filter by kind.
//
//	0 (default) - results, errors with hints, final status
//	1 (-v)      - + startup banner, artifact summary, progress
//	2 (-vv)     - + config values, timing, per-row diagnostics

// OutputCategory is one kind of CLI output
type OutputCategory int

const (
	OutputResults    OutputCategory = iota // Predictions, tables, command output
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Final success/failure status

	OutputStartup  // Startup banner
	OutputArtifact // Loaded bundle summary
	OutputProgress // Batch progress

	OutputConfig      // Config values applied
	OutputTiming      // Operation timing
	OutputDiagnostics // Recovered conditions per call
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputStartup:  VerbosityInfo,
	OutputArtifact: VerbosityInfo,
	OutputProgress: VerbosityInfo,

	OutputConfig:      VerbosityDebug,
	OutputTiming:      VerbosityDebug,
	OutputDiagnostics: VerbosityDebug,
}

// ShouldOutput reports whether category is shown at verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityDebug
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:     "results",
	OutputErrors:      "errors",
	OutputUserStatus:  "status",
	OutputStartup:     "startup",
	OutputArtifact:    "artifact",
	OutputProgress:    "progress",
	OutputConfig:      "config",
	OutputTiming:      "timing",
	OutputDiagnostics: "diagnostics",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
