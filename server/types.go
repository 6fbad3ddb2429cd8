package server

import (
	"time"

	"github.com/teranos/exopredict/history"
)

const (
	// ShutdownTimeout is how long Stop waits for in-flight requests
	ShutdownTimeout = 15 * time.Second
	// ReadHeaderTimeout bounds slow clients sending headers
	ReadHeaderTimeout = 10 * time.Second
	// MaxBodyBytes caps request bodies (a few thousand table rows)
	MaxBodyBytes = 32 << 20
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateStarting ServerState = iota // Constructed, not yet serving
	ServerStateRunning                     // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// AnalyzeResponse is the result card returned by /api/analyze
type AnalyzeResponse struct {
	Type        string  `json:"type"`       // "confirmed", "candidate" or "false_positive"
	Confidence  float64 `json:"confidence"` // probability of the predicted label, in percent
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

// analysisCopy holds the user-facing text of one prediction type
type analysisCopy struct {
	title       string
	description string
}

// analysisTypes is the closed set of labels /api/analyze knows how to present.
// Keys are labels lower-cased with spaces replaced by underscores.
var analysisTypes = map[string]analysisCopy{
	"confirmed": {
		title:       "Confirmed Exoplanet",
		description: "Congratulations! The data strongly suggests a confirmed exoplanet detection. All parameters fall within expected ranges for a genuine planetary transit.",
	},
	"candidate": {
		title:       "Exoplanet Candidate",
		description: "Promising signals detected. The data shows characteristics consistent with a planetary transit, but additional observations are recommended for confirmation.",
	},
	"false_positive": {
		title:       "False Positive",
		description: "Analysis indicates this signal is likely caused by stellar activity, eclipsing binary stars, or instrumental effects rather than a genuine exoplanet.",
	},
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildTime     string `json:"build_time"`
	Classifier    string `json:"classifier"`
	Probabilities bool   `json:"probabilities"`
	History       bool   `json:"history"`
}

// HistoryResponse is returned by /api/history
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}
