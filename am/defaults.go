package am

import (
	"github.com/spf13/viper"
)

// Server port constants
const (
	DefaultServerPort = 5000
)

// Default artifact filenames. The model candidates are tried in order.
var (
	DefaultModelCandidates = []string{"model.json", "model.yaml", "model.yml"}

	// DefaultRequiredFields are the canonical columns /api/analyze_csv insists on
	DefaultRequiredFields = []string{"orbper", "trandep", "trandur", "rade", "insol", "eqt", "teff", "logg", "rad"}
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Artifact defaults
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.metadata_file", "metadata.json")
	v.SetDefault("artifacts.imputer_file", "imputer.json")
	v.SetDefault("artifacts.whisker_file", "whisker_map.json")
	v.SetDefault("artifacts.label_encoder_file", "label_encoder.json")
	v.SetDefault("artifacts.model_candidates", DefaultModelCandidates)

	// Batch output defaults to the artifacts directory
	v.SetDefault("output.dir", "")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.required_fields", DefaultRequiredFields)

	// Prediction history
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "exopredict.db")

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds deployment-specific values to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("artifacts.dir", "EXOPREDICT_ARTIFACTS_DIR")
	_ = v.BindEnv("output.dir", "EXOPREDICT_OUTPUT_DIR")
	_ = v.BindEnv("database.path", "EXOPREDICT_DATABASE_PATH")
	_ = v.BindEnv("server.port", "EXOPREDICT_PORT", "PORT")
}

// Default returns the configuration built from defaults alone
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults always unmarshal; reaching this is a programming error
		panic(err)
	}
	return cfg
}
