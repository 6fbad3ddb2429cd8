package am

// Config represents the exopredict configuration
type Config struct {
	Artifacts ArtifactsConfig `mapstructure:"artifacts" toml:"artifacts" json:"artifacts" yaml:"artifacts"`
	Output    OutputConfig    `mapstructure:"output" toml:"output" json:"output" yaml:"output"`
	Server    ServerConfig    `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Log       LogConfig       `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// ArtifactsConfig locates the fitted artifacts loaded once at startup
type ArtifactsConfig struct {
	Dir              string   `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"`
	MetadataFile     string   `mapstructure:"metadata_file" toml:"metadata_file" json:"metadata_file" yaml:"metadata_file"`
	ImputerFile      string   `mapstructure:"imputer_file" toml:"imputer_file" json:"imputer_file" yaml:"imputer_file"`
	WhiskerFile      string   `mapstructure:"whisker_file" toml:"whisker_file" json:"whisker_file" yaml:"whisker_file"`
	LabelEncoderFile string   `mapstructure:"label_encoder_file" toml:"label_encoder_file" json:"label_encoder_file" yaml:"label_encoder_file"`
	ModelCandidates  []string `mapstructure:"model_candidates" toml:"model_candidates" json:"model_candidates" yaml:"model_candidates"` // first existing file wins
}

// OutputConfig configures where batch prediction tables are written
type OutputConfig struct {
	Dir string `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"` // empty = artifacts dir
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Port           int      `mapstructure:"port" toml:"port" json:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"` // "*" allows any origin
	StaticDir      string   `mapstructure:"static_dir" toml:"static_dir" json:"static_dir" yaml:"static_dir"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" toml:"rate_limit_rps" json:"rate_limit_rps" yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst int      `mapstructure:"rate_limit_burst" toml:"rate_limit_burst" json:"rate_limit_burst" yaml:"rate_limit_burst"`
	RequiredFields []string `mapstructure:"required_fields" toml:"required_fields" json:"required_fields" yaml:"required_fields"` // checked by /api/analyze_csv
}

// DatabaseConfig configures the SQLite prediction history
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// EnvPrefix is the prefix of environment variables overriding config keys
// (EXOPREDICT_SERVER_PORT overrides server.port).
const EnvPrefix = "EXOPREDICT"

// OutputDir returns the batch output directory, falling back to the artifacts dir
func (c *Config) OutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return c.Artifacts.Dir
}
