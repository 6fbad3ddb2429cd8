package am

import "github.com/teranos/exopredict/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Artifacts.Dir == "" {
		return errors.New("artifacts.dir cannot be empty")
	}
	if c.Artifacts.MetadataFile == "" || c.Artifacts.ImputerFile == "" || c.Artifacts.WhiskerFile == "" {
		return errors.New("artifacts.metadata_file, artifacts.imputer_file and artifacts.whisker_file are required")
	}
	if len(c.Artifacts.ModelCandidates) == 0 {
		return errors.New("artifacts.model_candidates must list at least one filename")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Server.RateLimitRPS < 0 {
		return errors.Newf("server.rate_limit_rps must be >= 0, got %f", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		return errors.Newf("server.rate_limit_burst must be > 0 when rate limiting, got %d", c.Server.RateLimitBurst)
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return errors.New("database.path cannot be empty when database.enabled = true")
	}

	return nil
}
