package am

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/teranos/exopredict/errors"
)

// Marshal renders cfg as TOML
func Marshal(cfg *Config) ([]byte, error) {
	data, err := gotoml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config to TOML")
	}
	return data, nil
}

// WriteDefault writes the default configuration to path.
// An existing file is left untouched unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.WithHint(
			errors.Newf("config file %s already exists", path),
			"pass --force to overwrite it",
		)
	}

	data, err := Marshal(Default())
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# exopredict configuration\n")
	buf.Write(data)
	if err := os.WriteFile(path, buf.Bytes(), DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

// CheckFile strictly decodes a config file and returns the keys it sets that
// no Config field consumes. Viper silently ignores such keys, so a typo like
// `artifact.dir` would otherwise go unnoticed.
func CheckFile(path string) ([]string, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return unknown, nil
}
