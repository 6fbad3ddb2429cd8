package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage exopredict configuration",
	Long: `am: manage exopredict configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/exopredict/am.toml)
3. User config (~/.exopredict/am.toml)
4. Project config (./am.toml, searching up directories)
5. Environment variables (EXOPREDICT_* prefix)
6. Command line flags

Examples:
  exopredict am show                    # Show current configuration
  exopredict am show --format json      # Show configuration in JSON format
  exopredict am get artifacts.dir       # Get specific config value
  exopredict am init                    # Write ./am.toml with the defaults
  exopredict am check am.toml           # Find keys exopredict ignores
  exopredict am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., artifacts.dir, server.port)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var amCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Report keys in a config file that exopredict ignores",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmCheck,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which config files are checked",
	RunE:  runAmWhere,
}

var (
	configFormat string
	initForce    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amCheckCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# exopredict configuration\n%s", data)

	case "toml":
		data, err := am.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# exopredict configuration\n%s", data)

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := os.Stat(cfg.Artifacts.Dir); err != nil {
		pterm.Warning.Printfln("artifacts.dir %s is not accessible: %v", cfg.Artifacts.Dir, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := "am.toml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := am.WriteDefault(path, initForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", path)
	return nil
}

func runAmCheck(cmd *cobra.Command, args []string) error {
	unknown, err := am.CheckFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(unknown) == 0 {
		fmt.Fprintf(out, "✓ %s has no unknown keys\n", args[0])
		return nil
	}

	for _, key := range unknown {
		fmt.Fprintf(out, "  unknown key: %s\n", key)
	}
	return errors.WithHint(
		errors.Newf("%s sets %d keys exopredict ignores", args[0], len(unknown)),
		"run 'exopredict am show' for the recognized keys",
	)
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration files (later overrides earlier):")
	for _, path := range am.ConfigPaths() {
		status := pterm.Gray("missing")
		if _, err := os.Stat(path); err == nil {
			status = pterm.Green("loaded")
		}
		fmt.Fprintf(out, "  %-50s %s\n", path, status)
	}
	fmt.Fprintf(out, "Environment overrides use the %s_ prefix (e.g. %s_SERVER_PORT).\n", am.EnvPrefix, am.EnvPrefix)
	return nil
}
