package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keydex/keydex/configs"
	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage keydex configuration files.

User configuration holds machine-wide settings that apply to every
project; project configuration (.keydex.yaml) holds per-index settings
such as the extraction patterns and stop words.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/keydex/config.yaml)
  3. Project config (.keydex.yaml)
  4. Environment variables (KEYDEX_*)`,
		Example: `  # Create user config from template
  keydex config init

  # Create a project config in the current project
  keydex config init --project

  # Show effective configuration (merged from all sources)
  keydex config show

  # Print user config file path
  keydex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Create a configuration file from the annotated template.

By default this creates the user config at ~/.config/keydex/config.yaml
(or $XDG_CONFIG_HOME/keydex/config.yaml). With --project it creates
.keydex.yaml in the project root instead, which also marks the
directory as a project root for keydex.`,
		Example: `  # Create user config
  keydex config init

  # Create project config in the current project
  keydex config init --project

  # Replace an existing user config (a backup is kept)
  keydex config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if project {
				return runConfigInitProject(cmd, force)
			}
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (user config is backed up first)")
	cmd.Flags().BoolVar(&project, "project", false, "Create .keydex.yaml in the project root instead")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	configPath := config.GetUserConfigPath()
	configDir := config.GetUserConfigDir()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Newline()
			out.Status("💡", "Use --force to replace it with a fresh template (a backup is kept)")
			return nil
		}

		backupPath, err := config.BackupUserConfig()
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backed up existing config to %s", backupPath)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to customize settings")
	out.Status("", "  2. Run 'keydex config show' to verify")

	return nil
}

func runConfigInitProject(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root := projectRoot()
	configPath := filepath.Join(root, ".keydex.yaml")

	if fileExists(configPath) && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", configPath)
		out.Newline()
		out.Status("💡", "Use --force to overwrite it with a fresh template")
		return nil
	}

	if err := os.WriteFile(configPath, []byte(configs.ProjectConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Uncomment the extraction settings you want to change")
	out.Status("", "  2. Run 'keydex config show' to verify")

	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

By default, shows the merged configuration from:
  1. Built-in defaults
  2. User config (~/.config/keydex/config.yaml)
  3. Project config (.keydex.yaml)
  4. Environment variables (KEYDEX_*)`,
		Example: `  # Show merged configuration
  keydex config show

  # Show as JSON
  keydex config show --json

  # Show only the project config file
  keydex config show --source project`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg        *config.Config
		sourceDesc string
	)

	switch source {
	case "merged":
		root := projectRoot()
		loaded, err := config.Load(root)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		configPath := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", configPath)
			out.Status("💡", "Run 'keydex config init' to create one")
			return nil
		}
		loaded, err := readConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = fmt.Sprintf("user (%s)", configPath)

	case "project":
		root := projectRoot()
		configPath := ""
		for _, name := range []string{".keydex.yaml", ".keydex.yml"} {
			if p := filepath.Join(root, name); fileExists(p) {
				configPath = p
				break
			}
		}
		if configPath == "" {
			out.Warning("No project configuration file found")
			out.Statusf("📁", "Expected at: %s", filepath.Join(root, ".keydex.yaml"))
			out.Status("💡", "Run 'keydex config init --project' to create one")
			return nil
		}
		loaded, err := readConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = fmt.Sprintf("project (%s)", configPath)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (built-in)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Block(string(data))

	return nil
}

// readConfigFile parses a single config file over the defaults, without
// merging the other sources.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Long:  `Print the path to the user configuration file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the user config from a backup",
		Long: `Restore the user configuration from a backup created by
'config init --force'. Without an argument the most recent backup is
restored; the current config is backed up first.`,
		Example: `  # List available backups
  keydex config restore --list

  # Restore the most recent backup
  keydex config restore

  # Restore a specific backup
  keydex config restore ~/.config/keydex/config.yaml.bak.20260825-120301.234809000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigRestore(cmd, args, list)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List available backups instead of restoring")

	return cmd
}

func runConfigRestore(cmd *cobra.Command, args []string, list bool) error {
	out := output.New(cmd.OutOrStdout())

	backups, err := config.ListUserConfigBackups()
	if err != nil {
		return err
	}

	if list {
		if len(backups) == 0 {
			out.Status("", "No backups found")
			return nil
		}
		out.Statusf("📋", "Backups (newest first):")
		for _, b := range backups {
			out.Statusf("", "  %s", b)
		}
		return nil
	}

	backupPath := ""
	if len(args) == 1 {
		backupPath = args[0]
	} else {
		if len(backups) == 0 {
			out.Warning("No backups found")
			out.Status("💡", "Backups are created by 'keydex config init --force'")
			return nil
		}
		backupPath = backups[0]
	}

	if err := config.RestoreUserConfig(backupPath); err != nil {
		return err
	}

	out.Success("Restored user configuration")
	out.Statusf("💾", "From: %s", backupPath)
	out.Statusf("📁", "To:   %s", config.GetUserConfigPath())

	return nil
}
