package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nhle/todo-agent/internal/credential"
	"github.com/nhle/todo-agent/internal/model"
)

// secretNames maps the names accepted on the command line to keyring keys.
var secretNames = map[string]string{
	"ai":      credential.KeyAIAPIKey,
	"storage": credential.KeyStorageSecret,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration and secrets",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := model.SaveConfig(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration key, e.g. storage.bucket",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <ai|storage> [value]",
	Short: "Store a secret in the system keyring",
	Long: `Store a secret in the system keyring. Without a value the secret
is read from the first line of stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSetSecret,
}

var configDeleteSecretCmd = &cobra.Command{
	Use:   "delete-secret <ai|storage>",
	Short: "Remove a secret from the system keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secretKey(args[0])
		if err != nil {
			return err
		}
		if err := credential.Delete(key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s secret\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
	configCmd.AddCommand(configDeleteSecretCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "# %s\n", configPath)
	fmt.Fprint(w, string(data))

	fmt.Fprintln(w, "# secrets")
	for _, name := range []string{"ai", "storage"} {
		fmt.Fprintf(w, "#   %s: %s\n", name, secretState(secretNames[name]))
	}
	return nil
}

func secretState(key string) string {
	if env, ok := credential.EnvVar(key); ok && os.Getenv(env) != "" {
		return "set via " + env
	}
	v, err := credential.Lookup(key)
	switch {
	case err != nil:
		return "keyring unavailable (" + err.Error() + ")"
	case v == "":
		return "not set"
	default:
		return "set in keyring"
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.ToLower(args[0]), args[1]
	if strings.Contains(key, "secret") || strings.Contains(key, "api_key") {
		return &model.ValidationError{Field: key, Message: "secrets belong in the keyring, use config set-secret"}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("writing config to %s: %w", configPath, err)
	}

	// Re-read so type errors surface now rather than on the next start.
	if _, err := model.LoadConfig(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
	return nil
}

func runConfigSetSecret(cmd *cobra.Command, args []string) error {
	key, err := secretKey(args[0])
	if err != nil {
		return err
	}

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading secret from stdin: %w", err)
		}
		value = strings.TrimSpace(line)
	}
	if value == "" {
		return &model.ValidationError{Field: args[0], Message: "secret must not be empty"}
	}

	if err := credential.Set(key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s secret\n", args[0])
	return nil
}

func secretKey(name string) (string, error) {
	key, ok := secretNames[strings.ToLower(name)]
	if !ok {
		return "", &model.ValidationError{Field: "name", Message: fmt.Sprintf("unknown secret %q, want ai or storage", name)}
	}
	return key, nil
}
