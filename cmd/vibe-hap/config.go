package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-hap configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-hap.yaml.",
		Example: `  vibe-hap config                                  # show all config
  vibe-hap config set build.sex F                  # default donor sex
  vibe-hap config set build.zygosity-threshold 0.01
  vibe-hap config get build.diploid                # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// fileSettings returns only what the config file holds, without flag defaults.
func fileSettings() (map[string]any, error) {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(cfgFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	settings := make(map[string]any)
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return settings, nil
}

func runConfigShow(w io.Writer) error {
	settings, err := fileSettings()
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		fmt.Fprintln(w, "# No configuration set. Config file: ~/.vibe-hap.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, key, value string) error {
	settings, err := fileSettings()
	if err != nil {
		return err
	}

	// Only keys already in the file are written back, so flag defaults bound
	// into viper never leak into it.
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}

	// Parse boolean-like and numeric values
	switch value {
	case "true", "yes", "on":
		v.Set(key, true)
	case "false", "no", "off":
		v.Set(key, false)
	default:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			v.Set(key, f)
		} else {
			v.Set(key, value)
		}
	}

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".vibe-hap.yaml")
	}

	if err := v.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, viper.Get(key))
	return nil
}
