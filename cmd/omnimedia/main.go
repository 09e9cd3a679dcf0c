package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/YspCoder/omnimedia/adapter"
	"github.com/YspCoder/omnimedia/config"
	"github.com/YspCoder/omnimedia/media"
	"github.com/YspCoder/omnimedia/utils"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "omnimedia",
	Short: "Edit images and generate videos with generative media APIs",
	Long: `omnimedia submits images to generative media providers.

Examples:
  # Edit an image
  omnimedia edit --instruction "make it look like a watercolor" cat.png

  # Turn an image into a short video
  omnimedia video --prompt "the cat jumps" --seconds 5 --out cat.mp4 cat.png

  # Print the configuration schema
  omnimedia config schema`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnvFile(cmd)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load if present")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "Provider name (overrides MEDIA_PROVIDER)")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model name (overrides the provider default)")
	rootCmd.PersistentFlags().String("api-key", "", "API key (overrides the environment)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// loadEnvFile loads the env file without overriding variables already set.
func loadEnvFile(cmd *cobra.Command) {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
	}
}

func configOptions(cmd *cobra.Command) []config.ConfigOption {
	var opts []config.ConfigOption
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		opts = append(opts, config.SetProvider(provider))
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		opts = append(opts, config.SetModel(model))
	}
	if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
		opts = append(opts, config.SetAPIKey(apiKey))
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts = append(opts, config.SetLogLevel("debug"))
	}
	return opts
}

func newClient(cmd *cobra.Command) (media.Client, *config.Config, error) {
	cfg, err := config.LoadConfig(configOptions(cmd)...)
	if err != nil {
		return nil, nil, err
	}
	logger := utils.NewConsoleLogger(utils.ParseLogLevel(cfg.LogLevel), os.Stderr)
	client, err := media.NewClient(cfg, logger, adapter.GetDefaultRegistry())
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}
