package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YspCoder/omnimedia/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long:  `Inspect the effective configuration and its schema.`,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, without credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configOptions(cmd)...)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configShowCmd)
}
