package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YspCoder/omnimedia/dto"
)

var textCmd = &cobra.Command{
	Use:   "text [flags] prompt...",
	Short: "Generate text for a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runText,
}

func init() {
	textCmd.Flags().String("system", "", "System prompt")
	textCmd.Flags().Int("max-tokens", 0, "Maximum tokens to generate")
}

func runText(cmd *cobra.Command, args []string) error {
	system, _ := cmd.Flags().GetString("system")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	response, err := client.Generate(ctx, &dto.TextRequest{
		Prompt:       strings.Join(args, " "),
		SystemPrompt: system,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), response.Text)
	return nil
}
