package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/media"
)

var editCmd = &cobra.Command{
	Use:   "edit [flags] image...",
	Short: "Apply an edit instruction to one or more images",
	Long: `Send each image with the instruction to the provider and write the edited
images next to the output directory. Images are processed concurrently; a
failure for one image does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringP("instruction", "i", "", "Edit instruction")
	editCmd.Flags().StringP("out", "o", ".", "Output directory")
	_ = editCmd.MarkFlagRequired("instruction")
}

func runEdit(cmd *cobra.Command, args []string) error {
	instruction, _ := cmd.Flags().GetString("instruction")
	outDir, _ := cmd.Flags().GetString("out")

	client, cfg, err := newClient(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	payloads := make([]*dto.MediaPayload, 0, len(args))
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		payload, err := media.EncodeWithLimit(path, f, cfg.MaxUploadBytes)
		f.Close()
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	failed := 0
	for _, result := range client.EditBatch(ctx, payloads, instruction) {
		if result.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", result.Name, result.Err)
			continue
		}
		if !result.Artifact.Inline() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", result.Name, result.Artifact.URL)
			continue
		}
		out := filepath.Join(outDir, editedName(result.Name, result.Artifact.MIMEType))
		if err := os.WriteFile(out, result.Artifact.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", result.Name, out)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d edits failed", failed, len(payloads))
	}
	return nil
}

func editedName(name, mimeType string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	ext := ".png"
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	return base + "-edited" + ext
}
