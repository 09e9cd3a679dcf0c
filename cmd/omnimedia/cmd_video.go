package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/media"
)

var videoCmd = &cobra.Command{
	Use:   "video [flags] image",
	Short: "Generate a short video from a still image",
	Long: `Submit a video generation job for the image, wait for it to finish and
write the result to --out. Press Ctrl+C to stop waiting.`,
	Args: cobra.ExactArgs(1),
	RunE: runVideo,
}

func init() {
	videoCmd.Flags().String("prompt", "", "What should happen in the video")
	videoCmd.Flags().Int("seconds", 5, "Video length in seconds (2-15)")
	videoCmd.Flags().Bool("hq", false, "Ask for a highly detailed, cinematic result")
	videoCmd.Flags().StringP("out", "o", "video.mp4", "Output file")
	_ = videoCmd.MarkFlagRequired("prompt")
}

func runVideo(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	seconds, _ := cmd.Flags().GetInt("seconds")
	highQuality, _ := cmd.Flags().GetBool("hq")
	out, _ := cmd.Flags().GetString("out")

	composed, err := media.ComposeVideoPrompt(prompt, seconds, highQuality)
	if err != nil {
		return err
	}

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	payload, err := media.EncodeFile(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	handle, err := client.GenerateVideo(ctx, &dto.VideoRequest{Payload: payload, Prompt: composed}, func(event media.ProgressEvent) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", event.Elapsed.Truncate(time.Second), event.Message)
	})
	if err != nil {
		return err
	}
	defer client.Release(context.Background(), handle)

	reader, err := client.Store().Open(ctx, handle.ID)
	if err != nil {
		return err
	}
	defer reader.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d bytes)\n", out, handle.MIMEType, handle.Size)
	return nil
}
