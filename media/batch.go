package media

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/YspCoder/omnimedia/dto"
)

// BatchResult is the outcome of one EditBatch item.
type BatchResult struct {
	Index    int
	Name     string
	Artifact *dto.ImageArtifact
	Err      error
}

// EditBatch edits every payload with the same instruction. Items run
// concurrently up to the configured batch concurrency; a failure in one item
// never discards the others.
func (c *ClientImpl) EditBatch(ctx context.Context, payloads []*dto.MediaPayload, instruction string) []BatchResult {
	results := make([]BatchResult, len(payloads))
	if len(payloads) == 0 {
		return results
	}

	limit := c.config.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, payload := range payloads {
		i, payload := i, payload
		results[i].Index = i
		if payload != nil {
			results[i].Name = payload.Name
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = NewMediaError(ErrorTypeCanceled, "batch canceled", err)
				return nil
			}
			artifact, err := c.SubmitEdit(ctx, &dto.EditRequest{Payload: payload, Instruction: instruction})
			results[i].Artifact = artifact
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Info("Batch edit finished", "items", len(results), "failed", failed)
	return results
}

// Succeeded returns the results without errors.
func Succeeded(results []BatchResult) []BatchResult {
	out := make([]BatchResult, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}
