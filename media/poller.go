package media

import (
	"context"
	"errors"
	"mime"
	"time"

	"github.com/YspCoder/omnimedia/artifact"
	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/relay"
	"github.com/YspCoder/omnimedia/utils"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultPollMaxWait  = 30 * time.Minute
)

var errPollDeadline = errors.New("video job did not finish within the poll deadline")

// JobBackend is the provider side of a video job: status queries and the
// final download.
type JobBackend interface {
	QueryJob(ctx context.Context, job *dto.VideoJob) (*dto.VideoJob, error)
	DownloadResult(ctx context.Context, uri string) (*relay.Download, error)
}

// Poller drives a video job to completion and stores its result.
type Poller struct {
	Backend JobBackend
	Store   artifact.Store
	Logger  utils.Logger

	// Interval is the wait before each status query.
	Interval time.Duration
	// MaxWait bounds the polling phase. Zero means no bound.
	MaxWait time.Duration
	// MaxAttempts bounds the number of status queries. Zero means no bound.
	MaxAttempts int
	// Messages overrides ProgressMessages.
	Messages []string
}

// Poll waits for job to finish, then resolves, downloads and stores its
// result. Each iteration emits one progress event, sleeps for Interval and
// queries the status once; a job that is already done is never queried.
func (p *Poller) Poll(ctx context.Context, job *dto.VideoJob, onProgress ProgressFunc) (*artifact.Handle, error) {
	if job == nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "video job is nil", nil)
	}
	if p.Backend == nil || p.Store == nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "poller requires a backend and a store", nil)
	}
	logger := p.logger().With("job_id", job.ID)

	start := time.Now()
	job, err := p.waitDone(ctx, job, start, onProgress, logger)
	if err != nil {
		return nil, err
	}

	if job.Failed() {
		message := job.Error
		if message == "" {
			message = "video generation failed"
		}
		logger.Warn("Video job failed", "error", message)
		return nil, NewMediaError(ErrorTypeJobFailed, message, nil)
	}
	if job.ResultURI == "" {
		logger.Warn("Video job finished without a result link")
		return nil, NewMediaError(ErrorTypeMissingResultLink, "video generation completed, but no download link was found", nil)
	}

	onProgress.emit(ProgressEvent{Stage: StageFetching, Message: fetchingMessage, Elapsed: time.Since(start)})
	return p.fetch(ctx, job.ResultURI, logger)
}

func (p *Poller) waitDone(ctx context.Context, job *dto.VideoJob, start time.Time, onProgress ProgressFunc, logger utils.Logger) (*dto.VideoJob, error) {
	if job.Done {
		return job, nil
	}

	pollCtx := ctx
	if p.MaxWait > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeoutCause(ctx, p.MaxWait, errPollDeadline)
		defer cancel()
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for attempt := 0; !job.Done; attempt++ {
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			logger.Warn("Video job exceeded max poll attempts", "attempts", attempt)
			return nil, NewMediaError(ErrorTypeTimeout, "video job did not finish within the allowed poll attempts", nil)
		}

		onProgress.emit(ProgressEvent{
			Stage:   StagePolling,
			Message: progressMessage(p.Messages, attempt),
			Attempt: attempt,
			Elapsed: time.Since(start),
		})

		if err := sleep(pollCtx, interval); err != nil {
			return nil, pollError(pollCtx, err, "interrupted while waiting for video job")
		}

		logger.Debug("Querying video job", "attempt", attempt+1)
		next, err := p.Backend.QueryJob(pollCtx, job)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, pollError(pollCtx, err, "interrupted while querying video job")
			}
			logger.Error("Video job status query failed", "error", err)
			return nil, classify(err, ErrorTypeAPI, "failed to query video job status")
		}
		if next == nil {
			return nil, NewMediaError(ErrorTypeUnrecognizedResponse, "empty video job status", nil)
		}
		job = next
	}

	logger.Info("Video job finished", "elapsed", time.Since(start).String(), "status", job.Status)
	return job, nil
}

func (p *Poller) fetch(ctx context.Context, uri string, logger utils.Logger) (*artifact.Handle, error) {
	download, err := p.Backend.DownloadResult(ctx, uri)
	if err != nil {
		logger.Error("Video download failed", "error", err)
		return nil, classify(err, ErrorTypeDownloadFailed, "failed to download video")
	}

	handle, err := p.Store.Put(ctx, download.Data, contentType(download.ContentType), uri)
	if err != nil {
		return nil, classify(err, ErrorTypeDownloadFailed, "failed to store video")
	}
	logger.Info("Video stored", "artifact_id", handle.ID, "size", handle.Size)
	return handle, nil
}

func (p *Poller) logger() utils.Logger {
	if p.Logger == nil {
		return utils.NewNopLogger()
	}
	return p.Logger
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pollError distinguishes the poll deadline and caller deadlines from
// caller cancellation.
func pollError(ctx context.Context, err error, message string) error {
	if errors.Is(context.Cause(ctx), errPollDeadline) {
		return NewMediaError(ErrorTypeTimeout, message, errPollDeadline)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewMediaError(ErrorTypeTimeout, message, ctx.Err())
	}
	if ctx.Err() != nil {
		return NewMediaError(ErrorTypeCanceled, message, ctx.Err())
	}
	return classify(err, ErrorTypeAPI, message)
}

// contentType drops parameters and generic binary types so the store can sniff.
func contentType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}
