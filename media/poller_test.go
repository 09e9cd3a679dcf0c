package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YspCoder/omnimedia/artifact"
	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/relay"
)

// fakeBackend replays a fixed sequence of job states.
type fakeBackend struct {
	mu          sync.Mutex
	states      []*dto.VideoJob
	queryErr    error
	queries     int
	downloads   []string
	downloadErr error
	data        []byte
}

func (f *fakeBackend) QueryJob(ctx context.Context, job *dto.VideoJob) (*dto.VideoJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.states) == 0 {
		return &dto.VideoJob{ID: job.ID}, nil
	}
	next := f.states[0]
	f.states = f.states[1:]
	return next, nil
}

func (f *fakeBackend) DownloadResult(ctx context.Context, uri string) (*relay.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, uri)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return &relay.Download{Data: f.data, ContentType: "video/mp4"}, nil
}

type recorder struct {
	events []ProgressEvent
}

func (r *recorder) observe(event ProgressEvent) {
	r.events = append(r.events, event)
}

func (r *recorder) stage(stage Stage) []ProgressEvent {
	var out []ProgressEvent
	for _, e := range r.events {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

func newTestPoller(backend JobBackend) (*Poller, *artifact.MemoryStore) {
	store := artifact.NewMemoryStore()
	return &Poller{
		Backend:  backend,
		Store:    store,
		Interval: time.Millisecond,
		MaxWait:  5 * time.Second,
	}, store
}

func pending(id string) *dto.VideoJob {
	return &dto.VideoJob{ID: id, Status: dto.JobStatusRunning}
}

func finished(id, uri string) *dto.VideoJob {
	return &dto.VideoJob{ID: id, Done: true, Status: dto.JobStatusSucceeded, ResultURI: uri}
}

func TestPollQueriesUntilDoneThenDownloadsOnce(t *testing.T) {
	const n = 3
	backend := &fakeBackend{data: []byte("mp4-bytes")}
	for i := 0; i < n; i++ {
		backend.states = append(backend.states, pending("op"))
	}
	backend.states = append(backend.states, finished("op", "https://files.example/v.mp4"))

	p, store := newTestPoller(backend)
	rec := &recorder{}
	handle, err := p.Poll(context.Background(), pending("op"), rec.observe)
	require.NoError(t, err)

	assert.Equal(t, n+1, backend.queries)
	polling := rec.stage(StagePolling)
	require.Len(t, polling, n+1)
	for i, e := range polling {
		assert.Equal(t, i, e.Attempt)
		assert.Equal(t, ProgressMessages[i], e.Message)
	}
	assert.Len(t, rec.stage(StageFetching), 1)
	assert.Equal(t, []string{"https://files.example/v.mp4"}, backend.downloads)

	assert.Equal(t, "video/mp4", handle.MIMEType)
	assert.Equal(t, int64(len("mp4-bytes")), handle.Size)
	assert.Equal(t, "https://files.example/v.mp4", handle.SourceURI)
	assert.Equal(t, 1, store.Len())

	rc, err := store.Open(context.Background(), handle.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), data)
}

func TestPollMessagesRotate(t *testing.T) {
	backend := &fakeBackend{data: []byte("v")}
	for i := 0; i < 9; i++ {
		backend.states = append(backend.states, pending("op"))
	}
	backend.states = append(backend.states, finished("op", "https://files.example/v.mp4"))

	p, _ := newTestPoller(backend)
	rec := &recorder{}
	_, err := p.Poll(context.Background(), pending("op"), rec.observe)
	require.NoError(t, err)

	polling := rec.stage(StagePolling)
	require.Len(t, polling, 10)
	assert.Equal(t, ProgressMessages[0], polling[8].Message)
	assert.Equal(t, ProgressMessages[1], polling[9].Message)
}

func TestPollDoneHandleIsNeverQueried(t *testing.T) {
	backend := &fakeBackend{data: []byte("v")}
	p, _ := newTestPoller(backend)
	rec := &recorder{}

	_, err := p.Poll(context.Background(), finished("op", "https://files.example/v.mp4"), rec.observe)
	require.NoError(t, err)

	assert.Zero(t, backend.queries)
	assert.Empty(t, rec.stage(StagePolling))
	assert.Len(t, backend.downloads, 1)
}

func TestPollMissingResultLinkSkipsDownload(t *testing.T) {
	backend := &fakeBackend{states: []*dto.VideoJob{finished("op", "")}}
	p, store := newTestPoller(backend)

	_, err := p.Poll(context.Background(), pending("op"), nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeMissingResultLink))
	assert.Empty(t, backend.downloads)
	assert.Zero(t, store.Len())
}

func TestPollDownloadFailureIsNotRetried(t *testing.T) {
	backend := &fakeBackend{
		states:      []*dto.VideoJob{finished("op", "https://files.example/v.mp4")},
		downloadErr: &dto.APIError{Code: http.StatusNotFound, Message: "Not Found"},
	}
	p, store := newTestPoller(backend)

	_, err := p.Poll(context.Background(), pending("op"), nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeDownloadFailed))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Len(t, backend.downloads, 1)
	assert.Zero(t, store.Len())
}

func TestPollJobFailure(t *testing.T) {
	backend := &fakeBackend{states: []*dto.VideoJob{{ID: "op", Done: true, Status: dto.JobStatusFailed, Error: "prompt rejected"}}}
	p, _ := newTestPoller(backend)

	_, err := p.Poll(context.Background(), pending("op"), nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeJobFailed))
	assert.Contains(t, err.Error(), "prompt rejected")
	assert.Empty(t, backend.downloads)
}

func TestPollQueryErrorSurfacesStatus(t *testing.T) {
	backend := &fakeBackend{queryErr: &dto.APIError{Code: http.StatusInternalServerError, Message: "boom"}}
	p, _ := newTestPoller(backend)

	_, err := p.Poll(context.Background(), pending("op"), nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeAPI))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, 1, backend.queries)
}

func TestPollStopsAfterMaxAttempts(t *testing.T) {
	backend := &fakeBackend{}
	p, _ := newTestPoller(backend)
	p.MaxAttempts = 3
	rec := &recorder{}

	_, err := p.Poll(context.Background(), pending("op"), rec.observe)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeTimeout))
	assert.Equal(t, 3, backend.queries)
	assert.Len(t, rec.stage(StagePolling), 3)
	assert.Empty(t, backend.downloads)
}

func TestPollStopsAfterMaxWait(t *testing.T) {
	backend := &fakeBackend{}
	p, _ := newTestPoller(backend)
	p.Interval = 5 * time.Millisecond
	p.MaxWait = 40 * time.Millisecond

	start := time.Now()
	_, err := p.Poll(context.Background(), pending("op"), nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPollCancellationDuringSleep(t *testing.T) {
	backend := &fakeBackend{}
	p, _ := newTestPoller(backend)
	p.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	var events int
	_, err := p.Poll(ctx, pending("op"), func(ProgressEvent) {
		events++
		cancel()
	})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, events)
	assert.Zero(t, backend.queries)
}

func TestPollRejectsNilJob(t *testing.T) {
	p, _ := newTestPoller(&fakeBackend{})
	_, err := p.Poll(context.Background(), nil, nil)
	assert.True(t, IsErrorType(err, ErrorTypeInvalidInput))
}
