package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YspCoder/omnimedia/adapter"
	"github.com/YspCoder/omnimedia/artifact"
	"github.com/YspCoder/omnimedia/config"
	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/utils"
)

func testConfig(provider, endpoint string) *config.Config {
	return &config.Config{
		Provider:         provider,
		APIKey:           "test-key",
		Endpoint:         endpoint,
		Timeout:          5 * time.Second,
		PollInterval:     time.Millisecond,
		PollMaxWait:      5 * time.Second,
		BatchConcurrency: 2,
		ArtifactBackend:  "memory",
		LogLevel:         "debug",
	}
}

func newTestClient(t *testing.T, provider, endpoint string) Client {
	t.Helper()
	client, err := NewClient(testConfig(provider, endpoint), utils.NewNopLogger(), adapter.NewRegistry())
	require.NoError(t, err)
	return client
}

func pngPayload(name string) *dto.MediaPayload {
	return &dto.MediaPayload{Name: name, MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n" + name)}
}

// veoServer fakes the Gemini video endpoints. The operation reports done on
// the doneAfter-th status query.
type veoServer struct {
	doneAfter   int
	statusCalls atomic.Int32
	downloads   atomic.Int32
	downloadKey atomic.Value
	noSamples   bool
	fileStatus  int
	srv         *httptest.Server
}

func newVeoServer(t *testing.T, doneAfter int) *veoServer {
	v := &veoServer{doneAfter: doneAfter, fileStatus: http.StatusOK}
	v.srv = httptest.NewServer(http.HandlerFunc(v.handle))
	t.Cleanup(v.srv.Close)
	return v
}

func (v *veoServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
		io.WriteString(w, `{"name":"operations/op1"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/operations/op1":
		n := int(v.statusCalls.Add(1))
		if n < v.doneAfter {
			io.WriteString(w, `{"name":"operations/op1","done":false}`)
			return
		}
		if v.noSamples {
			io.WriteString(w, `{"name":"operations/op1","done":true,"response":{"generateVideoResponse":{}}}`)
			return
		}
		io.WriteString(w, `{"name":"operations/op1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"`+v.srv.URL+`/files/cat.mp4"}}]}}}`)
	case r.URL.Path == "/files/cat.mp4":
		v.downloads.Add(1)
		v.downloadKey.Store(r.URL.Query().Get("key"))
		if v.fileStatus != http.StatusOK {
			w.WriteHeader(v.fileStatus)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		io.WriteString(w, "mp4-bytes")
	default:
		http.NotFound(w, r)
	}
}

func TestGenerateVideoEndToEnd(t *testing.T) {
	v := newVeoServer(t, 3)
	client := newTestClient(t, "google", v.srv.URL)

	payload, err := Encode("cat.png", bytes.NewReader([]byte("\x89PNG\r\n\x1a\nfake")))
	require.NoError(t, err)

	rec := &recorder{}
	handle, err := client.GenerateVideo(context.Background(), &dto.VideoRequest{Payload: payload, Prompt: "the cat jumps"}, rec.observe)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rec.events), 5)
	assert.Equal(t, StageSubmitting, rec.events[0].Stage)
	assert.Equal(t, "Initializing video generation...", rec.events[0].Message)
	polling := rec.stage(StagePolling)
	require.Len(t, polling, 3)
	assert.Equal(t, ProgressMessages[0], polling[0].Message)
	assert.Equal(t, ProgressMessages[1], polling[1].Message)
	assert.Equal(t, ProgressMessages[2], polling[2].Message)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, StageFetching, last.Stage)
	assert.Equal(t, "Fetching generated video...", last.Message)

	assert.Equal(t, int32(3), v.statusCalls.Load())
	assert.Equal(t, int32(1), v.downloads.Load())
	assert.Equal(t, "test-key", v.downloadKey.Load())

	assert.Equal(t, "video/mp4", handle.MIMEType)
	assert.True(t, strings.HasPrefix(handle.URI, "blob:omnimedia/"))

	require.NoError(t, client.Release(context.Background(), handle))
	_, err = client.Store().Open(context.Background(), handle.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestGenerateVideoMissingLink(t *testing.T) {
	v := newVeoServer(t, 1)
	v.noSamples = true
	client := newTestClient(t, "google", v.srv.URL)

	_, err := client.GenerateVideo(context.Background(), &dto.VideoRequest{Payload: pngPayload("cat.png"), Prompt: "p"}, nil)
	assert.True(t, IsErrorType(err, ErrorTypeMissingResultLink))
	assert.Zero(t, v.downloads.Load())
}

func TestGenerateVideoDownload404(t *testing.T) {
	v := newVeoServer(t, 1)
	v.fileStatus = http.StatusNotFound
	client := newTestClient(t, "google", v.srv.URL)

	_, err := client.GenerateVideo(context.Background(), &dto.VideoRequest{Payload: pngPayload("cat.png"), Prompt: "p"}, nil)
	assert.True(t, IsErrorType(err, ErrorTypeDownloadFailed))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, int32(1), v.downloads.Load())
}

func TestSubmitVideoJobValidatesInput(t *testing.T) {
	client := newTestClient(t, "google", "http://127.0.0.1:1")

	_, err := client.SubmitVideoJob(context.Background(), &dto.VideoRequest{Payload: pngPayload("cat.png")})
	assert.True(t, IsErrorType(err, ErrorTypeInvalidInput))

	_, err = client.SubmitVideoJob(context.Background(), &dto.VideoRequest{Prompt: "p"})
	assert.True(t, IsErrorType(err, ErrorTypeInvalidInput))

	_, err = client.SubmitVideoJob(context.Background(), &dto.VideoRequest{Payload: pngPayload("cat.png"), Prompt: "p", NumberOfVideos: 2})
	assert.True(t, IsErrorType(err, ErrorTypeInvalidInput))
}

func TestSubmitVideoJobTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	client := newTestClient(t, "google", endpoint)
	_, err := client.SubmitVideoJob(context.Background(), &dto.VideoRequest{Payload: pngPayload("cat.png"), Prompt: "p"})
	assert.True(t, IsErrorType(err, ErrorTypeTransport))
}

func geminiImageServer(t *testing.T, handler func(body []byte) (int, string)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		status, response := handler(body)
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func inlineImageResponse(data string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(data))
	return `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` + encoded + `"}}]}}]}`
}

func TestSubmitEdit(t *testing.T) {
	srv := geminiImageServer(t, func(body []byte) (int, string) {
		switch {
		case bytes.Contains(body, []byte("refuse")):
			return http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"I can't help with that"}]}}]}`
		case bytes.Contains(body, []byte("explode")):
			return http.StatusInternalServerError, `{"error":{"message":"internal"}}`
		default:
			return http.StatusOK, inlineImageResponse("edited")
		}
	})
	client := newTestClient(t, "google", srv.URL)

	result, err := client.SubmitEdit(context.Background(), &dto.EditRequest{Payload: pngPayload("cat.png"), Instruction: "add a hat"})
	require.NoError(t, err)
	assert.Equal(t, []byte("edited"), result.Data)

	_, err = client.SubmitEdit(context.Background(), &dto.EditRequest{Payload: pngPayload("cat.png"), Instruction: "refuse this"})
	assert.True(t, IsErrorType(err, ErrorTypeNoArtifact))

	_, err = client.SubmitEdit(context.Background(), &dto.EditRequest{Payload: pngPayload("cat.png"), Instruction: "explode"})
	assert.True(t, IsErrorType(err, ErrorTypeAPI))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

	_, err = client.SubmitEdit(context.Background(), &dto.EditRequest{Payload: pngPayload("cat.png")})
	assert.True(t, IsErrorType(err, ErrorTypeInvalidInput))
}

func TestEditBatchKeepsPartialResults(t *testing.T) {
	failing := base64.StdEncoding.EncodeToString(pngPayload("bad.png").Data)
	var mu sync.Mutex
	calls := 0
	srv := geminiImageServer(t, func(body []byte) (int, string) {
		mu.Lock()
		calls++
		mu.Unlock()
		if bytes.Contains(body, []byte(failing)) {
			return http.StatusBadRequest, `{"error":{"message":"bad image"}}`
		}
		return http.StatusOK, inlineImageResponse("ok")
	})
	client := newTestClient(t, "google", srv.URL)

	payloads := []*dto.MediaPayload{pngPayload("a.png"), pngPayload("bad.png"), pngPayload("c.png")}
	results := client.EditBatch(context.Background(), payloads, "make it pop")

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, payloads[i].Name, r.Name)
	}
	assert.NoError(t, results[0].Err)
	assert.True(t, IsErrorType(results[1].Err, ErrorTypeAPI))
	assert.NoError(t, results[2].Err)
	assert.Len(t, Succeeded(results), 2)
	assert.Equal(t, 3, calls)
}

func TestGenerateTextHuggingFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gpt2" {
			io.WriteString(w, `[{"generated_text":"hello there"}]`)
			return
		}
		io.WriteString(w, `{"label":"NEGATIVE","score":0.99}`)
	}))
	defer srv.Close()

	client := newTestClient(t, "huggingface", srv.URL)

	resp, err := client.Generate(context.Background(), &dto.TextRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)

	_, err = client.Generate(context.Background(), &dto.TextRequest{Model: "classifier", Prompt: "hi"})
	assert.True(t, IsErrorType(err, ErrorTypeUnrecognizedResponse))
}

func TestUnsupportedModeForProvider(t *testing.T) {
	client := newTestClient(t, "huggingface", "http://127.0.0.1:1")

	_, err := client.SubmitEdit(context.Background(), &dto.EditRequest{Payload: pngPayload("cat.png"), Instruction: "x"})
	assert.True(t, IsErrorType(err, ErrorTypeUnsupported))
}

func TestNewClientRequiresKey(t *testing.T) {
	cfg := testConfig("google", "")
	cfg.APIKey = ""

	_, err := NewClient(cfg, nil, adapter.NewRegistry())
	assert.True(t, IsErrorType(err, ErrorTypeAuthentication))

	cfg = testConfig("nope", "")
	_, err = NewClient(cfg, nil, adapter.NewRegistry())
	assert.True(t, IsErrorType(err, ErrorTypeUnsupported))
}

func TestNewClientFileStore(t *testing.T) {
	cfg := testConfig("google", "")
	cfg.ArtifactBackend = "file"
	cfg.ArtifactDir = t.TempDir()

	client, err := NewClient(cfg, nil, adapter.NewRegistry())
	require.NoError(t, err)
	assert.IsType(t, &artifact.FileStore{}, client.Store())
}
