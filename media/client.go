// Package media provides the submission client and video job poller for
// generative media providers. It abstracts provider wire formats behind a
// single Client and reports failures as typed MediaErrors.
package media

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/YspCoder/omnimedia/adapter"
	"github.com/YspCoder/omnimedia/artifact"
	"github.com/YspCoder/omnimedia/config"
	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/relay"
	"github.com/YspCoder/omnimedia/utils"
)

// Client submits media requests to a single provider.
type Client interface {
	// SubmitEdit performs a single-shot image edit. Returns ErrorTypeNoArtifact
	// when the provider answers without an image.
	SubmitEdit(ctx context.Context, request *dto.EditRequest) (*dto.ImageArtifact, error)

	// EditBatch applies one instruction to every payload and reports one
	// result per input, in input order.
	EditBatch(ctx context.Context, payloads []*dto.MediaPayload, instruction string) []BatchResult

	// SubmitVideoJob creates a video job and returns its initial handle
	// without waiting for it.
	SubmitVideoJob(ctx context.Context, request *dto.VideoRequest) (*dto.VideoJob, error)

	// PollVideoJob drives job to completion and stores the generated video.
	PollVideoJob(ctx context.Context, job *dto.VideoJob, onProgress ProgressFunc) (*artifact.Handle, error)

	// GenerateVideo submits, polls and fetches in one call.
	GenerateVideo(ctx context.Context, request *dto.VideoRequest, onProgress ProgressFunc) (*artifact.Handle, error)

	// Fetch downloads a provider result URI into the artifact store.
	Fetch(ctx context.Context, uri string) (*artifact.Handle, error)

	// Generate produces text for a single prompt.
	Generate(ctx context.Context, request *dto.TextRequest) (*dto.TextResponse, error)

	// Release frees an artifact returned by this client.
	Release(ctx context.Context, handle *artifact.Handle) error

	Store() artifact.Store
	Provider() string
	SetLogLevel(level utils.LogLevel)
	GetLogger() utils.Logger
}

// ClientImpl implements Client on top of the relay and a provider adaptor.
type ClientImpl struct {
	providerName string
	spec         adapter.ProviderSpec
	config       *config.Config
	logger       utils.Logger
	client       *http.Client
	relay        *relay.Relay
	adaptor      adapter.Adaptor
	adaptorCfg   *adapter.ProviderConfig
	store        artifact.Store
	validate     *validator.Validate
}

// ClientOption customizes a client at construction.
type ClientOption func(*ClientImpl)

// WithStore sets the artifact store, overriding the configured backend.
func WithStore(store artifact.Store) ClientOption {
	return func(c *ClientImpl) {
		c.store = store
	}
}

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ClientImpl) {
		c.client = client
	}
}

// NewClient creates a client for cfg.Provider.
//
// Returns:
//   - ErrorTypeUnsupported if the provider is unknown
//   - ErrorTypeAuthentication if the provider needs a key and none is configured
func NewClient(cfg *config.Config, logger utils.Logger, registry *adapter.Registry, opts ...ClientOption) (Client, error) {
	if cfg == nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "config is nil", nil)
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if registry == nil {
		registry = adapter.GetDefaultRegistry()
	}

	adp, spec, err := registry.BuildAdaptor(cfg.Provider)
	if err != nil {
		return nil, NewMediaError(ErrorTypeUnsupported, "failed to build provider adaptor", err)
	}

	apiKey := cfg.ResolvedAPIKey()
	if apiKey == "" && spec.RequiresAPIKey {
		return nil, NewMediaError(ErrorTypeAuthentication, "empty API key", nil)
	}

	headers := make(map[string]string)
	for key, value := range spec.RequiredHeaders {
		headers[key] = value
	}
	for key, value := range cfg.ExtraHeaders {
		headers[key] = value
	}

	baseURL := spec.Endpoint
	if cfg.Endpoint != "" {
		baseURL = cfg.Endpoint
	}

	c := &ClientImpl{
		providerName: spec.Name,
		spec:         spec,
		config:       cfg,
		logger:       logger.With("provider", spec.Name),
		relay:        &relay.Relay{MaxDownloadBytes: cfg.MaxDownloadBytes},
		adaptor:      adp,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.Timeout}
	}
	if c.store == nil {
		store, err := newStore(cfg)
		if err != nil {
			return nil, err
		}
		c.store = store
	}

	c.adaptorCfg = &adapter.ProviderConfig{
		Name:       spec.Name,
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Headers:    headers,
		HTTPClient: c.client,
		Timeout:    cfg.Timeout,
	}

	c.logger.Debug("Media client created", "base_url", baseURL, "api_key", utils.SanitizeToken(apiKey))
	return c, nil
}

func newStore(cfg *config.Config) (artifact.Store, error) {
	if cfg.ArtifactBackend != "file" {
		return artifact.NewMemoryStore(), nil
	}
	store, err := artifact.NewFileStore(cfg.ArtifactDir)
	if err != nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "failed to open artifact store", err)
	}
	return store, nil
}

// providerConfig returns a per-call copy of the provider config with the
// model for mode resolved.
func (c *ClientImpl) providerConfig(mode, requested string) (*adapter.ProviderConfig, error) {
	model := requested
	if model == "" {
		model = c.config.ModelFor(mode)
	}
	if model == "" {
		model = c.spec.DefaultModels[mode]
	}
	if model == "" {
		return nil, NewMediaError(ErrorTypeUnsupported, fmt.Sprintf("%s does not support %s requests", c.providerName, mode), nil)
	}
	cfg := *c.adaptorCfg
	cfg.Model = model
	return &cfg, nil
}

func (c *ClientImpl) validateRequest(request interface{}) error {
	if err := c.validate.Struct(request); err != nil {
		return NewMediaError(ErrorTypeInvalidInput, "invalid request", err)
	}
	return nil
}

// SubmitEdit sends the image and instruction in one request.
//
// Returns:
//   - ErrorTypeInvalidInput for a missing payload or instruction
//   - ErrorTypeAPI for non-2xx provider responses
//   - ErrorTypeNoArtifact if the response carries no image
func (c *ClientImpl) SubmitEdit(ctx context.Context, request *dto.EditRequest) (*dto.ImageArtifact, error) {
	if request == nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "edit request is nil", nil)
	}
	if err := c.validateRequest(request); err != nil {
		return nil, err
	}
	cfg, err := c.providerConfig(adapter.ModeImage, request.Model)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Submitting image edit", "model", cfg.Model, "mime_type", request.Payload.MIMEType, "bytes", len(request.Payload.Data))
	result, err := c.relay.Edit(ctx, c.adaptor, cfg, request)
	if err != nil {
		c.logger.Error("Image edit failed", "model", cfg.Model, "error", err)
		return nil, classify(err, ErrorTypeAPI, "image edit request failed")
	}
	if result == nil || (!result.Inline() && result.URL == "") {
		c.logger.Warn("Image edit returned no image", "model", cfg.Model)
		return nil, NewMediaError(ErrorTypeNoArtifact, "no image was generated; the model may have declined the instruction", nil)
	}
	return result, nil
}

// SubmitVideoJob creates a video job.
//
// Returns:
//   - ErrorTypeInvalidInput for a missing payload or prompt
//   - ErrorTypeAPI for non-2xx provider responses
func (c *ClientImpl) SubmitVideoJob(ctx context.Context, request *dto.VideoRequest) (*dto.VideoJob, error) {
	if request == nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "video request is nil", nil)
	}
	if err := c.validateRequest(request); err != nil {
		return nil, err
	}
	cfg, err := c.providerConfig(adapter.ModeVideo, request.Model)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Submitting video job", "model", cfg.Model, "prompt", request.Prompt)
	job, err := c.relay.SubmitVideo(ctx, c.adaptor, cfg, request)
	if err != nil {
		c.logger.Error("Video job submission failed", "model", cfg.Model, "error", err)
		return nil, classify(err, ErrorTypeAPI, "video job submission failed")
	}
	if job.Model == "" {
		job.Model = cfg.Model
	}
	c.logger.Info("Video job submitted", "job_id", job.ID, "done", job.Done)
	return job, nil
}

// PollVideoJob runs the poller with the configured interval and bounds.
func (c *ClientImpl) PollVideoJob(ctx context.Context, job *dto.VideoJob, onProgress ProgressFunc) (*artifact.Handle, error) {
	return c.poller().Poll(ctx, job, onProgress)
}

// GenerateVideo submits request, then polls and fetches the result.
func (c *ClientImpl) GenerateVideo(ctx context.Context, request *dto.VideoRequest, onProgress ProgressFunc) (*artifact.Handle, error) {
	onProgress.emit(ProgressEvent{Stage: StageSubmitting, Message: submittingMessage})
	job, err := c.SubmitVideoJob(ctx, request)
	if err != nil {
		return nil, err
	}
	return c.PollVideoJob(ctx, job, onProgress)
}

// Fetch downloads uri with provider credentials and stores the bytes.
func (c *ClientImpl) Fetch(ctx context.Context, uri string) (*artifact.Handle, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, NewMediaError(ErrorTypeInvalidInput, "uri is empty", nil)
	}
	return c.poller().fetch(ctx, uri, c.logger)
}

// Generate performs a single text generation call.
func (c *ClientImpl) Generate(ctx context.Context, request *dto.TextRequest) (*dto.TextResponse, error) {
	if request == nil {
		return nil, NewMediaError(ErrorTypeInvalidInput, "text request is nil", nil)
	}
	if err := c.validateRequest(request); err != nil {
		return nil, err
	}
	if _, ok := c.adaptor.(adapter.TextAdaptor); !ok {
		return nil, NewMediaError(ErrorTypeUnsupported, "text generation not supported by provider", nil)
	}
	cfg, err := c.providerConfig(adapter.ModeText, request.Model)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Generating text", "model", cfg.Model, "prompt", request.Prompt)
	response, err := c.relay.Text(ctx, c.adaptor, cfg, request)
	if err != nil {
		c.logger.Error("Text generation failed", "model", cfg.Model, "error", err)
		return nil, classify(err, ErrorTypeAPI, "text generation failed")
	}
	return response, nil
}

// Release frees handle in the client's store.
func (c *ClientImpl) Release(ctx context.Context, handle *artifact.Handle) error {
	if handle == nil {
		return nil
	}
	return c.store.Release(ctx, handle.ID)
}

// Store returns the artifact store.
func (c *ClientImpl) Store() artifact.Store {
	return c.store
}

// Provider returns the provider name.
func (c *ClientImpl) Provider() string {
	return c.providerName
}

// SetLogLevel updates the logging verbosity level.
func (c *ClientImpl) SetLogLevel(level utils.LogLevel) {
	c.logger.Debug("Setting media client log level", "new_level", level.String())
	c.logger.SetLevel(level)
}

// GetLogger returns the current logger instance.
func (c *ClientImpl) GetLogger() utils.Logger {
	return c.logger
}

func (c *ClientImpl) poller() *Poller {
	return &Poller{
		Backend:     relayBackend{c},
		Store:       c.store,
		Logger:      c.logger,
		Interval:    c.config.PollInterval,
		MaxWait:     c.config.PollMaxWait,
		MaxAttempts: c.config.PollMaxAttempts,
	}
}

// relayBackend answers poller queries through the client's relay.
type relayBackend struct {
	c *ClientImpl
}

func (b relayBackend) QueryJob(ctx context.Context, job *dto.VideoJob) (*dto.VideoJob, error) {
	if _, ok := b.c.adaptor.(adapter.TaskAdaptor); !ok {
		return nil, NewMediaError(ErrorTypeUnsupported, "video job status not supported by provider", nil)
	}
	cfg, err := b.c.providerConfig(adapter.ModeVideo, job.Model)
	if err != nil {
		return nil, err
	}
	next, err := b.c.relay.TaskStatus(ctx, b.c.adaptor, cfg, job.ID)
	if err != nil {
		return nil, err
	}
	if next.Model == "" {
		next.Model = job.Model
	}
	return next, nil
}

func (b relayBackend) DownloadResult(ctx context.Context, uri string) (*relay.Download, error) {
	return b.c.relay.Download(ctx, b.c.adaptor, b.c.adaptorCfg, uri)
}
