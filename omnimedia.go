// Package omnimedia is the entry point for creating media clients. It loads
// configuration from the environment, applies options and wires the default
// provider registry and logger.
package omnimedia

import (
	"github.com/YspCoder/omnimedia/adapter"
	"github.com/YspCoder/omnimedia/artifact"
	"github.com/YspCoder/omnimedia/config"
	"github.com/YspCoder/omnimedia/dto"
	"github.com/YspCoder/omnimedia/media"
	"github.com/YspCoder/omnimedia/utils"
)

type (
	Client        = media.Client
	ConfigOption  = config.ConfigOption
	ProgressEvent = media.ProgressEvent
	ProgressFunc  = media.ProgressFunc
	BatchResult   = media.BatchResult
	MediaError    = media.MediaError
	ErrorType     = media.ErrorType
	Handle        = artifact.Handle
	MediaPayload  = dto.MediaPayload
	EditRequest   = dto.EditRequest
	VideoRequest  = dto.VideoRequest
	VideoJob      = dto.VideoJob
	ImageArtifact = dto.ImageArtifact
	TextRequest   = dto.TextRequest
	TextResponse  = dto.TextResponse
)

var (
	SetProvider         = config.SetProvider
	SetModel            = config.SetModel
	SetImageModel       = config.SetImageModel
	SetVideoModel       = config.SetVideoModel
	SetTextModel        = config.SetTextModel
	SetAPIKey           = config.SetAPIKey
	SetEndpoint         = config.SetEndpoint
	SetTimeout          = config.SetTimeout
	SetPollInterval     = config.SetPollInterval
	SetPollMaxWait      = config.SetPollMaxWait
	SetPollMaxAttempts  = config.SetPollMaxAttempts
	SetBatchConcurrency = config.SetBatchConcurrency
	SetArtifactDir      = config.SetArtifactDir
	SetLogLevel         = config.SetLogLevel
	SetExtraHeaders     = config.SetExtraHeaders

	Encode             = media.Encode
	EncodeFile         = media.EncodeFile
	ComposeVideoPrompt = media.ComposeVideoPrompt
	IsErrorType        = media.IsErrorType
)

// NewClient loads the configuration and returns a client for the selected
// provider, logging JSON to stderr at the configured level.
func NewClient(opts ...ConfigOption) (Client, error) {
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	logger := utils.NewLogger(utils.ParseLogLevel(cfg.LogLevel), nil)
	return media.NewClient(cfg, logger, adapter.GetDefaultRegistry())
}

// NewClientWithLogger is NewClient with a caller supplied logger.
func NewClientWithLogger(logger utils.Logger, opts ...ConfigOption) (Client, error) {
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	return media.NewClient(cfg, logger, adapter.GetDefaultRegistry())
}
