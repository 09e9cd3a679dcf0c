// Package adapter provides provider registry and adaptor factories.
package adapter

import (
	"fmt"
	"sync"
)

// ProviderType represents the general API format.
type ProviderType string

const (
	TypeGoogle      ProviderType = "google"
	TypeJimeng      ProviderType = "jimeng"
	TypeAli         ProviderType = "ali"
	TypeHuggingFace ProviderType = "huggingface"
	TypeOpenAI      ProviderType = "openai"
	TypeOllama      ProviderType = "ollama"
	TypeCustom      ProviderType = "custom"
)

// ProviderSpec describes a provider's defaults and adaptor mapping.
type ProviderSpec struct {
	Name            string
	Type            ProviderType
	Endpoint        string
	RequiredHeaders map[string]string
	// DefaultModels maps a mode to the model used when a request names none.
	DefaultModels  map[string]string
	RequiresAPIKey bool
	AdaptorFactory func() Adaptor
}

// Supports reports whether the provider has a default model for mode.
func (s ProviderSpec) Supports(mode string) bool {
	_, ok := s.DefaultModels[mode]
	return ok
}

// Registry manages adaptor registration.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]ProviderSpec
}

func knownProviders() map[string]ProviderSpec {
	google := ProviderSpec{
		Name:     "google",
		Type:     TypeGoogle,
		Endpoint: googleDefaultBaseURL,
		DefaultModels: map[string]string{
			ModeImage: "gemini-2.5-flash-image-preview",
			ModeVideo: "veo-2.0-generate-001",
			ModeText:  "gemini-2.5-flash",
		},
		RequiresAPIKey: true,
	}
	ali := ProviderSpec{
		Name:     "dashscope",
		Type:     TypeAli,
		Endpoint: aliDefaultBaseURL,
		DefaultModels: map[string]string{
			ModeImage: "qwen-image-edit",
			ModeVideo: "wan2.2-i2v-plus",
			ModeText:  "qwen-plus",
		},
		RequiresAPIKey: true,
	}

	return map[string]ProviderSpec{
		"google": google,
		"gemini": google,
		"jimeng": {
			Name:     "jimeng",
			Type:     TypeJimeng,
			Endpoint: jimengDefaultBaseURL,
			DefaultModels: map[string]string{
				ModeVideo: jimengDefaultReqKey,
			},
			RequiresAPIKey: true,
		},
		"dashscope": ali,
		"ali":       ali,
		"huggingface": {
			Name:     "huggingface",
			Type:     TypeHuggingFace,
			Endpoint: huggingFaceDefaultBaseURL,
			DefaultModels: map[string]string{
				ModeText: "gpt2",
			},
			RequiresAPIKey: false,
		},
		"openai": {
			Name:     "openai",
			Type:     TypeOpenAI,
			Endpoint: openAIDefaultBaseURL,
			DefaultModels: map[string]string{
				ModeImage: "gpt-image-1",
				ModeText:  "gpt-4o-mini",
			},
			RequiresAPIKey: true,
		},
		"ollama": {
			Name:     "ollama",
			Type:     TypeOllama,
			Endpoint: ollamaDefaultBaseURL,
			DefaultModels: map[string]string{
				ModeText: "llama3.2",
			},
			RequiresAPIKey: false,
		},
	}
}

// NewRegistry creates a new registry with known providers. With no names it
// registers all of them.
func NewRegistry(providerNames ...string) *Registry {
	registry := &Registry{
		specs: make(map[string]ProviderSpec),
	}

	known := knownProviders()
	if len(providerNames) == 0 {
		for name, spec := range known {
			registry.specs[name] = spec
		}
	} else {
		for _, name := range providerNames {
			if spec, ok := known[name]; ok {
				registry.specs[name] = spec
			}
		}
	}

	return registry
}

// GetProviderSpec returns the provider spec by name.
func (r *Registry) GetProviderSpec(name string) (ProviderSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// RegisterProviderSpec registers or overrides a provider spec.
func (r *Registry) RegisterProviderSpec(name string, spec ProviderSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec.Name = name
	r.specs[name] = spec
}

// BuildAdaptor returns an adaptor for the provider.
func (r *Registry) BuildAdaptor(name string) (Adaptor, ProviderSpec, error) {
	spec, ok := r.GetProviderSpec(name)
	if !ok {
		return nil, ProviderSpec{}, fmt.Errorf("unknown provider: %s", name)
	}
	if spec.AdaptorFactory != nil {
		return spec.AdaptorFactory(), spec, nil
	}
	switch spec.Type {
	case TypeGoogle:
		return &GoogleAdaptor{}, spec, nil
	case TypeJimeng:
		return &JimengAdaptor{}, spec, nil
	case TypeAli:
		return &AliAdaptor{}, spec, nil
	case TypeHuggingFace:
		return &HuggingFaceAdaptor{}, spec, nil
	case TypeOpenAI:
		return &OpenAIAdaptor{}, spec, nil
	case TypeOllama:
		return &OllamaAdaptor{}, spec, nil
	default:
		return nil, ProviderSpec{}, fmt.Errorf("provider %s requires a custom adaptor", name)
	}
}

var defaultRegistry *Registry
var defaultRegistryOnce sync.Once

// GetDefaultRegistry returns the default registry.
func GetDefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// RegisterProvider registers a provider spec in the default registry.
func RegisterProvider(name string, spec ProviderSpec) {
	r := GetDefaultRegistry()
	r.RegisterProviderSpec(name, spec)
}

// RegisterAdaptor registers a provider with a custom adaptor factory in the default registry.
func RegisterAdaptor(name string, spec ProviderSpec, factory func() Adaptor) {
	spec.AdaptorFactory = factory
	if spec.Type == "" {
		spec.Type = TypeCustom
	}
	RegisterProvider(name, spec)
}
