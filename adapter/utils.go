package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
)

func getStringExtra(extra map[string]interface{}, key string) string {
	if extra == nil {
		return ""
	}
	if value, ok := extra[key]; ok {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}

func getBoolExtra(extra map[string]interface{}, key string) (bool, bool) {
	if extra == nil {
		return false, false
	}
	value, ok := extra[key]
	if !ok {
		return false, false
	}
	typed, ok := value.(bool)
	return typed, ok
}

func getIntExtra(extra map[string]interface{}, key string) (int, bool) {
	if extra == nil {
		return 0, false
	}
	switch v := extra[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func extractPayloadMap(extra map[string]interface{}) map[string]interface{} {
	if extra == nil {
		return nil
	}
	raw, ok := extra["payload"]
	if !ok {
		return nil
	}
	payload, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	return payload
}

func marshalPayloadWithFallback(payload map[string]interface{}, fallback interface{}) ([]byte, error) {
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			return b, nil
		}
	}
	return json.Marshal(fallback)
}

func resolveBaseURL(config *ProviderConfig, adaptorBase, fallback string) string {
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(adaptorBase, "/")
	}
	if base == "" {
		base = fallback
	}
	return base
}

func requireModel(config *ProviderConfig, mode string) (string, error) {
	if config.Model == "" {
		return "", fmt.Errorf("model is required for %s mode", mode)
	}
	return config.Model, nil
}
