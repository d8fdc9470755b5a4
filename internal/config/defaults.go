package config

import (
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(map[string]any{
		"server.host": "0.0.0.0",
		"server.port": 8080,

		"store.backend":         "memory",
		"store.ttl":             "1h",
		"store.redis_addr":      "localhost:6379",
		"store.redis_db":        0,
		"store.max_connections": 10,

		"providers.skylens.enabled": true,
		"providers.skylens.timeout": "45s",
		"providers.skylens.limit":   135,

		"providers.voyagr.enabled": true,
		"providers.voyagr.timeout": "45s",
		"providers.voyagr.limit":   25,

		"analysis.model":               "swift-1",
		"analysis.model_authenticated": "deep-1",
		"analysis.timeout":             "5m",

		"search.record_cap":        100,
		"search.guest_record_cap":  40,
		"search.hidden_candidates": 10,
		"search.hidden_fanout":     3,

		"stream.poll_interval": "2s",
		"stream.max_wait":      "5m",

		"logging.level":  "info",
		"logging.format": "pretty",
	}, "."), nil)
}
