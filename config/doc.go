// Package config loads the filestreams application configuration.
//
// A configuration names the platform, selects the bus transport, describes
// the NATS connection and JetStream stream, configures the metrics server,
// and lists component instances:
//
//	{
//	  "platform": {"id": "edge-1", "transport": "nats"},
//	  "nats": {
//	    "urls": ["nats://localhost:4222"],
//	    "reconnect_wait": "2s",
//	    "jetstream": {"enabled": true, "stream": {"name": "FILESTREAMS", "subjects": ["file.>"], "max_age": "7d"}}
//	  },
//	  "metrics": {"port": 9090},
//	  "components": {
//	    "reader": {"type": "input", "name": "file-source", "enabled": true,
//	               "config": {"directory": "/data/in", "consumer": {"mode": "lines"}}}
//	  }
//	}
//
// # Loading
//
// Loader merges layers over Defaults(). Layers may be JSON or YAML. Nested
// objects are merged key by key, except a component's "config" object,
// which a later layer replaces whole. Duration fields accept Go duration
// strings and a "d" suffix for days.
//
//	loader := config.NewLoader()
//	loader.AddLayer("base.yaml")
//	loader.AddLayer("production.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Environment variables override loaded values:
//
//	FILESTREAMS_PLATFORM_ID    platform.id
//	FILESTREAMS_TRANSPORT      platform.transport
//	FILESTREAMS_NATS_URLS      nats.urls (comma separated)
//	FILESTREAMS_NATS_USERNAME  nats.username
//	FILESTREAMS_NATS_PASSWORD  nats.password
//	FILESTREAMS_NATS_TOKEN     nats.token
//	FILESTREAMS_METRICS_PORT   metrics.port
//
// Config files are size limited, must be regular files, and are checked for
// JSON nesting depth before decoding.
//
// # Validation
//
// Config.Validate checks structure. ValidateComponents checks each enabled
// component config against its factory schema.
package config
