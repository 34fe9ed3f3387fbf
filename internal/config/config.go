package config

// Config is the root configuration for taskrelay.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Storage   StorageConfig   `json:"storage"`
	Events    EventsConfig    `json:"events"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// GatewayConfig holds the HTTP gateway settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver string `json:"driver"` // "file" | "postgres"
	Dir    string `json:"dir"`    // file driver: data root (default: $TASKRELAY_PATH/data)
	DSN    string `json:"dsn"`    // postgres driver: connection string
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// AuthConfig maps opaque API tokens to actors.
type AuthConfig struct {
	Tokens []TokenEntry `json:"tokens"`
}

// TokenEntry binds one bearer token to an actor identity.
type TokenEntry struct {
	Token   string `json:"token"` // direct value or ${{ .Env.VAR }} template
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
}

// RateLimitConfig configures the gateway rate limiter.
type RateLimitConfig struct {
	Requests      int `json:"requests"`       // allowed requests per window
	WindowSeconds int `json:"window_seconds"` // sliding window size
}
