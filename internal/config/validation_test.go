package config

import (
	"errors"
	"testing"
)

// validBaseConfig returns a Config with all required fields set for the given
// backend, using the ollama provider so no API key is needed.
func validBaseConfig(backend string) *Config {
	cfg := &Config{
		Provider:           ProviderOllama,
		ModelName:          "llama3.3",
		OllamaHost:         "http://localhost:11434",
		EmbedderModel:      "nomic-embed-text",
		EmbedderDimension:  PgVectorDimension,
		StoreBackend:       backend,
		IndexPath:          "/tmp/sage-index",
		GraphPath:          "/tmp/sage-graph.json",
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "sage",
		PostgresPassword:   "test_password",
		PostgresDBName:     "sage",
		PostgresSSLMode:    "disable",
		TopK:               5,
		HistoryBudgetChars: 8000,
		EmbedTimeoutSecs:   30,
		GenTimeoutSecs:     60,
		MaxRetries:         3,
		RequestsPerMinute:  60,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		IngestWorkers:      4,
	}
	return cfg
}

func TestValidateSuccess(t *testing.T) {
	for _, backend := range []string{BackendPostgres, BackendChromem} {
		t.Run(backend, func(t *testing.T) {
			cfg := validBaseConfig(backend)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error with valid config (backend %q): %v", backend, err)
			}
		})
	}
}

func TestValidateGeminiRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validBaseConfig(BackendChromem)
	cfg.Provider = ProviderGemini
	cfg.ModelName = "gemini-2.5-flash"

	err := cfg.Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() error = %v, want ErrMissingAPIKey", err)
	}

	t.Setenv("GEMINI_API_KEY", "test-api-key")
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error with API key set: %v", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil config = %v, want ErrConfigNil", err)
	}
}

// TestValidateFieldErrors tests each sentinel error with a single mutation of
// an otherwise valid configuration.
func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unsupported provider",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.Provider = "claude" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero dimension",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.EmbedderDimension = 0 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "dimension above ceiling",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.EmbedderDimension = 8193 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "postgres backend rejects mismatched dimension",
			backend: BackendPostgres,
			mutate:  func(c *Config) { c.EmbedderDimension = 384 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "chromem backend requires index path",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.IndexPath = "" },
			wantErr: ErrInvalidIndexPath,
		},
		{
			name:    "unsupported backend",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.StoreBackend = "redis" },
			wantErr: ErrInvalidBackend,
		},
		{
			name:    "top k too small",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top k too large",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.TopK = 51 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "history budget too small",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.HistoryBudgetChars = 100 },
			wantErr: ErrInvalidHistoryBudget,
		},
		{
			name:    "embed timeout out of range",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.EmbedTimeoutSecs = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "generate timeout out of range",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.GenTimeoutSecs = 601 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative retries",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: ErrInvalidRetries,
		},
		{
			name:    "requests per minute out of range",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.RequestsPerMinute = 0 },
			wantErr: ErrInvalidRetries,
		},
		{
			name:    "chunk size too small",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.ChunkSize = 10 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap not below chunk size",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "worker count out of range",
			backend: BackendChromem,
			mutate:  func(c *Config) { c.IngestWorkers = 0 },
			wantErr: ErrInvalidWorkers,
		},
		{
			name:    "postgres host required",
			backend: BackendPostgres,
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			backend: BackendPostgres,
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "postgres database name required",
			backend: BackendPostgres,
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "postgres password required",
			backend: BackendPostgres,
			mutate:  func(c *Config) { c.PostgresPassword = "" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "postgres ssl mode unknown",
			backend: BackendPostgres,
			mutate:  func(c *Config) { c.PostgresSSLMode = "maybe" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig(tt.backend)
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidatePostgresSkippedForChromem verifies that database settings are
// not validated when the embedded backend is selected.
func TestValidatePostgresSkippedForChromem(t *testing.T) {
	cfg := validBaseConfig(BackendChromem)
	cfg.PostgresHost = ""
	cfg.PostgresPassword = ""
	cfg.PostgresDBName = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error, chromem should not require postgres settings: %v", err)
	}
}
