package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// validSSLModes are the SSL modes accepted by PostgreSQL.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and model validation
	switch c.Provider {
	case ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (supported: gemini, ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.Provider == ProviderGemini && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 2. Embedding dimension validation. The dimension is fixed per
	// deployment; a stored record with a different dimension is a fatal
	// configuration fault, so reject bad values before anything is written.
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 8192 {
		return fmt.Errorf("%w: must be between 1 and 8192, got %d", ErrInvalidDimension, c.EmbedderDimension)
	}

	// 3. Store backend validation
	switch c.StoreBackend {
	case BackendPostgres:
		// The pgvector column type is declared with a fixed dimension in
		// db/migrations; an embedder with a different dimension would
		// corrupt ranking, so fail fast here.
		if c.EmbedderDimension != PgVectorDimension {
			return fmt.Errorf("%w: postgres backend schema uses %d dimensions, embedder_dimension is %d",
				ErrInvalidDimension, PgVectorDimension, c.EmbedderDimension)
		}
	case BackendChromem:
		if c.IndexPath == "" {
			return fmt.Errorf("%w: index_path cannot be empty for the chromem backend", ErrInvalidIndexPath)
		}
	default:
		return fmt.Errorf("%w: %q (supported: postgres, chromem)", ErrInvalidBackend, c.StoreBackend)
	}

	// 4. Retrieval configuration validation
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.TopK)
	}
	if c.HistoryBudgetChars < 500 || c.HistoryBudgetChars > 1_000_000 {
		return fmt.Errorf("%w: must be between 500 and 1,000,000, got %d", ErrInvalidHistoryBudget, c.HistoryBudgetChars)
	}
	if c.EmbedTimeoutSecs < 1 || c.EmbedTimeoutSecs > 300 {
		return fmt.Errorf("%w: embed_timeout_secs must be between 1 and 300, got %d", ErrInvalidTimeout, c.EmbedTimeoutSecs)
	}
	if c.GenTimeoutSecs < 1 || c.GenTimeoutSecs > 600 {
		return fmt.Errorf("%w: generate_timeout_secs must be between 1 and 600, got %d", ErrInvalidTimeout, c.GenTimeoutSecs)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("%w: max_retries must be between 0 and 10, got %d", ErrInvalidRetries, c.MaxRetries)
	}
	if c.RequestsPerMinute < 1 || c.RequestsPerMinute > 10_000 {
		return fmt.Errorf("%w: requests_per_minute must be between 1 and 10,000, got %d", ErrInvalidRetries, c.RequestsPerMinute)
	}

	// 5. Ingestion configuration validation
	if c.ChunkSize < 50 || c.ChunkSize > 100_000 {
		return fmt.Errorf("%w: chunk_size must be between 50 and 100,000, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be between 0 and chunk_size-1, got %d", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.IngestWorkers < 1 || c.IngestWorkers > 64 {
		return fmt.Errorf("%w: ingest_workers must be between 1 and 64, got %d", ErrInvalidWorkers, c.IngestWorkers)
	}

	// 6. PostgreSQL validation, only when the configuration needs a database.
	if c.NeedsPostgres() {
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
		}
		if c.PostgresPassword == "" {
			return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
		}
		if c.PostgresPassword == "sage_dev_password" {
			slog.Warn("using default development password for PostgreSQL",
				"warning", "change postgres_password for production deployments")
		}
		if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
			return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
		}
	}

	return nil
}
