package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// EmbeddingProviderJina is the only supported provider: a multimodal
	// model that embeds screenshots and text into one space.
	EmbeddingProviderJina = "jina"

	DefaultJinaBaseURL = "https://api.jina.ai/v1"
)

// ErrMissingAPIKey is returned when an embedding call is attempted without credentials.
var ErrMissingAPIKey = errors.New("embedding: api key is not configured")

// EmbeddingConfig configures the vision-language embedding model.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	APIKeyEnv  string `mapstructure:"api_key_env"` // read when api_key is empty
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"` // every stored vector has this length
	BatchSize  int    `mapstructure:"batch_size"` // texts per request
}

// ResolveEnvVars fills APIKey from the variable named by APIKeyEnv.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKey != "" || c.APIKeyEnv == "" {
		return
	}
	c.APIKey = os.Getenv(c.APIKeyEnv)
}

// Endpoint returns the embeddings URL derived from BaseURL.
func (c *EmbeddingConfig) Endpoint() string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	if base == "" {
		base = DefaultJinaBaseURL
	}
	return base + "/embeddings"
}

// Validate checks provider, model and dimensions. Credentials are checked
// separately by ValidateWithAPIKey so commands that never call the model
// can run without them.
func (c *EmbeddingConfig) Validate() error {
	switch {
	case c.Provider != EmbeddingProviderJina:
		return fmt.Errorf("embedding: unsupported provider %q", c.Provider)
	case c.Model == "":
		return fmt.Errorf("embedding: model is required")
	case c.Dimensions <= 0:
		return fmt.Errorf("embedding %s: dimensions must be positive, got %d", c.Model, c.Dimensions)
	}
	return nil
}

// ValidateWithAPIKey validates the configuration and requires an API key.
func (c *EmbeddingConfig) ValidateWithAPIKey() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w (set embedding.api_key or %s)", ErrMissingAPIKey, c.APIKeyEnv)
	}
	return nil
}
