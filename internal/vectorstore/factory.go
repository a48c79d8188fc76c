package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"go.uber.org/zap"
)

// NewProvider creates a Provider based on the configuration.
//
// The provider field selects the backend:
//   - "chromem" (default): embedded chromem-go database, no external service
//   - "qdrant": external Qdrant server
func NewProvider(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	switch cfg.VectorStore.Provider {
	case "chromem", "":
		return NewChromemProvider(ChromemConfig{
			Path:     cfg.VectorStore.Chromem.Path,
			Compress: cfg.VectorStore.Chromem.Compress,
		}, logger)

	case "qdrant":
		return NewQdrantProvider(QdrantConfig{
			URL: cfg.VectorStore.Qdrant.URL,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported provider %q (supported: chromem, qdrant)",
			ErrInvalidConfig, cfg.VectorStore.Provider)
	}
}
