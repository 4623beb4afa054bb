// ABOUTME: Factory that opens the configured vector store backend
// ABOUTME: One backend name selects embedded, relational, or client-server stores
package connector

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/omni-webui/omni-webui/internal/vector"
	"github.com/omni-webui/omni-webui/internal/vector/bolt"
	"github.com/omni-webui/omni-webui/internal/vector/milvus"
	"github.com/omni-webui/omni-webui/internal/vector/qdrant"
	"github.com/omni-webui/omni-webui/internal/vector/sqlitevec"
)

// Backend names accepted by Open.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMilvus = "milvus"
	BackendQdrant = "qdrant"
)

// Options selects and configures a backend.
type Options struct {
	Backend      string
	DataDir      string
	MilvusAddr   string
	QdrantURL    string
	QdrantAPIKey string
	Timeout      time.Duration
}

// Open opens the vector store named by opts.Backend. An empty name selects
// the embedded bolt store.
func Open(ctx context.Context, opts Options) (vector.Store, error) {
	switch opts.Backend {
	case BackendBolt, "":
		return bolt.Open(filepath.Join(opts.DataDir, "vectors.db"))
	case BackendSQLite:
		return sqlitevec.Open(filepath.Join(opts.DataDir, "vectors.sqlite"))
	case BackendMilvus:
		if opts.MilvusAddr == "" {
			return nil, fmt.Errorf("milvus backend requires an address")
		}
		return milvus.Open(ctx, opts.MilvusAddr)
	case BackendQdrant:
		if opts.QdrantURL == "" {
			return nil, fmt.Errorf("qdrant backend requires a URL")
		}
		return qdrant.New(qdrant.Config{
			URL:     opts.QdrantURL,
			APIKey:  opts.QdrantAPIKey,
			Timeout: opts.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", opts.Backend)
	}
}
