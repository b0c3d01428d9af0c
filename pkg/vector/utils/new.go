// Package vectorutils builds the configured vector.Driver.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/folio/pkg/vector"
	"github.com/papercomputeco/folio/pkg/vector/chroma"
	"github.com/papercomputeco/folio/pkg/vector/inmemory"
	"github.com/papercomputeco/folio/pkg/vector/pgvector"
	"github.com/papercomputeco/folio/pkg/vector/qdrant"
	"github.com/papercomputeco/folio/pkg/vector/sqlitevec"
)

// Supported provider names.
const (
	ProviderSQLite   = "sqlite"
	ProviderQdrant   = "qdrant"
	ProviderPgvector = "pgvector"
	ProviderChroma   = "chroma"
	ProviderMemory   = "memory"
)

// Providers lists every supported vector store provider.
var Providers = []string{ProviderSQLite, ProviderQdrant, ProviderPgvector, ProviderChroma, ProviderMemory}

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is a file path for sqlite, a connection string for pgvector,
	// and a server address for qdrant and chroma.
	TargetURL  string
	Collection string
	APIKey     string
	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderSQLite:
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
			Collection: o.Collection,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(qdrant.Config{
			Target:     o.TargetURL,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: o.TargetURL,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderMemory:
		return inmemory.NewDriver(inmemory.Config{Dimensions: o.Dimensions}, o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
