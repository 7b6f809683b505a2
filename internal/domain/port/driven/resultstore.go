package driven

import (
	"context"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// ResultStore defines the durable tier of the readiness result cache.
// Load returns nil, nil on a miss. Clear of an absent key is not an error.
type ResultStore interface {
	Load(ctx context.Context, key string) (*model.ReadinessResult, error)
	Save(ctx context.Context, key string, result model.ReadinessResult) error
	Clear(ctx context.Context, key string) error
}
