package driven

import (
	"context"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// PRStore defines the driven port for tracked pull request persistence.
// Get methods return nil, nil when the pull request is not tracked.
type PRStore interface {
	// Upsert inserts or updates the pull request keyed by repository and
	// number and returns its stable ID.
	Upsert(ctx context.Context, pr model.PullRequest) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.PullRequest, error)
	GetByNumber(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error)
	// ListAll returns tracked pull requests, filtered by repository when
	// repoFullName is non-empty.
	ListAll(ctx context.Context, repoFullName string) ([]model.PullRequest, error)
	ListRepositories(ctx context.Context) ([]model.Repository, error)
	UpdateReviewStatus(ctx context.Context, id int64, status model.ReviewStatus) error
	Delete(ctx context.Context, id int64) error
}
