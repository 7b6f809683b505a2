package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

func makePR(repoFullName string, number int) model.PullRequest {
	now := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	return model.PullRequest{
		RepoFullName:      repoFullName,
		Number:            number,
		URL:               "https://github.com/" + repoFullName + "/pull/1",
		Title:             "Add README",
		Author:            "alice",
		State:             model.PRStateOpen,
		MergeableState:    model.MergeableClean,
		FilesChanged:      3,
		ChecksPassed:      4,
		ChecksFailed:      1,
		ChecksSkipped:     2,
		OpenConversations: 1,
		HeadSHA:           "abc123",
		ReviewStatus:      model.ReviewStatusPending,
		UpdatedAt:         now,
		LastRefreshedAt:   now.Add(time.Minute),
	}
}

func TestPRRepo_UpsertInsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR("octocat/hello-world", 42)
	id, err := repo.Upsert(ctx, pr)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	pr.ID = id
	assert.Equal(t, pr, *got)

	byNumber, err := repo.GetByNumber(ctx, "octocat/hello-world", 42)
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, id, byNumber.ID)
}

func TestPRRepo_UpsertUpdateKeepsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, makePR("octocat/hello-world", 42))
	require.NoError(t, err)

	updated := makePR("octocat/hello-world", 42)
	updated.Title = "Add README and LICENSE"
	updated.IsDraft = true
	updated.ReviewStatus = model.ReviewStatusApproved

	id2, err := repo.Upsert(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Add README and LICENSE", got.Title)
	assert.True(t, got.IsDraft)
	assert.Equal(t, model.ReviewStatusApproved, got.ReviewStatus)
}

func TestPRRepo_PendingUpsertKeepsStoredVerdict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR("octocat/hello-world", 42)
	pr.ReviewStatus = model.ReviewStatusChangesRequested
	id, err := repo.Upsert(ctx, pr)
	require.NoError(t, err)

	pr.ReviewStatus = model.ReviewStatusPending
	_, err = repo.Upsert(ctx, pr)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusChangesRequested, got.ReviewStatus)
}

func TestPRRepo_EmptyFieldsGetDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, model.PullRequest{
		RepoFullName: "octocat/hello-world",
		Number:       1,
		State:        model.PRStateOpen,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusPending, got.ReviewStatus)
	assert.Equal(t, model.MergeableUnknown, got.MergeableState)
	assert.True(t, got.UpdatedAt.IsZero())
	assert.True(t, got.LastRefreshedAt.IsZero())
}

func TestPRRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByNumber(ctx, "octocat/hello-world", 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPRRepo_ListAllAndRepositories(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	for _, pr := range []model.PullRequest{
		makePR("octocat/hello-world", 7),
		makePR("acme/widgets", 3),
		makePR("octocat/hello-world", 2),
	} {
		_, err := repo.Upsert(ctx, pr)
		require.NoError(t, err)
	}

	all, err := repo.ListAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "acme/widgets", all[0].RepoFullName)
	assert.Equal(t, 2, all[1].Number)
	assert.Equal(t, 7, all[2].Number)

	filtered, err := repo.ListAll(ctx, "octocat/hello-world")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	none, err := repo.ListAll(ctx, "nobody/nothing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	repos, err := repo.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Repository{
		{FullName: "acme/widgets", TrackedPRs: 1},
		{FullName: "octocat/hello-world", TrackedPRs: 2},
	}, repos)
}

func TestPRRepo_UpdateReviewStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, makePR("octocat/hello-world", 42))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateReviewStatus(ctx, id, model.ReviewStatusApproved))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusApproved, got.ReviewStatus)

	err = repo.UpdateReviewStatus(ctx, 999, model.ReviewStatusApproved)
	require.ErrorIs(t, err, model.ErrPRNotFound)
}

func TestPRRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, makePR("octocat/hello-world", 42))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.Delete(ctx, id)
	require.ErrorIs(t, err, model.ErrPRNotFound)
}
