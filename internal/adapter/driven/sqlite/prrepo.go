package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

const prColumns = `id, repo_full_name, number, url, title, author, state, is_merged, is_draft,
	mergeable_state, files_changed, checks_passed, checks_failed, checks_skipped,
	open_conversations, head_sha, review_status, updated_at, last_refreshed_at`

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

// Upsert inserts or updates a pull request keyed by repository and number and
// returns its row ID. A pending review status never overwrites a stored
// verdict, so bulk imports keep what earlier refreshes learned.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) (int64, error) {
	const query = `
		INSERT INTO pull_requests (
			repo_full_name, number, url, title, author, state, is_merged, is_draft,
			mergeable_state, files_changed, checks_passed, checks_failed, checks_skipped,
			open_conversations, head_sha, review_status, updated_at, last_refreshed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_full_name, number) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			author = excluded.author,
			state = excluded.state,
			is_merged = excluded.is_merged,
			is_draft = excluded.is_draft,
			mergeable_state = excluded.mergeable_state,
			files_changed = excluded.files_changed,
			checks_passed = excluded.checks_passed,
			checks_failed = excluded.checks_failed,
			checks_skipped = excluded.checks_skipped,
			open_conversations = excluded.open_conversations,
			head_sha = excluded.head_sha,
			review_status = CASE
				WHEN excluded.review_status = 'pending' THEN pull_requests.review_status
				ELSE excluded.review_status
			END,
			updated_at = excluded.updated_at,
			last_refreshed_at = excluded.last_refreshed_at
		RETURNING id
	`

	status := pr.ReviewStatus
	if status == "" {
		status = model.ReviewStatusPending
	}
	mergeable := pr.MergeableState
	if mergeable == "" {
		mergeable = model.MergeableUnknown
	}

	var id int64
	err := r.db.Writer.QueryRowContext(ctx, query,
		pr.RepoFullName, pr.Number, pr.URL, pr.Title, pr.Author, string(pr.State),
		boolToInt(pr.IsMerged), boolToInt(pr.IsDraft), string(mergeable), pr.FilesChanged,
		pr.ChecksPassed, pr.ChecksFailed, pr.ChecksSkipped, pr.OpenConversations,
		pr.HeadSHA, string(status), formatTime(pr.UpdatedAt), formatTime(pr.LastRefreshedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert pull request %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}

	return id, nil
}

// GetByID retrieves a tracked pull request. Returns nil, nil if it does not exist.
func (r *PRRepo) GetByID(ctx context.Context, id int64) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE id = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %d: %w", id, err)
	}

	return pr, nil
}

// GetByNumber retrieves a single pull request by repository and number.
// Returns nil, nil if the pull request does not exist.
func (r *PRRepo) GetByNumber(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE repo_full_name = ? AND number = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, repoFullName, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %s#%d: %w", repoFullName, number, err)
	}

	return pr, nil
}

// ListAll returns tracked pull requests ordered by repository then number,
// restricted to one repository when repoFullName is set.
func (r *PRRepo) ListAll(ctx context.Context, repoFullName string) ([]model.PullRequest, error) {
	if repoFullName == "" {
		return r.queryPRs(ctx, `SELECT `+prColumns+` FROM pull_requests ORDER BY repo_full_name, number`)
	}
	return r.queryPRs(ctx,
		`SELECT `+prColumns+` FROM pull_requests WHERE repo_full_name = ? ORDER BY number`,
		repoFullName)
}

// ListRepositories returns every repository with at least one tracked pull request.
func (r *PRRepo) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	const query = `
		SELECT repo_full_name, COUNT(*)
		FROM pull_requests
		GROUP BY repo_full_name
		ORDER BY repo_full_name
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query repositories: %w", err)
	}
	defer rows.Close()

	repos := []model.Repository{}
	for rows.Next() {
		var repo model.Repository
		if err := rows.Scan(&repo.FullName, &repo.TrackedPRs); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// UpdateReviewStatus stores a new aggregate review verdict.
func (r *PRRepo) UpdateReviewStatus(ctx context.Context, id int64, status model.ReviewStatus) error {
	const query = `UPDATE pull_requests SET review_status = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("update review status of PR %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update review status of PR %d: %w", id, model.ErrPRNotFound)
	}

	return nil
}

// Delete stops tracking a pull request. Returns ErrPRNotFound if it does not exist.
func (r *PRRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM pull_requests WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete PR %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete PR %d: %w", id, model.ErrPRNotFound)
	}

	return nil
}

func (r *PRRepo) queryPRs(ctx context.Context, query string, args ...any) ([]model.PullRequest, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	prs := []model.PullRequest{}
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var (
		pr                   model.PullRequest
		state, mergeable     string
		reviewStatus         string
		isMerged, isDraft    int
		updatedAt, refreshed string
	)

	err := s.Scan(
		&pr.ID, &pr.RepoFullName, &pr.Number, &pr.URL, &pr.Title, &pr.Author,
		&state, &isMerged, &isDraft, &mergeable, &pr.FilesChanged,
		&pr.ChecksPassed, &pr.ChecksFailed, &pr.ChecksSkipped, &pr.OpenConversations,
		&pr.HeadSHA, &reviewStatus, &updatedAt, &refreshed,
	)
	if err != nil {
		return nil, err
	}

	pr.State = model.PRState(state)
	pr.IsMerged = isMerged != 0
	pr.IsDraft = isDraft != 0
	pr.MergeableState = model.MergeableState(mergeable)
	pr.ReviewStatus = model.ReviewStatus(reviewStatus)

	pr.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	pr.LastRefreshedAt, err = parseTime(refreshed)
	if err != nil {
		return nil, fmt.Errorf("parse last_refreshed_at: %w", err)
	}

	return &pr, nil
}
