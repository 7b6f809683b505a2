package httphandler_test

import (
	"context"
	"sort"
	"sync"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/paging"
)

// --- Mock implementations ---

type mockGitHubClient struct {
	fetchPR  *model.PullRequest
	fetchErr error
	listOpen paging.Result[model.PullRequest]

	commits        []model.RawCommit
	reviews        []model.RawReview
	reviewComments []model.RawReviewComment
	issueComments  []model.RawIssueComment
}

func (m *mockGitHubClient) FetchPullRequest(_ context.Context, _ string, _ int) (*model.PullRequest, error) {
	if m.fetchErr != nil || m.fetchPR == nil {
		return nil, m.fetchErr
	}
	pr := *m.fetchPR
	return &pr, nil
}

func (m *mockGitHubClient) ListOpenPullRequests(_ context.Context, _ string, _ int) (paging.Result[model.PullRequest], error) {
	return m.listOpen, nil
}

func (m *mockGitHubClient) FetchCommits(_ context.Context, _ string, _ int) (paging.Result[model.RawCommit], error) {
	return paging.Result[model.RawCommit]{Items: m.commits}, nil
}

func (m *mockGitHubClient) FetchReviews(_ context.Context, _ string, _ int) (paging.Result[model.RawReview], error) {
	return paging.Result[model.RawReview]{Items: m.reviews}, nil
}

func (m *mockGitHubClient) FetchReviewComments(_ context.Context, _ string, _ int) (paging.Result[model.RawReviewComment], error) {
	return paging.Result[model.RawReviewComment]{Items: m.reviewComments}, nil
}

func (m *mockGitHubClient) FetchIssueComments(_ context.Context, _ string, _ int) (paging.Result[model.RawIssueComment], error) {
	return paging.Result[model.RawIssueComment]{Items: m.issueComments}, nil
}

type mockPRStore struct {
	mu     sync.Mutex
	prs    map[int64]model.PullRequest
	nextID int64
}

func newMockPRStore(prs ...model.PullRequest) *mockPRStore {
	m := &mockPRStore{prs: make(map[int64]model.PullRequest)}
	for _, pr := range prs {
		m.prs[pr.ID] = pr
		m.nextID = max(m.nextID, pr.ID)
	}
	return m
}

func (m *mockPRStore) Upsert(_ context.Context, pr model.PullRequest) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.prs {
		if existing.RepoFullName == pr.RepoFullName && existing.Number == pr.Number {
			pr.ID = id
			m.prs[id] = pr
			return id, nil
		}
	}
	m.nextID++
	pr.ID = m.nextID
	m.prs[pr.ID] = pr
	return pr.ID, nil
}

func (m *mockPRStore) GetByID(_ context.Context, id int64) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pr, ok := m.prs[id]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

func (m *mockPRStore) GetByNumber(_ context.Context, repo string, number int) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pr := range m.prs {
		if pr.RepoFullName == repo && pr.Number == number {
			return &pr, nil
		}
	}
	return nil, nil
}

func (m *mockPRStore) ListAll(_ context.Context, repo string) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.PullRequest{}
	for _, pr := range m.prs {
		if repo == "" || pr.RepoFullName == repo {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPRStore) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	prs, _ := m.ListAll(ctx, "")
	counts := map[string]int{}
	for _, pr := range prs {
		counts[pr.RepoFullName]++
	}
	repos := []model.Repository{}
	for name, n := range counts {
		repos = append(repos, model.Repository{FullName: name, TrackedPRs: n})
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].FullName < repos[j].FullName })
	return repos, nil
}

func (m *mockPRStore) UpdateReviewStatus(_ context.Context, id int64, status model.ReviewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pr := m.prs[id]
	pr.ReviewStatus = status
	m.prs[id] = pr
	return nil
}

func (m *mockPRStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.prs, id)
	return nil
}

type mockResultStore struct {
	mu    sync.Mutex
	items map[string]model.ReadinessResult
}

func (m *mockResultStore) Load(_ context.Context, key string) (*model.ReadinessResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockResultStore) Save(_ context.Context, key string, result model.ReadinessResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = result
	return nil
}

func (m *mockResultStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}
