package application_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/paging"
)

var errBoom = errors.New("boom")

// --- GitHub client ---

type mockGitHubClient struct {
	mu    sync.Mutex
	calls int

	fetchPR        func(repo string, number int) (*model.PullRequest, error)
	listOpen       func(repo string, maxItems int) (paging.Result[model.PullRequest], error)
	commits        paging.Result[model.RawCommit]
	reviews        paging.Result[model.RawReview]
	reviewComments paging.Result[model.RawReviewComment]
	issueComments  paging.Result[model.RawIssueComment]

	commitsErr        error
	reviewsErr        error
	reviewCommentsErr error
	issueCommentsErr  error
}

func (m *mockGitHubClient) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockGitHubClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockGitHubClient) FetchPullRequest(_ context.Context, repo string, number int) (*model.PullRequest, error) {
	m.count()
	return m.fetchPR(repo, number)
}

func (m *mockGitHubClient) ListOpenPullRequests(_ context.Context, repo string, maxItems int) (paging.Result[model.PullRequest], error) {
	m.count()
	return m.listOpen(repo, maxItems)
}

func (m *mockGitHubClient) FetchCommits(_ context.Context, _ string, _ int) (paging.Result[model.RawCommit], error) {
	m.count()
	return m.commits, m.commitsErr
}

func (m *mockGitHubClient) FetchReviews(_ context.Context, _ string, _ int) (paging.Result[model.RawReview], error) {
	m.count()
	return m.reviews, m.reviewsErr
}

func (m *mockGitHubClient) FetchReviewComments(_ context.Context, _ string, _ int) (paging.Result[model.RawReviewComment], error) {
	m.count()
	return m.reviewComments, m.reviewCommentsErr
}

func (m *mockGitHubClient) FetchIssueComments(_ context.Context, _ string, _ int) (paging.Result[model.RawIssueComment], error) {
	m.count()
	return m.issueComments, m.issueCommentsErr
}

// --- PR store ---

type statusUpdate struct {
	ID     int64
	Status model.ReviewStatus
}

type mockPRStore struct {
	mu            sync.Mutex
	prs           map[int64]model.PullRequest
	nextID        int64
	upserts       []model.PullRequest
	deletes       []int64
	statusUpdates []statusUpdate
	listFilter    string
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

	m.upserts = append(m.upserts, pr)
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

	m.listFilter = repo
	var out []model.PullRequest
	for _, pr := range m.prs {
		if repo == "" || pr.RepoFullName == repo {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mockPRStore) ListRepositories(_ context.Context) ([]model.Repository, error) {
	return []model.Repository{{FullName: "octocat/hello-world", TrackedPRs: 1}}, nil
}

func (m *mockPRStore) UpdateReviewStatus(_ context.Context, id int64, status model.ReviewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statusUpdates = append(m.statusUpdates, statusUpdate{ID: id, Status: status})
	pr := m.prs[id]
	pr.ReviewStatus = status
	m.prs[id] = pr
	return nil
}

func (m *mockPRStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes = append(m.deletes, id)
	delete(m.prs, id)
	return nil
}

// --- Result store ---

type mockResultStore struct {
	mu      sync.Mutex
	items   map[string]model.ReadinessResult
	loads   int
	saves   int
	clears  int
	loadErr error
	saveErr error

	// When set, Save signals saving and then blocks until gate is closed.
	saving chan struct{}
	gate   chan struct{}
}

func newMockResultStore() *mockResultStore {
	return &mockResultStore{items: make(map[string]model.ReadinessResult)}
}

func (m *mockResultStore) Load(_ context.Context, key string) (*model.ReadinessResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	r, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockResultStore) Save(_ context.Context, key string, result model.ReadinessResult) error {
	if m.gate != nil {
		m.saving <- struct{}{}
		<-m.gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[key] = result
	return nil
}

func (m *mockResultStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clears++
	delete(m.items, key)
	return nil
}

func (m *mockResultStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

func (m *mockResultStore) counts() (loads, saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads, m.saves, m.clears
}
