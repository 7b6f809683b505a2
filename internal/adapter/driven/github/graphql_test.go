package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threadsPage builds a reviewThreads GraphQL response page.
func threadsPage(hasNext bool, endCursor string, resolved ...bool) map[string]any {
	nodes := make([]any, 0, len(resolved))
	for _, r := range resolved {
		nodes = append(nodes, map[string]any{"isResolved": r})
	}
	return map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"reviewThreads": map[string]any{
						"pageInfo": map[string]any{"hasNextPage": hasNext, "endCursor": endCursor},
						"nodes":    nodes,
					},
				},
			},
		},
	}
}

// prDetailOnly serves a minimal pull request detail with no head SHA, so the
// only secondary calls are reviews and GraphQL.
func prDetailOnly(t *testing.T, mux *http.ServeMux) {
	mux.HandleFunc("/repos/owner/repo/pulls/42", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"number": 42, "state": "open", "user": map[string]any{"login": "alice"}})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/42/reviews", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{})
	})
}

func TestUnresolvedThreads_FollowsCursor(t *testing.T) {
	var cursors []any
	mux := http.NewServeMux()
	prDetailOnly(t, mux)
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "owner", req.Variables["owner"])
		assert.Equal(t, "repo", req.Variables["repo"])
		assert.EqualValues(t, 42, req.Variables["pr"])
		cursors = append(cursors, req.Variables["cursor"])

		if req.Variables["cursor"] == nil {
			writeJSON(t, w, threadsPage(true, "c1", false, true, false))
			return
		}
		writeJSON(t, w, threadsPage(false, "c2", false, true))
	})

	client := newTestClient(t, mux, "test-token")
	pr, err := client.FetchPullRequest(context.Background(), "owner/repo", 42)

	require.NoError(t, err)
	assert.Equal(t, 3, pr.OpenConversations)
	assert.Equal(t, []any{nil, "c1"}, cursors)
}

func TestUnresolvedThreads_GraphQLErrorsDegradeToZero(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "graphql errors",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, map[string]any{"errors": []any{map[string]any{"message": "Could not resolve to a Repository"}}})
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			prDetailOnly(t, mux)
			mux.HandleFunc("/graphql", tt.handler)

			client := newTestClient(t, mux, "test-token")
			pr, err := client.FetchPullRequest(context.Background(), "owner/repo", 42)

			require.NoError(t, err)
			assert.Equal(t, 0, pr.OpenConversations)
		})
	}
}
