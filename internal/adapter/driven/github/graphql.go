package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ericfisherdev/prready/internal/domain/paging"
)

// graphqlHTTPClient is the HTTP client used for GraphQL requests.
// It enforces a 30-second timeout as a safety net alongside context cancellation.
var graphqlHTTPClient = &http.Client{Timeout: 30 * time.Second}

const reviewThreadsQuery = `query($owner: String!, $repo: String!, $pr: Int!, $cursor: String) {
	repository(owner: $owner, name: $repo) {
		pullRequest(number: $pr) {
			reviewThreads(first: 100, after: $cursor) {
				pageInfo {
					hasNextPage
					endCursor
				}
				nodes {
					isResolved
				}
			}
		}
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type reviewThreadsResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						IsResolved bool `json:"isResolved"`
					} `json:"nodes"`
				} `json:"reviewThreads"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// fetchUnresolvedThreads counts the unresolved review threads of a pull
// request, following the GraphQL cursor to the last page. The GraphQL API
// requires authentication, so without a token the count is 0.
func (c *Client) fetchUnresolvedThreads(ctx context.Context, owner, repo string, number int) (int, error) {
	if c.token == "" {
		return 0, nil
	}

	fetch := func(ctx context.Context, cursor string) (paging.Page[bool], error) {
		vars := map[string]any{"owner": owner, "repo": repo, "pr": number, "cursor": nil}
		if cursor != "" {
			vars["cursor"] = cursor
		}

		var resp reviewThreadsResponse
		err := c.withRetry(ctx, owner+"/"+repo+"/review-threads", func() error {
			return c.graphqlQuery(ctx, reviewThreadsQuery, vars, &resp)
		})
		if err != nil {
			return paging.Page[bool]{}, err
		}
		if len(resp.Errors) > 0 {
			return paging.Page[bool]{}, fmt.Errorf("graphql: %s", resp.Errors[0].Message)
		}

		threads := resp.Data.Repository.PullRequest.ReviewThreads
		resolved := make([]bool, 0, len(threads.Nodes))
		for _, t := range threads.Nodes {
			resolved = append(resolved, t.IsResolved)
		}
		return paging.Page[bool]{
			Items:   resolved,
			Next:    threads.PageInfo.EndCursor,
			HasNext: threads.PageInfo.HasNextPage && threads.PageInfo.EndCursor != "",
		}, nil
	}

	res, err := paging.FetchAll(ctx, fetch)
	if err != nil {
		return 0, fmt.Errorf("counting review threads for %s/%s#%d: %w", owner, repo, number, err)
	}

	unresolved := 0
	for _, resolved := range res.Items {
		if !resolved {
			unresolved++
		}
	}
	return unresolved, nil
}

// graphqlQuery posts query to the GraphQL endpoint and decodes the body into out.
// A non-200 status is an error; GraphQL-level errors are left for the caller.
func (c *Client) graphqlQuery(ctx context.Context, query string, vars map[string]any, out any) error {
	bodyBytes, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshaling graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating graphql request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := graphqlHTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &graphqlStatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding graphql response: %w", err)
	}
	return nil
}

// graphqlStatusError reports a non-200 GraphQL HTTP response.
type graphqlStatusError struct {
	StatusCode int
}

func (e *graphqlStatusError) Error() string {
	return fmt.Sprintf("graphql: HTTP %d", e.StatusCode)
}
