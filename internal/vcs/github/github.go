// Package github implements vcs.VCSProvider against the GitHub REST
// API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crag-dev/crag/internal/provider"
	"github.com/crag-dev/crag/internal/vcs"
)

// Provider implements vcs.VCSProvider for GitHub.
type Provider struct {
	client   *http.Client
	baseURL  string
	token    string
	retryCfg provider.RetryConfig
}

func init() {
	vcs.Register("github", NewProvider)
}

// NewProvider creates a GitHub VCSProvider.
func NewProvider(token, baseURL string) (vcs.VCSProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	return &Provider{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		retryCfg: provider.DefaultRetryConfig(),
	}, nil
}

func (p *Provider) Info() vcs.ProviderInfo {
	return vcs.ProviderInfo{Name: "github", BaseURL: p.baseURL}
}

func (p *Provider) Validate() error {
	if p.token == "" {
		return fmt.Errorf("github: token is required")
	}
	return nil
}

func (p *Provider) FetchPR(repo string, number int64) (*vcs.PullRequest, error) {
	return provider.WithRetry(context.Background(), p.retryCfg, func() (*vcs.PullRequest, error) {
		return p.fetchPR(repo, number)
	})
}

func (p *Provider) fetchPR(repo string, number int64) (*vcs.PullRequest, error) {
	var pr struct {
		Number int64  `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
	}

	if err := p.getJSON(context.Background(), fmt.Sprintf("/repos/%s/pulls/%d", repo, number), &pr); err != nil {
		return nil, fmt.Errorf("github: failed to fetch PR #%d: %w", number, err)
	}

	return &vcs.PullRequest{
		Number:       pr.Number,
		Title:        pr.Title,
		Description:  pr.Body,
		Author:       pr.User.Login,
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		State:        pr.State,
		WebURL:       pr.HTMLURL,
		HeadSHA:      pr.Head.SHA,
	}, nil
}

func (p *Provider) ListComments(repo string, number int64) ([]vcs.Comment, error) {
	type reviewComment struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		Path string `json:"path"`
		Line int    `json:"line"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	}

	var all []vcs.Comment
	page := 1
	for {
		endpoint := fmt.Sprintf("/repos/%s/pulls/%d/comments?per_page=100&page=%d", repo, number, page)
		var comments []reviewComment
		resp, err := provider.WithRetry(context.Background(), p.retryCfg, func() (*http.Response, error) {
			comments = comments[:0]
			return p.getJSONWithResponse(context.Background(), endpoint, &comments)
		})
		if err != nil {
			return nil, fmt.Errorf("github: failed to list PR comments: %w", err)
		}

		for _, c := range comments {
			all = append(all, vcs.Comment{
				ID:     c.ID,
				Author: c.User.Login,
				Body:   c.Body,
				Path:   c.Path,
				Line:   c.Line,
			})
		}

		if !hasNextPage(resp.Header.Get("Link")) {
			break
		}
		page++
	}

	return all, nil
}

// CreateComment posts a finding on the PR diff. Anchors without a line
// become file-level review comments so that ListComments and
// DeleteComment see them on later runs.
func (p *Provider) CreateComment(repo string, number int64, anchor vcs.Anchor, body string) error {
	return provider.Retry(context.Background(), p.retryCfg, func() error {
		pr, err := p.fetchPR(repo, number)
		if err != nil {
			return err
		}

		payload := map[string]interface{}{
			"body":      body,
			"commit_id": pr.HeadSHA,
			"path":      anchor.Path,
		}
		if anchor.Line > 0 {
			payload["line"] = anchor.Line
			payload["side"] = "RIGHT"
		} else {
			payload["subject_type"] = "file"
		}

		if err := p.postJSON(context.Background(),
			fmt.Sprintf("/repos/%s/pulls/%d/comments", repo, number),
			payload,
			nil,
		); err != nil {
			return fmt.Errorf("github: failed to post review comment: %w", err)
		}
		return nil
	})
}

func (p *Provider) DeleteComment(repo string, _ int64, commentID int64) error {
	return provider.Retry(context.Background(), p.retryCfg, func() error {
		if err := p.doDelete(context.Background(),
			fmt.Sprintf("/repos/%s/pulls/comments/%d", repo, commentID),
		); err != nil {
			return fmt.Errorf("github: failed to delete comment %d: %w", commentID, err)
		}
		return nil
	})
}

// FormatSuggestionBlock returns a GitHub-native suggestion code block.
func (p *Provider) FormatSuggestionBlock(suggestion string) string {
	return "```suggestion\n" + suggestion + "\n```"
}

func (p *Provider) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	_, err := p.getJSONWithResponse(ctx, endpoint, out)
	return err
}

func (p *Provider) getJSONWithResponse(ctx context.Context, endpoint string, out interface{}) (*http.Response, error) {
	req, err := p.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return resp, classifyHTTPError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, err
		}
	}

	return resp, nil
}

func (p *Provider) postJSON(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	var buf io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := p.newRequest(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return classifyHTTPError(resp.StatusCode, body)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (p *Provider) doDelete(ctx context.Context, endpoint string) error {
	req, err := p.newRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return classifyHTTPError(resp.StatusCode, body)
	}
	return nil
}

func (p *Provider) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(p.baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "crag-cli")
	req.Header.Set("Authorization", "Bearer "+p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// classifyHTTPError maps a GitHub error response onto the shared error
// codes so that the retry helper can tell transient failures apart.
func classifyHTTPError(statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))

	var code provider.ErrorCode
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		code = provider.ErrCodeAuthentication
	case statusCode == http.StatusTooManyRequests:
		code = provider.ErrCodeRateLimit
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		code = provider.ErrCodeTimeout
	case statusCode >= 500:
		code = provider.ErrCodeProviderUnavailable
	default:
		code = provider.ErrCodeInvalidRequest
	}

	return &provider.ProviderError{
		Code:       code,
		Message:    msg,
		Provider:   "github",
		StatusCode: statusCode,
	}
}

func hasNextPage(linkHeader string) bool {
	if linkHeader == "" {
		return false
	}
	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		if strings.Contains(part, `rel="next"`) {
			return true
		}
	}
	return false
}
