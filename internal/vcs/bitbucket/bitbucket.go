// Package bitbucket implements vcs.VCSProvider against the Bitbucket
// Cloud 2.0 API.
package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/crag-dev/crag/internal/provider"
	"github.com/crag-dev/crag/internal/vcs"
)

// Provider implements vcs.VCSProvider for Bitbucket Cloud.
type Provider struct {
	client   *resty.Client
	baseURL  string
	retryCfg provider.RetryConfig
}

func init() {
	vcs.Register("bitbucket", NewProvider)
}

// NewProvider creates a Bitbucket VCSProvider. The token is an app
// password or access token sent as a bearer credential.
func NewProvider(token, baseURL string) (vcs.VCSProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("bitbucket: token is required")
	}
	if baseURL == "" {
		baseURL = "https://api.bitbucket.org/2.0"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")

	return &Provider{
		client:   client,
		baseURL:  baseURL,
		retryCfg: provider.DefaultRetryConfig(),
	}, nil
}

func (p *Provider) Info() vcs.ProviderInfo {
	return vcs.ProviderInfo{Name: "bitbucket", BaseURL: p.baseURL}
}

func (p *Provider) Validate() error {
	return nil
}

type prPayload struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"description"`
	State  string `json:"state"`
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
	Source struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
		Commit struct {
			Hash string `json:"hash"`
		} `json:"commit"`
	} `json:"source"`
	Destination struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"destination"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

func (p *Provider) FetchPR(repo string, number int64) (*vcs.PullRequest, error) {
	return provider.WithRetry(context.Background(), p.retryCfg, func() (*vcs.PullRequest, error) {
		return p.fetchPR(repo, number)
	})
}

func (p *Provider) fetchPR(repo string, number int64) (*vcs.PullRequest, error) {
	var pr prPayload
	resp, err := p.client.R().
		SetResult(&pr).
		Get(fmt.Sprintf("/repositories/%s/pullrequests/%d", repo, number))
	if err != nil {
		return nil, fmt.Errorf("bitbucket: failed to fetch PR #%d: %w", number, err)
	}
	if resp.IsError() {
		return nil, httpError(resp)
	}

	return &vcs.PullRequest{
		Number:       pr.ID,
		Title:        pr.Title,
		Description:  pr.Body,
		Author:       pr.Author.DisplayName,
		SourceBranch: pr.Source.Branch.Name,
		TargetBranch: pr.Destination.Branch.Name,
		State:        pr.State,
		WebURL:       pr.Links.HTML.Href,
		HeadSHA:      pr.Source.Commit.Hash,
	}, nil
}

type commentPayload struct {
	ID      int64 `json:"id"`
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
	Inline struct {
		Path string `json:"path"`
		To   int    `json:"to"`
	} `json:"inline"`
	User struct {
		DisplayName string `json:"display_name"`
	} `json:"user"`
	Deleted bool `json:"deleted"`
}

func (p *Provider) ListComments(repo string, number int64) ([]vcs.Comment, error) {
	var all []vcs.Comment
	endpoint := fmt.Sprintf("/repositories/%s/pullrequests/%d/comments?pagelen=100", repo, number)

	for endpoint != "" {
		var page struct {
			Values []commentPayload `json:"values"`
			Next   string           `json:"next"`
		}
		err := provider.Retry(context.Background(), p.retryCfg, func() error {
			page.Values = page.Values[:0]
			resp, err := p.client.R().
				SetResult(&page).
				Get(endpoint)
			if err != nil {
				return err
			}
			if resp.IsError() {
				return httpError(resp)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("bitbucket: failed to list PR comments: %w", err)
		}

		for _, c := range page.Values {
			if c.Deleted {
				continue
			}
			all = append(all, vcs.Comment{
				ID:     c.ID,
				Author: c.User.DisplayName,
				Body:   c.Content.Raw,
				Path:   c.Inline.Path,
				Line:   c.Inline.To,
			})
		}
		endpoint = page.Next
	}

	return all, nil
}

func (p *Provider) CreateComment(repo string, number int64, anchor vcs.Anchor, body string) error {
	payload := map[string]interface{}{
		"content": map[string]string{"raw": body},
	}
	if anchor.Path != "" {
		inline := map[string]interface{}{"path": anchor.Path}
		if anchor.Line > 0 {
			inline["to"] = anchor.Line
		}
		payload["inline"] = inline
	}

	err := provider.Retry(context.Background(), p.retryCfg, func() error {
		resp, err := p.client.R().
			SetBody(payload).
			Post(fmt.Sprintf("/repositories/%s/pullrequests/%d/comments", repo, number))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return httpError(resp)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bitbucket: failed to post comment: %w", err)
	}
	return nil
}

func (p *Provider) DeleteComment(repo string, number int64, commentID int64) error {
	err := provider.Retry(context.Background(), p.retryCfg, func() error {
		resp, err := p.client.R().
			Delete(fmt.Sprintf("/repositories/%s/pullrequests/%d/comments/%d", repo, number, commentID))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return httpError(resp)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bitbucket: failed to delete comment %d: %w", commentID, err)
	}
	return nil
}

// FormatSuggestionBlock returns a plain fenced block; Bitbucket has no
// native suggestion syntax.
func (p *Provider) FormatSuggestionBlock(suggestion string) string {
	return "```\n" + suggestion + "\n```"
}

// httpError maps a Bitbucket error response onto the shared error codes
// so that the retry helper can tell transient failures apart.
func httpError(resp *resty.Response) error {
	status := resp.StatusCode()

	var code provider.ErrorCode
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = provider.ErrCodeAuthentication
	case status == http.StatusTooManyRequests:
		code = provider.ErrCodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = provider.ErrCodeTimeout
	case status >= 500:
		code = provider.ErrCodeProviderUnavailable
	default:
		code = provider.ErrCodeInvalidRequest
	}

	return &provider.ProviderError{
		Code:       code,
		Message:    strings.TrimSpace(string(resp.Body())),
		Provider:   "bitbucket",
		StatusCode: status,
	}
}
