// Package tracker talks to a Jira-compatible issue tracker: task
// lookup for assessments and posting the assessment verdict back.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/crag-dev/crag/internal/provider"
)

// taskIDPattern matches issue keys like "PROJ-123" or "AB2-9".
var taskIDPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}-\d+\b`)

// AssessmentMarker is the hidden line identifying the assessment
// comment this tool owns on a task. Re-runs replace that comment
// instead of stacking new ones.
const AssessmentMarker = "<!-- crag:assessment -->"

// FindTaskID scans branch name and commit messages for the first
// issue key. Empty when none is found.
func FindTaskID(branch string, commitMessages string) string {
	if m := taskIDPattern.FindString(branch); m != "" {
		return m
	}
	return taskIDPattern.FindString(commitMessages)
}

// Task is the tracker-side description of the work a change claims to
// implement.
type Task struct {
	Key         string
	Summary     string
	Description string
}

// Client is a Jira-compatible REST client.
type Client struct {
	http     *resty.Client
	retryCfg provider.RetryConfig
}

// New creates a Client with basic auth. For Jira Cloud the password is
// an API token.
func New(baseURL, user, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("tracker: base URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("tracker: API token is required")
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if user != "" {
		http.SetBasicAuth(user, token)
	} else {
		http.SetAuthToken(token)
	}

	return &Client{http: http, retryCfg: provider.DefaultRetryConfig()}, nil
}

// GetTask fetches summary and description for an issue key.
func (c *Client) GetTask(key string) (*Task, error) {
	return provider.WithRetry(context.Background(), c.retryCfg, func() (*Task, error) {
		return c.getTask(key)
	})
}

func (c *Client) getTask(key string) (*Task, error) {
	var out struct {
		Key    string `json:"key"`
		Fields struct {
			Summary     string `json:"summary"`
			Description string `json:"description"`
		} `json:"fields"`
	}

	resp, err := c.http.R().
		SetResult(&out).
		SetQueryParam("fields", "summary,description").
		Get("/rest/api/2/issue/" + key)
	if err != nil {
		return nil, fmt.Errorf("tracker: failed to fetch task %s: %w", key, err)
	}
	if resp.IsError() {
		return nil, httpError(resp)
	}

	return &Task{
		Key:         out.Key,
		Summary:     out.Fields.Summary,
		Description: out.Fields.Description,
	}, nil
}

// PostComment writes body as the tool's assessment comment on the
// task. A previous assessment comment, recognized by its marker line,
// is updated in place; otherwise a new comment is created.
func (c *Client) PostComment(key, body string) error {
	return provider.Retry(context.Background(), c.retryCfg, func() error {
		return c.postComment(key, body)
	})
}

func (c *Client) postComment(key, body string) error {
	body = strings.TrimRight(body, "\n") + "\n\n" + AssessmentMarker

	existingID, err := c.findAssessmentComment(key)
	if err != nil {
		return err
	}

	payload := map[string]string{"body": body}
	var resp *resty.Response
	if existingID != "" {
		resp, err = c.http.R().
			SetBody(payload).
			Put(fmt.Sprintf("/rest/api/2/issue/%s/comment/%s", key, existingID))
	} else {
		resp, err = c.http.R().
			SetBody(payload).
			Post(fmt.Sprintf("/rest/api/2/issue/%s/comment", key))
	}
	if err != nil {
		return fmt.Errorf("tracker: failed to post comment on %s: %w", key, err)
	}
	if resp.IsError() {
		return httpError(resp)
	}
	return nil
}

func (c *Client) findAssessmentComment(key string) (string, error) {
	var out struct {
		Comments []struct {
			ID   string `json:"id"`
			Body string `json:"body"`
		} `json:"comments"`
	}

	resp, err := c.http.R().
		SetResult(&out).
		Get(fmt.Sprintf("/rest/api/2/issue/%s/comment", key))
	if err != nil {
		return "", fmt.Errorf("tracker: failed to list comments on %s: %w", key, err)
	}
	if resp.IsError() {
		return "", httpError(resp)
	}

	for _, c := range out.Comments {
		if strings.Contains(c.Body, AssessmentMarker) {
			return c.ID, nil
		}
	}
	return "", nil
}

// httpError maps a tracker error response onto the shared error codes
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
		Provider:   "tracker",
		StatusCode: status,
	}
}
