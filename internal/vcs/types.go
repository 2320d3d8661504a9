// Package vcs abstracts the review-platform comment API the comment
// lifecycle manager runs against.
package vcs

// VCSProvider is a platform that hosts pull requests and their review
// comments (GitHub, Bitbucket, ...).
type VCSProvider interface {
	Info() ProviderInfo
	FetchPR(repo string, number int64) (*PullRequest, error)
	ListComments(repo string, number int64) ([]Comment, error)
	CreateComment(repo string, number int64, anchor Anchor, body string) error
	DeleteComment(repo string, number int64, commentID int64) error
	FormatSuggestionBlock(suggestion string) string
	Validate() error
}

// ProviderInfo describes a VCS provider.
type ProviderInfo struct {
	Name    string
	BaseURL string
}

// PullRequest holds platform-agnostic pull request metadata.
type PullRequest struct {
	Number       int64
	Title        string
	Description  string
	Author       string
	SourceBranch string
	TargetBranch string
	State        string
	WebURL       string
	HeadSHA      string
}

// Anchor places a comment on a file, optionally on a line of the new
// version. Line 0 means a file-level comment.
type Anchor struct {
	Path string
	Line int
}

// Comment is one existing review comment on a pull request.
type Comment struct {
	ID     int64
	Author string
	Body   string
	Path   string
	Line   int
}
