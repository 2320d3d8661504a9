// Package contextbuilder assembles the minimal file context a review
// needs. It seeds from the changeset plus static-analysis candidates,
// then negotiates additional files with the reasoning backend over a
// bounded number of rounds.
//
// The backend is untrusted: termination is enforced locally through the
// file budget, the round ceiling, and a zero-progress rule, never by
// trusting the backend to stop asking.
package contextbuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/crag-dev/crag/internal/diffparse"
	"github.com/crag-dev/crag/internal/filter"
	"github.com/crag-dev/crag/internal/provider"
)

// Origin records how a file entered the context.
type Origin string

const (
	OriginChanged          Origin = "changed"
	OriginStaticDependency Origin = "static-dependency"
	OriginLLMRequested     Origin = "llm-requested"
)

// ContextFile is one file the reviewer will see.
type ContextFile struct {
	Path    string
	Content string
	Origin  Origin
}

// State is the context being built. Files are keyed by path; Order
// preserves insertion order so prompts are deterministic.
type State struct {
	Round int
	Files map[string]ContextFile
	Order []string
	// Unsatisfiable lists requested paths that could not be resolved
	// (untracked, filtered, or unreadable). They are never re-requested.
	Unsatisfiable []string
	Satisfied     bool
	// Degraded means the round ceiling was hit while the backend still
	// wanted more files. The review proceeds anyway.
	Degraded bool
}

func newState() *State {
	return &State{Files: make(map[string]ContextFile)}
}

func (s *State) add(f ContextFile) bool {
	if _, ok := s.Files[f.Path]; ok {
		return false
	}
	s.Files[f.Path] = f
	s.Order = append(s.Order, f.Path)
	return true
}

// ContextFiles returns the files in insertion order.
func (s *State) ContextFiles() []ContextFile {
	out := make([]ContextFile, 0, len(s.Order))
	for _, p := range s.Order {
		out = append(out, s.Files[p])
	}
	return out
}

// Builder runs the context negotiation. ReadFile reports ok=false for
// paths with no readable content, which is a normal outcome for
// deleted files.
type Builder struct {
	Provider  provider.AIProvider
	Model     string
	MaxFiles  int
	MaxRounds int
	Rules     *filter.Rules
	ReadFile  func(path string) (string, bool)
	Tracked   []string
	// Trace, when set, receives one line per builder decision.
	Trace func(format string, args ...any)
}

// Input is everything the builder knows about the change under review.
type Input struct {
	Changeset        *diffparse.Changeset
	Diff             string
	CommitMessages   string
	StaticCandidates []string // best-first, from the analyzer
}

func (b *Builder) trace(format string, args ...any) {
	if b.Trace != nil {
		b.Trace(format, args...)
	}
}

// Build seeds the context and runs ask rounds until the backend says
// it has enough, a round adds nothing new, the budget fills up, or the
// round ceiling is reached. Every termination path is a success.
func (b *Builder) Build(ctx context.Context, in Input) (*State, error) {
	state := newState()
	tracked := make(map[string]struct{}, len(b.Tracked))
	for _, t := range b.Tracked {
		tracked[t] = struct{}{}
	}

	b.seed(state, in)

	if len(state.Files) >= b.MaxFiles {
		state.Satisfied = true
		b.trace("context: budget of %d files filled at seed, skipping backend rounds", b.MaxFiles)
		return state, nil
	}

	unsatisfiable := make(map[string]struct{})

	for state.Round < b.MaxRounds {
		state.Round++

		resp, err := b.ask(ctx, in, state)
		if err != nil {
			return nil, fmt.Errorf("context round %d: %w", state.Round, err)
		}

		if resp.IsSufficient || len(resp.RequiredAdditionalFiles) == 0 {
			state.Satisfied = true
			b.trace("context: backend satisfied after round %d (%d files)", state.Round, len(state.Files))
			return state, nil
		}

		added := 0
		for _, req := range resp.RequiredAdditionalFiles {
			if len(state.Files) >= b.MaxFiles {
				b.trace("context: budget reached, truncating remaining requests")
				break
			}
			path := strings.TrimSpace(req.Path)
			if path == "" {
				continue
			}
			if _, ok := state.Files[path]; ok {
				continue
			}
			if _, ok := unsatisfiable[path]; ok {
				continue
			}

			reason, resolvable := b.resolvable(path, tracked)
			if !resolvable {
				unsatisfiable[path] = struct{}{}
				state.Unsatisfiable = append(state.Unsatisfiable, path)
				b.trace("context: cannot satisfy %s (%s)", path, reason)
				continue
			}
			content, ok := b.ReadFile(path)
			if !ok {
				unsatisfiable[path] = struct{}{}
				state.Unsatisfiable = append(state.Unsatisfiable, path)
				b.trace("context: cannot read %s", path)
				continue
			}

			state.add(ContextFile{Path: path, Content: content, Origin: OriginLLMRequested})
			added++
			b.trace("context: round %d added %s (%s)", state.Round, path, req.Reason)
		}

		if len(state.Files) >= b.MaxFiles {
			state.Satisfied = true
			b.trace("context: budget of %d files reached after round %d", b.MaxFiles, state.Round)
			return state, nil
		}
		if added == 0 {
			// Nothing new this round means the backend is looping or
			// only asking for things we cannot give it.
			state.Satisfied = true
			b.trace("context: round %d made no progress, converged with %d files", state.Round, len(state.Files))
			return state, nil
		}
	}

	state.Satisfied = true
	state.Degraded = true
	b.trace("context: round ceiling of %d reached, proceeding with degraded context", b.MaxRounds)
	return state, nil
}

// seed loads the changed files, then fills remaining budget with
// static candidates best-first. Changed files always fit: the budget
// truncates candidates, never the changeset.
func (b *Builder) seed(state *State, in Input) {
	for _, fc := range in.Changeset.Files {
		content, ok := b.ReadFile(fc.Path)
		if !ok {
			content = ""
		}
		state.add(ContextFile{Path: fc.Path, Content: content, Origin: OriginChanged})
	}
	b.trace("context: seeded %d changed files", len(state.Files))

	for _, cand := range in.StaticCandidates {
		if len(state.Files) >= b.MaxFiles {
			break
		}
		if b.Rules != nil && !b.Rules.Allowed(cand) {
			continue
		}
		content, ok := b.ReadFile(cand)
		if !ok {
			continue
		}
		if state.add(ContextFile{Path: cand, Content: content, Origin: OriginStaticDependency}) {
			b.trace("context: seeded static dependency %s", cand)
		}
	}
}

func (b *Builder) resolvable(path string, tracked map[string]struct{}) (string, bool) {
	if _, ok := tracked[path]; !ok {
		return "not tracked", false
	}
	if b.Rules != nil && !b.Rules.Allowed(path) {
		return "filtered", false
	}
	return "", true
}

func (b *Builder) ask(ctx context.Context, in Input, state *State) (*roundResponse, error) {
	prompt := buildRoundPrompt(in, state, b.MaxFiles, b.Tracked)

	resp, err := provider.WithRetry(ctx, provider.DefaultRetryConfig(), func() (*provider.CompletionResponse, error) {
		return b.Provider.Complete(ctx, provider.CompletionRequest{
			Model: b.Model,
			Messages: []provider.Message{
				{Role: provider.RoleSystem, Content: contextSystemPrompt},
				{Role: provider.RoleUser, Content: prompt},
			},
			Temperature: provider.Float64(0),
		})
	})
	if err != nil {
		return nil, err
	}

	parsed, ok := parseRoundResponse(resp.Content)
	if !ok {
		// A malformed answer is indistinguishable from a backend that
		// has nothing more to ask for.
		b.trace("context: round %d response unparseable, treating as done", state.Round)
		return &roundResponse{IsSufficient: true}, nil
	}
	return parsed, nil
}

// sortedPaths returns the context paths sorted, for stable prompt text.
func sortedPaths(state *State) []string {
	paths := make([]string, 0, len(state.Files))
	for p := range state.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
