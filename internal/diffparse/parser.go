// Package diffparse turns raw unified diff output into the normalized
// changeset the rest of the pipeline operates on.
package diffparse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Status classifies a file change.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
	StatusRenamed  Status = "renamed"
)

// FileChange represents a parsed file diff.
type FileChange struct {
	// Path is the post-change path (the pre-change path for deletions).
	Path string
	// OldPath is set for renames.
	OldPath  string
	Status   Status
	IsBinary bool
	Hunks    []Hunk
	Stats    DiffStats
}

// Hunk represents a diff hunk.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []DiffLine
}

// DiffLine represents a single line in a diff.
type DiffLine struct {
	Type      LineType
	Content   string
	OldLineNo int
	NewLineNo int
}

// LineType classifies a diff line.
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineDeleted
)

// DiffStats holds addition/deletion counts.
type DiffStats struct {
	Additions int
	Deletions int
}

// ParseChangeset parses raw unified diff output into a Changeset,
// dropping binary files.
func ParseChangeset(raw string) (*Changeset, error) {
	if strings.TrimSpace(raw) == "" {
		return &Changeset{}, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	cs := &Changeset{}
	for _, fd := range fileDiffs {
		oldName := cleanPath(fd.OrigName)
		newName := cleanPath(fd.NewName)

		fc := FileChange{Path: newName, Status: StatusModified}
		switch {
		case fd.OrigName == "/dev/null":
			fc.Status = StatusAdded
		case fd.NewName == "/dev/null":
			fc.Status = StatusDeleted
			fc.Path = oldName
		case oldName != "" && newName != "" && oldName != newName:
			fc.Status = StatusRenamed
			fc.OldPath = oldName
		}

		for _, ext := range fd.Extended {
			if strings.Contains(ext, "Binary files") || strings.Contains(ext, "GIT binary patch") {
				fc.IsBinary = true
				break
			}
		}
		if !fc.IsBinary {
			fc.IsBinary = isBinaryPath(fc.Path)
		}
		if fc.IsBinary {
			continue
		}

		for _, h := range fd.Hunks {
			fc.Hunks = append(fc.Hunks, parseHunk(h, &fc.Stats))
		}

		cs.Files = append(cs.Files, fc)
	}

	return cs, nil
}

func parseHunk(h *diff.Hunk, stats *DiffStats) Hunk {
	hunk := Hunk{
		OldStart: int(h.OrigStartLine),
		OldLines: int(h.OrigLines),
		NewStart: int(h.NewStartLine),
		NewLines: int(h.NewLines),
	}

	oldLine := int(h.OrigStartLine)
	newLine := int(h.NewStartLine)

	for _, line := range strings.Split(string(h.Body), "\n") {
		if len(line) == 0 {
			continue
		}

		dl := DiffLine{}
		switch line[0] {
		case '+':
			dl.Type = LineAdded
			dl.Content = line[1:]
			dl.NewLineNo = newLine
			newLine++
			stats.Additions++
		case '-':
			dl.Type = LineDeleted
			dl.Content = line[1:]
			dl.OldLineNo = oldLine
			oldLine++
			stats.Deletions++
		default:
			dl.Type = LineContext
			if line[0] == ' ' {
				dl.Content = line[1:]
			} else {
				dl.Content = line
			}
			dl.OldLineNo = oldLine
			dl.NewLineNo = newLine
			oldLine++
			newLine++
		}
		hunk.Lines = append(hunk.Lines, dl)
	}

	return hunk
}

// FormatForReview formats file changes into a string suitable for a
// review prompt.
func FormatForReview(changes []FileChange) string {
	var sb strings.Builder

	for _, fc := range changes {
		label := string(fc.Status)
		if fc.Status == StatusRenamed {
			label = fmt.Sprintf("renamed from %s", fc.OldPath)
		}

		sb.WriteString(fmt.Sprintf("### File: %s (%s) [+%d/-%d]\n",
			fc.Path, label, fc.Stats.Additions, fc.Stats.Deletions))

		for _, h := range fc.Hunks {
			sb.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n",
				h.OldStart, h.OldLines, h.NewStart, h.NewLines))
			for _, l := range h.Lines {
				switch l.Type {
				case LineAdded:
					sb.WriteString("+" + l.Content + "\n")
				case LineDeleted:
					sb.WriteString("-" + l.Content + "\n")
				default:
					sb.WriteString(" " + l.Content + "\n")
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func isBinaryPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(path)))
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".ico", ".tiff",
		".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar",
		".jar", ".war", ".so", ".dll", ".dylib", ".a", ".o", ".obj", ".exe", ".bin", ".class",
		".woff", ".woff2", ".ttf", ".otf", ".eot",
		".mp3", ".mp4", ".mov", ".wav", ".avi", ".mkv", ".flac":
		return true
	default:
		return false
	}
}

func cleanPath(p string) string {
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return filepath.ToSlash(p)
}
