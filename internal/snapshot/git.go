package snapshot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ctxrank/internal/errors"
	"ctxrank/internal/logging"
)

const (
	// DefaultQueryTimeout bounds a single git invocation
	DefaultQueryTimeout = 5 * time.Second

	// DefaultMaxFileBytes caps the content read per file side
	DefaultMaxFileBytes = 512 * 1024
)

// GitService implements Service by shelling out to git in the repository
// working tree.
type GitService struct {
	repoRoot     string
	timeout      time.Duration
	maxFileBytes int
	logger       *logging.Logger
}

// NewGitService creates a git-backed snapshot service rooted at repoRoot.
// A zero timeout selects DefaultQueryTimeout.
func NewGitService(repoRoot string, timeout time.Duration, logger *logging.Logger) *GitService {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &GitService{
		repoRoot:     repoRoot,
		timeout:      timeout,
		maxFileBytes: DefaultMaxFileBytes,
		logger:       logger.WithComponent("snapshot"),
	}
}

// IsRepository reports whether dir sits inside a git working tree.
func IsRepository(dir string) bool {
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(d)
		if parent == d {
			return false
		}
		d = parent
	}
}

// FullDiff lists every file changed between base and the working tree,
// with full before/after content. Rename detection is enabled.
func (g *GitService) FullDiff(ctx context.Context, base string) ([]FileDiff, error) {
	lines, err := g.runLines(ctx, "diff", "--name-status", "-M", base)
	if err != nil {
		return nil, err
	}

	diffs := make([]FileDiff, 0, len(lines))
	for _, line := range lines {
		fd, ok := g.parseNameStatus(ctx, base, line)
		if !ok {
			continue
		}
		diffs = append(diffs, fd)
	}

	g.logger.Debug("computed full diff", logging.Fields{
		"base":  base,
		"files": len(diffs),
	})
	return diffs, nil
}

// Patch returns the raw unified diff against base. Callers use it as an
// availability probe as much as for its content.
func (g *GitService) Patch(ctx context.Context, base string) (string, error) {
	return g.run(ctx, "diff", base)
}

// Head resolves the commit the working tree is currently on.
func (g *GitService) Head(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

// parseNameStatus turns one `git diff --name-status -M` line into a
// FileDiff, fetching content for both sides. Lines look like "M\tpath",
// "A\tpath", "D\tpath", or "R100\told\tnew".
func (g *GitService) parseNameStatus(ctx context.Context, base, line string) (FileDiff, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return FileDiff{}, false
	}
	status := parts[0]

	switch {
	case strings.HasPrefix(status, "A"):
		path := parts[1]
		return FileDiff{
			Path:  path,
			Kind:  Added,
			After: g.readWorkTree(path),
		}, true
	case strings.HasPrefix(status, "D"):
		path := parts[1]
		return FileDiff{
			Path:   path,
			Kind:   Deleted,
			Before: g.showFile(ctx, base, path),
		}, true
	case strings.HasPrefix(status, "R"):
		if len(parts) < 3 {
			return FileDiff{}, false
		}
		oldPath, newPath := parts[1], parts[2]
		return FileDiff{
			Path:    newPath,
			OldPath: oldPath,
			Kind:    Renamed,
			Before:  g.showFile(ctx, base, oldPath),
			After:   g.readWorkTree(newPath),
		}, true
	case strings.HasPrefix(status, "M"), strings.HasPrefix(status, "T"):
		path := parts[1]
		return FileDiff{
			Path:   path,
			Kind:   Modified,
			Before: g.showFile(ctx, base, path),
			After:  g.readWorkTree(path),
		}, true
	default:
		return FileDiff{}, false
	}
}

// showFile reads a file's content at the base snapshot. Failures degrade
// to empty content so one unreadable file never sinks the whole diff.
func (g *GitService) showFile(ctx context.Context, base, path string) string {
	out, err := g.run(ctx, "show", base+":"+path)
	if err != nil {
		g.logger.Debug("failed to read file at base", logging.Fields{
			"path": path,
			"err":  err.Error(),
		})
		return ""
	}
	return g.cap(out)
}

// readWorkTree reads a file's current content from the working tree.
func (g *GitService) readWorkTree(path string) string {
	data, err := os.ReadFile(filepath.Join(g.repoRoot, filepath.FromSlash(path)))
	if err != nil {
		g.logger.Debug("failed to read working tree file", logging.Fields{
			"path": path,
			"err":  err.Error(),
		})
		return ""
	}
	return g.cap(string(data))
}

func (g *GitService) cap(s string) string {
	if len(s) > g.maxFileBytes {
		return s[:g.maxFileBytes]
	}
	return s
}

// run executes one git command under the service timeout.
func (g *GitService) run(ctx context.Context, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", args...)
	cmd.Dir = g.repoRoot

	output, err := cmd.Output()
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return "", errors.NewCtxError(
				errors.QueryTimeout,
				"git command timed out",
				err,
				nil,
			).WithDetails(map[string]interface{}{"args": args})
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.NewCtxError(
				errors.ProviderUnavailable,
				"git command failed",
				err,
				errors.GetSuggestedFixes(errors.ProviderUnavailable),
			).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": strings.TrimSpace(string(exitErr.Stderr)),
			})
		}
		return "", errors.NewCtxError(
			errors.ProviderUnavailable,
			"failed to execute git",
			err,
			nil,
		)
	}

	return strings.TrimRight(string(output), "\n"), nil
}

func (g *GitService) runLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return nil, nil
	}

	raw := strings.Split(output, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimRight(line, "\r"); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines, nil
}
