package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("repoupgrade.git")

// Client is the interface for git operations
type Client interface {
	Clone(ctx context.Context, url, destPath, branch string) error
	// Pull fast-forwards the checkout and returns git's combined output
	Pull(ctx context.Context, repoPath string) (string, error)
	Fetch(ctx context.Context, repoPath string) error
	GetCurrentCommit(ctx context.Context, repoPath string) (string, error)
	GetRemoteCommit(ctx context.Context, repoPath, branch string) (string, error)
	// CurrentBranch returns the checked out branch, or "HEAD" when detached
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
	ResetHard(ctx context.Context, repoPath, rev string) error
	IsGitRepository(ctx context.Context, path string) bool
}

// DefaultClient is the default git client implementation
type DefaultClient struct {
	Timeout time.Duration
}

// NewClient creates a new git client
func NewClient() *DefaultClient {
	return &DefaultClient{
		Timeout: 5 * time.Minute,
	}
}

// run executes git with args, returning stdout, stderr
func (c *DefaultClient) run(ctx context.Context, args ...string) (string, string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	logger.Debugf("git %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "git", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Clone clones a git repository to the specified path
func (c *DefaultClient) Clone(ctx context.Context, url, destPath, branch string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, destPath)

	_, stderr, err := c.run(ctx, args...)
	if err != nil {
		if isAuthError(stderr) {
			return &AuthError{URL: url, Message: stderr}
		}
		return errors.Errorf("git clone failed: %s", strings.TrimSpace(stderr))
	}

	return nil
}

// Pull pulls the latest changes in a git repository
func (c *DefaultClient) Pull(ctx context.Context, repoPath string) (string, error) {
	stdout, stderr, err := c.run(ctx, "-C", repoPath, "pull", "--ff-only")
	output := strings.TrimSpace(stdout + stderr)
	if err != nil {
		if isAuthError(stderr) {
			return output, &AuthError{URL: repoPath, Message: stderr}
		}
		return output, errors.Errorf("git pull failed: %s", strings.TrimSpace(stderr))
	}

	return output, nil
}

// GetCurrentCommit returns the current commit SHA
func (c *DefaultClient) GetCurrentCommit(ctx context.Context, repoPath string) (string, error) {
	stdout, _, err := c.run(ctx, "-C", repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", errors.Annotate(err, "failed to get current commit")
	}

	return strings.TrimSpace(stdout), nil
}

// IsGitRepository checks if the given path is a git repository
func (c *DefaultClient) IsGitRepository(ctx context.Context, path string) bool {
	_, _, err := c.run(ctx, "-C", path, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// Fetch fetches changes from remote without merging
func (c *DefaultClient) Fetch(ctx context.Context, repoPath string) error {
	_, stderr, err := c.run(ctx, "-C", repoPath, "fetch", "--quiet")
	if err != nil {
		if isAuthError(stderr) {
			return &AuthError{URL: repoPath, Message: stderr}
		}
		return errors.Errorf("git fetch failed: %s", strings.TrimSpace(stderr))
	}

	return nil
}

// GetRemoteCommit returns the latest commit SHA of a remote branch
func (c *DefaultClient) GetRemoteCommit(ctx context.Context, repoPath, branch string) (string, error) {
	if branch == "" {
		branch = "origin/HEAD"
	} else {
		branch = "origin/" + branch
	}

	stdout, stderr, err := c.run(ctx, "-C", repoPath, "rev-parse", branch)
	if err != nil {
		return "", errors.Errorf("failed to get remote commit: %s", strings.TrimSpace(stderr))
	}

	return strings.TrimSpace(stdout), nil
}

// CurrentBranch returns the checked out branch name
func (c *DefaultClient) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	stdout, _, err := c.run(ctx, "-C", repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.Annotate(err, "failed to get current branch")
	}
	return strings.TrimSpace(stdout), nil
}

// ResetHard moves the checkout back to rev, discarding local changes
func (c *DefaultClient) ResetHard(ctx context.Context, repoPath, rev string) error {
	if rev == "" {
		return errors.NotValidf("empty revision")
	}
	_, stderr, err := c.run(ctx, "-C", repoPath, "reset", "--hard", rev)
	if err != nil {
		return errors.Errorf("git reset failed: %s", strings.TrimSpace(stderr))
	}
	return nil
}

// ShortCommit returns first 7 characters of a commit hash
func ShortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// AuthError represents a git authentication error
type AuthError struct {
	URL     string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for '%s': %s", e.URL, strings.TrimSpace(e.Message))
}

// isAuthError checks if the error message indicates an authentication failure
func isAuthError(msg string) bool {
	authPatterns := []string{
		"Authentication failed",
		"Permission denied",
		"could not read Username",
		"fatal: repository",
		"not found",
		"403",
		"401",
	}

	for _, pattern := range authPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
