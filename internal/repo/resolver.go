// Package repo resolves an analysis source to a local directory: either a
// validated local path or a shallow clone of a git URL.
package repo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/railscope/railscope/internal/console"
)

// cloneTimeout bounds a shallow clone of the target repository.
const cloneTimeout = 120 * time.Second

// Resolver turns a source string into a usable repo root.
type Resolver struct {
	source  string
	token   string
	tempDir string
}

// NewResolver creates a resolver for a local path or git URL. token, when
// set, authenticates HTTPS clones.
func NewResolver(source, token string) *Resolver {
	return &Resolver{source: source, token: token}
}

// Resolve returns the local repo root, cloning first when the source is a
// git URL. The returned path is guaranteed to contain config/routes.rb.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if isGitURL(r.source) {
		return r.clone(ctx)
	}
	return r.validate(r.source)
}

// Cleanup removes any temporary clone directory.
func (r *Resolver) Cleanup() {
	if r.tempDir != "" {
		_ = os.RemoveAll(r.tempDir)
		r.tempDir = ""
	}
}

func isGitURL(source string) bool {
	return strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "git://")
}

func (r *Resolver) clone(ctx context.Context) (string, error) {
	tempDir, err := os.MkdirTemp("", "railscope-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	r.tempDir = tempDir

	url := r.source
	if r.token != "" && strings.HasPrefix(url, "https://") && !strings.Contains(url, "@") {
		url = strings.Replace(url, "https://", "https://"+r.token+"@", 1)
	}

	console.Logger.Infof("cloning %s", r.source)
	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, "git", "clone", "--depth", "1", url, tempDir)
	output, err := cmd.CombinedOutput()
	if cloneCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("git clone timed out after %s", cloneTimeout)
	}
	if err != nil {
		return "", fmt.Errorf("git clone failed: %s", strings.TrimSpace(string(output)))
	}
	return r.validate(tempDir)
}

func (r *Resolver) validate(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("path does not exist: %s", abs)
	}
	routes := filepath.Join(abs, "config", "routes.rb")
	if _, err := os.Stat(routes); err != nil {
		return "", fmt.Errorf("not a Rails project (no config/routes.rb): %s", abs)
	}
	return abs, nil
}
