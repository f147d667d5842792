// Package detect recognizes a Rails application and its framework version
// from the Gemfile and Gemfile.lock.
package detect

import (
	"regexp"

	"github.com/railscope/railscope/internal/vfs"
)

var (
	lockVersionRe = regexp.MustCompile(`(?m)^\s+rails \((\d+\.\d+[^)]*)\)`)
	gemfileRe     = regexp.MustCompile(`gem\s+['"](?:rails|railties)['"](?:\s*,\s*['"]([^'"]+)['"])?`)
)

// Rails reports whether the tree looks like a Rails application and, when
// determinable, the framework version. Gemfile.lock takes precedence since
// it pins an exact version.
func Rails(fsys vfs.FS) (bool, string) {
	if lock, err := fsys.Read("Gemfile.lock"); err == nil {
		if m := lockVersionRe.FindSubmatch(lock); m != nil {
			return true, string(m[1])
		}
	}

	gemfile, err := fsys.Read("Gemfile")
	if err != nil {
		return false, ""
	}
	if m := gemfileRe.FindSubmatch(gemfile); m != nil {
		return true, string(m[1])
	}
	return false, ""
}
