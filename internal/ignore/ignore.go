// Package ignore loads gitignore-style path exclusion files such as
// .repowatchignore.
package ignore

import (
	"errors"
	"io/fs"
	"path/filepath"
	"syscall"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher reports whether a root-relative, slash-separated path is ignored.
type Matcher struct {
	gi *gitignore.GitIgnore
}

// Load compiles the ignore file at path. A missing file, or a path whose
// parent is not a directory, yields an empty matcher and a nil error.
func Load(path string) (Matcher, error) {
	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return Matcher{}, nil
		}
		return Matcher{}, err
	}
	return Matcher{gi: gi}, nil
}

// Match reports whether rel is ignored.
func (m Matcher) Match(rel string) bool {
	if m.gi == nil {
		return false
	}
	return m.gi.MatchesPath(filepath.ToSlash(rel))
}

// Empty reports whether the matcher ignores nothing.
func (m Matcher) Empty() bool { return m.gi == nil }
