package ignore

import (
	"bufio"
	"os"
	"strings"
)

// Append adds pattern to the ignore file at path, creating the file when
// missing. It reports false when the pattern was already present.
func Append(path, pattern string) (bool, error) {
	pattern = strings.TrimSpace(pattern)
	needNewline := false
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == pattern {
				_ = f.Close()
				return false, nil
			}
		}
		_ = f.Close()
		if st, err := os.Stat(path); err == nil && st.Size() > 0 {
			needNewline = !endsWithNewline(path, st.Size())
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if needNewline {
		pattern = "\n" + pattern
	}
	if _, err := f.WriteString(pattern + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

func endsWithNewline(path string, size int64) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, size-1); err != nil {
		return true
	}
	return b[0] == '\n'
}
