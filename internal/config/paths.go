package config

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// memoryPath is the SQLite in-memory database name; it is never expanded.
const memoryPath = ":memory:"

var windowsVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// expandPath resolves environment variables and a leading ~ in a
// configured path. Unset %VAR% references are left as written.
func expandPath(p string) string {
	if p == "" || p == memoryPath {
		return p
	}

	p = os.ExpandEnv(p)
	if runtime.GOOS == "windows" {
		p = windowsVar.ReplaceAllStringFunc(p, func(m string) string {
			if v, ok := os.LookupEnv(m[1 : len(m)-1]); ok {
				return v
			}
			return m
		})
	}

	rest, ok := cutHome(p)
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}

// cutHome reports whether p starts with ~ and returns what follows it.
func cutHome(p string) (string, bool) {
	if p == "~" {
		return "", true
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return rest, true
	}
	if runtime.GOOS == "windows" {
		return strings.CutPrefix(p, `~\`)
	}
	return "", false
}
