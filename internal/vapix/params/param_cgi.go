// Package params reads device parameters as returned by param.cgi.
package params

import (
	"bufio"
	"strings"
)

// Params holds param.cgi values as group -> key -> value. The group is the
// segment after "root"; the key is everything after the group, so nested
// keys such as "API.HTTP.Version" stay intact.
type Params map[string]map[string]string

// Group returns the values of one group, or nil.
func (p Params) Group(name string) map[string]string {
	return p[name]
}

// ParseParamCGI parses "root.Group.Key=Value" lines. Lines without '=' or
// without a group and key are skipped. Values keep everything after the
// first '=' verbatim.
func ParseParamCGI(text string) Params {
	out := Params{}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		path, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		path = strings.TrimPrefix(strings.TrimSpace(path), "root.")
		group, key, ok := strings.Cut(path, ".")
		if !ok || group == "" || key == "" {
			continue
		}
		if out[group] == nil {
			out[group] = map[string]string{}
		}
		out[group][key] = value
	}
	return out
}

// MaxLineSize bounds one param.cgi line. Longer lines end parsing.
const MaxLineSize = 64 * 1024
