// ABOUTME: Shared helpers for turning package-manager output into canonical records.
// ABOUTME: Strips leading warning text, classifies version changes and extracts CVE ids.

package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/jfeddern/PatchRelay/internal/types"
)

// ErrNoJSON is returned when tool output contains no JSON value at all
var ErrNoJSON = errors.New("no JSON found in output")

// OutdatedParser converts one tool dialect into outdated records
type OutdatedParser func(raw []byte) ([]types.OutdatedPackage, error)

// AuditParser converts one tool dialect into vulnerability records
type AuditParser func(raw []byte) ([]types.VulnerabilityInfo, error)

var cvePattern = regexp.MustCompile(`CVE-\d{4}-\d{4,}`)

// ExtractJSON returns raw starting at the first '[' or '{'
func ExtractJSON(raw []byte) ([]byte, error) {
	idx := bytes.IndexAny(raw, "[{")
	if idx < 0 {
		return nil, ErrNoJSON
	}
	return raw[idx:], nil
}

// decode parses the first JSON value in raw, ignoring leading warnings and trailing text
func decode(raw []byte, v interface{}) error {
	body, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	return json.NewDecoder(bytes.NewReader(body)).Decode(v)
}

// StripRange removes one leading '^' or '~' from a version string
func StripRange(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "^") || strings.HasPrefix(v, "~") {
		return v[1:]
	}
	return v
}

// component returns the numeric prefix of the i-th dot-separated part of v
func component(v string, i int) (int, bool) {
	parts := strings.Split(StripRange(v), ".")
	if i >= len(parts) {
		return 0, false
	}
	part := parts[i]
	end := 0
	for end < len(part) && part[end] >= '0' && part[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(part[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// UpdateType compares major then minor components of current and target.
// A non-numeric or missing component classifies the change as a patch.
func UpdateType(current, target string) types.UpdateType {
	curMajor, ok1 := component(current, 0)
	tgtMajor, ok2 := component(target, 0)
	if !ok1 || !ok2 {
		return types.UpdatePatch
	}
	if curMajor != tgtMajor {
		return types.UpdateMajor
	}

	curMinor, ok1 := component(current, 1)
	tgtMinor, ok2 := component(target, 1)
	if !ok1 || !ok2 {
		return types.UpdatePatch
	}
	if curMinor != tgtMinor {
		return types.UpdateMinor
	}
	return types.UpdatePatch
}

// ExtractCVEs returns the distinct CVE ids mentioned in texts, in order of appearance
func ExtractCVEs(texts ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, id := range cvePattern.FindAllString(text, -1) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func dependencyKind(raw string) types.DependencyKind {
	if raw == "devDependencies" || raw == "dev" {
		return types.DependencyDev
	}
	return types.DependencyDirect
}

// ndjsonLines splits newline-delimited JSON, skipping blank and non-JSON lines
func ndjsonLines(raw []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] == '{' {
			lines = append(lines, line)
		}
	}
	return lines
}
