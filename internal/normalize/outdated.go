// ABOUTME: Parsers for the outdated-package dialects of npm, pnpm and yarn.
// ABOUTME: Handles array-of-objects, keyed objects with workspace arrays, and yarn NDJSON tables.

package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jfeddern/PatchRelay/internal/types"
)

type outdatedEntry struct {
	Name           string `json:"name"`
	PackageName    string `json:"packageName"`
	Current        string `json:"current"`
	Wanted         string `json:"wanted"`
	Latest         string `json:"latest"`
	Type           string `json:"type"`
	DependencyType string `json:"dependencyType"`
}

func (e outdatedEntry) toPackage(name string) types.OutdatedPackage {
	if name == "" {
		name = e.PackageName
	}
	if name == "" {
		name = e.Name
	}
	kind := e.DependencyType
	if kind == "" {
		kind = e.Type
	}
	return types.OutdatedPackage{
		Name:           name,
		Current:        e.Current,
		Wanted:         e.Wanted,
		Latest:         e.Latest,
		DependencyKind: dependencyKind(kind),
	}
}

// ParseOutdatedArray parses an array of package objects
func ParseOutdatedArray(raw []byte) ([]types.OutdatedPackage, error) {
	var entries []outdatedEntry
	if err := decode(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse outdated array: %w", err)
	}

	out := make([]types.OutdatedPackage, 0, len(entries))
	for _, e := range entries {
		pkg := e.toPackage("")
		if pkg.Name == "" {
			continue
		}
		out = append(out, pkg)
	}
	return out, nil
}

// ParseOutdatedKeyed parses an object keyed by package name. In workspaces the
// value is an array of per-workspace entries; the first one is used.
func ParseOutdatedKeyed(raw []byte) ([]types.OutdatedPackage, error) {
	var keyed map[string]json.RawMessage
	if err := decode(raw, &keyed); err != nil {
		return nil, fmt.Errorf("failed to parse outdated object: %w", err)
	}

	names := make([]string, 0, len(keyed))
	for name := range keyed {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.OutdatedPackage, 0, len(names))
	for _, name := range names {
		value := bytes.TrimSpace(keyed[name])
		var entry outdatedEntry

		if len(value) > 0 && value[0] == '[' {
			var list []outdatedEntry
			if err := json.Unmarshal(value, &list); err != nil || len(list) == 0 {
				continue
			}
			entry = list[0]
		} else if err := json.Unmarshal(value, &entry); err != nil {
			continue
		}

		out = append(out, entry.toPackage(name))
	}
	return out, nil
}

// ParseOutdated picks the array or keyed parser from the first JSON token
func ParseOutdated(raw []byte) ([]types.OutdatedPackage, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if body[0] == '[' {
		return ParseOutdatedArray(body)
	}
	return ParseOutdatedKeyed(body)
}

type yarnLine struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type yarnTable struct {
	Head []string   `json:"head"`
	Body [][]string `json:"body"`
}

// ParseYarnOutdated parses the NDJSON stream of yarn classic, reading the "table" line
func ParseYarnOutdated(raw []byte) ([]types.OutdatedPackage, error) {
	lines := ndjsonLines(raw)
	if len(lines) == 0 {
		return nil, ErrNoJSON
	}

	out := []types.OutdatedPackage{}
	seen := make(map[string]bool)
	for _, line := range lines {
		var l yarnLine
		if err := json.Unmarshal(line, &l); err != nil || l.Type != "table" {
			continue
		}
		var table yarnTable
		if err := json.Unmarshal(l.Data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse yarn outdated table: %w", err)
		}

		col := make(map[string]int, len(table.Head))
		for i, h := range table.Head {
			col[h] = i
		}
		cell := func(row []string, name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}

		for _, row := range table.Body {
			name := cell(row, "Package")
			// Workspaces repeat a package once per workspace; the first row wins.
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, types.OutdatedPackage{
				Name:           name,
				Current:        cell(row, "Current"),
				Wanted:         cell(row, "Wanted"),
				Latest:         cell(row, "Latest"),
				DependencyKind: dependencyKind(cell(row, "Package Type")),
			})
		}
	}
	return out, nil
}
