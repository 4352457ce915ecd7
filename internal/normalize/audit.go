// ABOUTME: Parsers for the vulnerability audit dialects of npm, pnpm and yarn.
// ABOUTME: Reconciles "advisories" maps, "vulnerabilities" maps and yarn auditAdvisory lines.

package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jfeddern/PatchRelay/internal/types"
)

type finding struct {
	Version string   `json:"version"`
	Paths   []string `json:"paths"`
}

type advisory struct {
	ID                json.Number `json:"id"`
	ModuleName        string      `json:"module_name"`
	Severity          string      `json:"severity"`
	Title             string      `json:"title"`
	URL               string      `json:"url"`
	CVEs              []string    `json:"cves"`
	GitHubAdvisoryID  string      `json:"github_advisory_id"`
	PatchedVersions   string      `json:"patched_versions"`
	VulnerableVersion string      `json:"vulnerable_versions"`
	Findings          []finding   `json:"findings"`
}

type viaEntry struct {
	Source   json.Number `json:"source"`
	Name     string      `json:"name"`
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Severity string      `json:"severity"`
}

type vulnerabilityEntry struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	IsDirect     bool              `json:"isDirect"`
	Via          []json.RawMessage `json:"via"`
	Effects      []string          `json:"effects"`
	Range        string            `json:"range"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

type fixObject struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	IsSemVerMajor bool   `json:"isSemVerMajor"`
}

type auditReport struct {
	Advisories      map[string]advisory           `json:"advisories"`
	Vulnerabilities map[string]vulnerabilityEntry `json:"vulnerabilities"`
}

// ParseAudit picks the vulnerabilities-map or advisories-map parser from the report shape
func ParseAudit(raw []byte) ([]types.VulnerabilityInfo, error) {
	var report auditReport
	if err := decode(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to parse audit report: %w", err)
	}
	if report.Vulnerabilities != nil {
		return fromVulnerabilities(report.Vulnerabilities), nil
	}
	return fromAdvisories(report.Advisories), nil
}

// ParseAdvisories parses a report carrying an "advisories" map keyed by numeric id
func ParseAdvisories(raw []byte) ([]types.VulnerabilityInfo, error) {
	var report auditReport
	if err := decode(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to parse advisories: %w", err)
	}
	return fromAdvisories(report.Advisories), nil
}

// ParseVulnerabilities parses a report carrying a "vulnerabilities" map keyed by package
func ParseVulnerabilities(raw []byte) ([]types.VulnerabilityInfo, error) {
	var report auditReport
	if err := decode(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to parse vulnerabilities: %w", err)
	}
	return fromVulnerabilities(report.Vulnerabilities), nil
}

// ParseYarnAudit parses yarn classic NDJSON, one auditAdvisory line per resolution path
func ParseYarnAudit(raw []byte) ([]types.VulnerabilityInfo, error) {
	lines := ndjsonLines(raw)
	if len(lines) == 0 {
		return nil, ErrNoJSON
	}

	type resolution struct {
		Resolution struct {
			Path string `json:"path"`
		} `json:"resolution"`
		Advisory advisory `json:"advisory"`
	}

	byID := make(map[string]*advisory)
	var order []string
	for _, line := range lines {
		var l yarnLine
		if err := json.Unmarshal(line, &l); err != nil || l.Type != "auditAdvisory" {
			continue
		}
		var res resolution
		if err := json.Unmarshal(l.Data, &res); err != nil {
			continue
		}

		id := res.Advisory.ID.String()
		adv, ok := byID[id]
		if !ok {
			copied := res.Advisory
			copied.Findings = nil
			adv = &copied
			byID[id] = adv
			order = append(order, id)
		}

		version := ""
		if len(res.Advisory.Findings) > 0 {
			version = res.Advisory.Findings[0].Version
		}
		if len(adv.Findings) == 0 {
			adv.Findings = append(adv.Findings, finding{Version: version})
		}
		if res.Resolution.Path != "" {
			adv.Findings[0].Paths = append(adv.Findings[0].Paths, res.Resolution.Path)
		}
	}

	out := make([]types.VulnerabilityInfo, 0, len(order))
	for _, id := range order {
		out = append(out, fromAdvisory(*byID[id]))
	}
	return out, nil
}

func fromAdvisories(advisories map[string]advisory) []types.VulnerabilityInfo {
	ids := make([]string, 0, len(advisories))
	for id := range advisories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	out := make([]types.VulnerabilityInfo, 0, len(ids))
	for _, id := range ids {
		adv := advisories[id]
		if adv.ID == "" {
			adv.ID = json.Number(id)
		}
		out = append(out, fromAdvisory(adv))
	}
	return out
}

// splitPath turns "a>b>leaf" into a leaf-first chain, dropping a root importer marker
func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, ">") {
		s = strings.TrimSpace(s)
		if s == "" || s == "." {
			continue
		}
		segments = append(segments, s)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return segments
}

// patchedVersion reads the first concrete version out of a patched range such as ">=4.17.21"
func patchedVersion(patched string) (version string, exists bool) {
	patched = strings.TrimSpace(patched)
	if patched == "" || patched == "<0.0.0" {
		return "", false
	}
	fields := strings.Fields(strings.Split(patched, "||")[0])
	if len(fields) == 0 {
		return "latest", true
	}
	first := strings.TrimLeft(fields[0], ">=<^~")
	if _, ok := component(first, 0); !ok {
		return "latest", true
	}
	return first, true
}

func fromAdvisory(adv advisory) types.VulnerabilityInfo {
	v := types.VulnerabilityInfo{
		Name:       adv.ModuleName,
		Severity:   types.ParseSeverity(adv.Severity),
		Title:      adv.Title,
		AdvisoryID: adv.ID.String(),
		URL:        adv.URL,
		CVEs:       adv.CVEs,
	}
	if v.AdvisoryID == "" {
		v.AdvisoryID = adv.GitHubAdvisoryID
	}
	if len(v.CVEs) == 0 {
		v.CVEs = ExtractCVEs(adv.Title, adv.URL)
	}

	var chain []string
	direct := len(adv.Findings) == 0
	for _, f := range adv.Findings {
		if v.CurrentVersion == "" {
			v.CurrentVersion = f.Version
		}
		for _, p := range f.Paths {
			segments := splitPath(p)
			if len(segments) <= 1 {
				direct = true
			} else if chain == nil {
				chain = segments
			}
		}
	}
	if chain == nil {
		direct = true
	}

	v.IsDirect = direct
	if !direct {
		v.Via = chain
		v.ParentPackage = chain[len(chain)-1]
	}

	v.FixVersion, v.FixExists = patchedVersion(adv.PatchedVersions)
	if v.FixExists && v.CurrentVersion != "" && v.FixVersion != "latest" {
		v.FixBreaking = UpdateType(v.CurrentVersion, v.FixVersion) == types.UpdateMajor
	}

	v.Finalize()
	return v
}

// effectChain walks effects upward from name until a direct dependency is reached
func effectChain(name string, entries map[string]vulnerabilityEntry) []string {
	chain := []string{name}
	visited := map[string]bool{name: true}
	cur, ok := entries[name]

	for ok && !cur.IsDirect && len(cur.Effects) > 0 {
		effects := append([]string(nil), cur.Effects...)
		sort.Strings(effects)

		next := ""
		for _, e := range effects {
			if !visited[e] {
				next = e
				break
			}
		}
		if next == "" {
			break
		}
		visited[next] = true
		chain = append(chain, next)
		cur, ok = entries[next]
	}
	return chain
}

func fromVulnerabilities(entries map[string]vulnerabilityEntry) []types.VulnerabilityInfo {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.VulnerabilityInfo, 0, len(names))
	for _, name := range names {
		entry := entries[name]
		if entry.Name == "" {
			entry.Name = name
		}

		base := types.VulnerabilityInfo{
			Name:     entry.Name,
			Severity: types.ParseSeverity(entry.Severity),
		}

		chain := effectChain(entry.Name, entries)
		base.IsDirect = entry.IsDirect || len(chain) == 1
		if !base.IsDirect {
			base.Via = chain
			base.ParentPackage = chain[len(chain)-1]
		}

		fix := bytes.TrimSpace(entry.FixAvailable)
		switch {
		case bytes.Equal(fix, []byte("true")):
			base.FixExists = true
			base.FixVersion = "latest"
		case len(fix) > 0 && fix[0] == '{':
			var obj fixObject
			if err := json.Unmarshal(fix, &obj); err == nil {
				base.FixExists = true
				base.FixVersion = obj.Version
				if base.FixVersion == "" {
					base.FixVersion = "latest"
				}
				base.FixBreaking = obj.IsSemVerMajor
				if !base.IsDirect && obj.Name != "" && obj.Name != entry.Name {
					base.ParentPackage = obj.Name
				}
			}
		}

		// One record per advisory object in via; package-name entries only
		// point at the vulnerable dependency.
		var dependsOn []string
		emitted := 0
		for _, raw := range entry.Via {
			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '"' {
				var pkg string
				if err := json.Unmarshal(raw, &pkg); err == nil {
					dependsOn = append(dependsOn, pkg)
				}
				continue
			}
			var via viaEntry
			if err := json.Unmarshal(raw, &via); err != nil {
				continue
			}
			v := base
			v.Title = via.Title
			v.URL = via.URL
			v.AdvisoryID = via.Source.String()
			if via.Severity != "" {
				v.Severity = types.ParseSeverity(via.Severity)
			}
			v.CVEs = ExtractCVEs(via.Title, via.URL)
			v.Finalize()
			out = append(out, v)
			emitted++
		}

		if emitted == 0 {
			v := base
			if len(dependsOn) > 0 {
				v.Title = "Depends on vulnerable versions of " + dependsOn[0]
			}
			v.CVEs = []string{}
			v.Finalize()
			out = append(out, v)
		}
	}
	return out
}
