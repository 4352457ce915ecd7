// ABOUTME: Builds the global remediation queue from one or more project caches.
// ABOUTME: Merges advisories per package, suppresses stale entries covered by a vulnerability, and sorts by urgency.

package queue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jfeddern/PatchRelay/internal/normalize"
	"github.com/jfeddern/PatchRelay/internal/types"
)

// Priority scores; lower is more urgent. Vulnerability scores never overlap outdated ones.
const (
	PriorityCritical      = 1
	PriorityHigh          = 2
	PriorityModerate      = 3
	PriorityLow           = 4
	PriorityOtherSeverity = 5
	PriorityMajor         = 10
	PriorityMinor         = 20
	PriorityPatch         = 30
)

// NameLookup resolves a project id to its display name
type NameLookup func(projectID string) string

// HeldLookup reports whether a package is on a project's hold list
type HeldLookup func(projectID, pkg string) bool

// VulnerabilityPriority scores a vulnerability by severity
func VulnerabilityPriority(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return PriorityCritical
	case types.SeverityHigh:
		return PriorityHigh
	case types.SeverityModerate:
		return PriorityModerate
	case types.SeverityLow:
		return PriorityLow
	default:
		return PriorityOtherSeverity
	}
}

// OutdatedPriority scores a plain version bump by magnitude
func OutdatedPriority(u types.UpdateType) int {
	switch u {
	case types.UpdateMajor:
		return PriorityMajor
	case types.UpdateMinor:
		return PriorityMinor
	default:
		return PriorityPatch
	}
}

// Build computes the queue and its summary. It is a pure function of its
// inputs: the same caches always yield the same queue.
func Build(caches []*types.ProjectPatchCache, projectName NameLookup, isHeld HeldLookup) ([]types.PatchQueueItem, types.PatchSummary) {
	items := []types.PatchQueueItem{}
	var summary types.PatchSummary

	for _, c := range caches {
		if c == nil {
			continue
		}
		name := c.ProjectID
		if projectName != nil {
			if n := projectName(c.ProjectID); n != "" {
				name = n
			}
		}
		held := func(pkg string) bool {
			return isHeld != nil && isHeld(c.ProjectID, pkg)
		}

		covered := make(map[string]bool)
		for _, group := range groupByPackage(c.Vulnerabilities) {
			item := vulnerabilityItem(group)
			item.ProjectID = c.ProjectID
			item.ProjectName = name
			item.IsHeld = held(item.Package)
			if item.CurrentVersion == "" {
				item.CurrentVersion = outdatedCurrent(c.Outdated, item.Package)
				item.UpdateType = normalize.UpdateType(item.CurrentVersion, item.TargetVersion)
			}

			covered[item.Package] = true
			items = append(items, item)

			switch item.Severity {
			case types.SeverityCritical:
				summary.Critical++
			case types.SeverityHigh:
				summary.High++
			case types.SeverityModerate:
				summary.Moderate++
			}
		}

		for _, pkg := range c.Outdated {
			if covered[pkg.Name] {
				continue
			}
			covered[pkg.Name] = true
			updateType := normalize.UpdateType(pkg.Current, pkg.Latest)
			items = append(items, types.PatchQueueItem{
				Priority:       OutdatedPriority(updateType),
				Type:           types.ItemOutdated,
				Severity:       types.SeverityInfo,
				Package:        pkg.Name,
				CurrentVersion: pkg.Current,
				TargetVersion:  pkg.Latest,
				UpdateType:     updateType,
				ProjectID:      c.ProjectID,
				ProjectName:    name,
				IsHeld:         held(pkg.Name),
				FixAvailable:   true,
				DependencyKind: pkg.DependencyKind,
			})

			switch updateType {
			case types.UpdateMajor:
				summary.OutdatedMajor++
			case types.UpdateMinor:
				summary.OutdatedMinor++
			default:
				summary.OutdatedPatch++
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority < items[j].Priority
	})
	return items, summary
}

// groupByPackage groups advisories by package name in order of first appearance
func groupByPackage(vulns []types.VulnerabilityInfo) [][]types.VulnerabilityInfo {
	index := make(map[string]int)
	var groups [][]types.VulnerabilityInfo
	for _, v := range vulns {
		i, ok := index[v.Name]
		if !ok {
			i = len(groups)
			index[v.Name] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], v)
	}
	return groups
}

func vulnerabilityItem(group []types.VulnerabilityInfo) types.PatchQueueItem {
	first := group[0]

	severity := first.Severity
	fixAvailable := true
	current := ""
	var cves, urls, titles []string
	seenCVE := make(map[string]bool)
	seenURL := make(map[string]bool)

	for _, v := range group {
		if v.Severity.Rank() > severity.Rank() {
			severity = v.Severity
		}
		if !v.FixAvailable {
			fixAvailable = false
		}
		if current == "" {
			current = v.CurrentVersion
		}
		for _, id := range v.CVEs {
			if !seenCVE[id] {
				seenCVE[id] = true
				cves = append(cves, id)
			}
		}
		if v.URL != "" && !seenURL[v.URL] {
			seenURL[v.URL] = true
			urls = append(urls, v.URL)
		}
		titles = append(titles, v.Title)
	}

	title := first.Title
	if len(group) > 1 {
		title = fmt.Sprintf("%d vulnerabilities: %s", len(group), strings.Join(titles, "; "))
	}

	target := HighestFixVersion(group)
	isDirect := first.IsDirect

	item := types.PatchQueueItem{
		Priority:       VulnerabilityPriority(severity),
		Type:           types.ItemVulnerability,
		Severity:       severity,
		Package:        first.Name,
		CurrentVersion: current,
		TargetVersion:  target,
		UpdateType:     normalize.UpdateType(current, target),
		FixAvailable:   fixAvailable,
		Title:          title,
		IsDirect:       &isDirect,
		Via:            first.Via,
		ParentPackage:  first.ParentPackage,
		ParentAtLatest: first.ParentAtLatest,
		CVEs:           cves,
		URLs:           urls,
	}
	if len(urls) > 0 {
		item.URL = urls[0]
	}
	return item
}

// HighestFixVersion picks the fix version satisfying every advisory in a group.
// "latest" wins outright; otherwise the greatest semver is chosen.
func HighestFixVersion(group []types.VulnerabilityInfo) string {
	best := ""
	var bestVersion *semver.Version
	for _, v := range group {
		if v.FixVersion == "" {
			continue
		}
		if v.FixVersion == "latest" {
			return "latest"
		}
		parsed, err := semver.NewVersion(v.FixVersion)
		if err != nil {
			if best == "" {
				best = v.FixVersion
			}
			continue
		}
		if bestVersion == nil || parsed.GreaterThan(bestVersion) {
			bestVersion = parsed
			best = v.FixVersion
		}
	}
	return best
}

func outdatedCurrent(outdated []types.OutdatedPackage, name string) string {
	for _, pkg := range outdated {
		if pkg.Name == name {
			return pkg.Current
		}
	}
	return ""
}
