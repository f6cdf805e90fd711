// Package project maps translation file paths to the repositories that own
// them and groups them into one work unit per repository.
package project

import (
	"sort"
	"strings"
)

// ResMarker separates the project part of a translation path from the
// resource part ("packages/apps/Settings/res/values-de/strings.xml").
const ResMarker = "/res"

// Descriptor describes one repository of the work tree.
type Descriptor struct {
	// Path is the checkout path relative to the tree root. Paths may nest.
	Path string
	// Name is the repository identifier on the review server.
	Name string
	// Revision overrides the default branch when non-empty.
	Revision string
}

// WorkUnit is the set of files to commit to one repository.
type WorkUnit struct {
	Name   string
	Branch string
	Path   string
	// Files are unique, in the order they were first seen.
	Files []string
}

// Warning reports an input path that could not be resolved.
type Warning struct {
	Path   string
	Reason string
}

func (w Warning) String() string {
	return w.Path + ": " + w.Reason
}

// Warning reasons.
const (
	ReasonNoMarker  = "no " + ResMarker + " directory in path"
	ReasonNoProject = "no project owns this path"
)

// Result is the outcome of Resolve.
type Result struct {
	// Units holds one entry per owning repository, in first-seen order.
	Units []*WorkUnit
	// Warnings lists every path that was excluded.
	Warnings []Warning
	// Resolved counts the non-blank input paths that were assigned to a unit,
	// duplicates included.
	Resolved int
}

// Unresolved returns the number of excluded paths.
func (r *Result) Unresolved() int { return len(r.Warnings) }

// Unit returns the work unit for a project path, or nil.
func (r *Result) Unit(path string) *WorkUnit {
	for _, u := range r.Units {
		if u.Path == path {
			return u
		}
	}
	return nil
}

// Resolver matches paths against a fixed set of projects.
type Resolver struct {
	projects      []Descriptor
	defaultBranch string
}

// NewResolver returns a resolver over projects. When two projects declare
// the same path, the first one wins.
func NewResolver(projects []Descriptor, defaultBranch string) *Resolver {
	sorted := make([]Descriptor, 0, len(projects))
	for _, p := range projects {
		p.Path = strings.Trim(p.Path, "/")
		if p.Path == "" {
			continue
		}
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &Resolver{projects: sorted, defaultBranch: defaultBranch}
}

// Match returns the project with the longest path that is p itself or a
// directory prefix of p. "a/b" owns "a/b" and "a/b/c" but not "a/bc".
func (r *Resolver) Match(p string) (Descriptor, bool) {
	p = strings.Trim(p, "/")
	if p == "" {
		return Descriptor{}, false
	}
	for _, d := range r.projects {
		if p == d.Path || strings.HasPrefix(p, d.Path+"/") {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Branch returns the branch commits for d go to.
func (r *Resolver) Branch(d Descriptor) string {
	if d.Revision != "" {
		return d.Revision
	}
	return r.defaultBranch
}

// Resolve assigns every path to the project that owns it. The project part
// of a path is everything before the first ResMarker; when the path holds
// exactly two markers, the part before the second marker is tried as well
// and the longer match wins. Blank lines are skipped; every other
// path is either counted in Resolved or reported as a Warning.
func (r *Resolver) Resolve(paths []string) *Result {
	res := &Result{}
	byPath := make(map[string]*WorkUnit)
	seen := make(map[*WorkUnit]map[string]bool)

	for _, raw := range paths {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}

		candidates := projectCandidates(p)
		if len(candidates) == 0 {
			res.Warnings = append(res.Warnings, Warning{Path: p, Reason: ReasonNoMarker})
			continue
		}

		var (
			d  Descriptor
			ok bool
		)
		for _, c := range candidates {
			if m, found := r.Match(c); found && (!ok || len(m.Path) > len(d.Path)) {
				d, ok = m, true
			}
		}
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Path: p, Reason: ReasonNoProject})
			continue
		}

		u := byPath[d.Path]
		if u == nil {
			u = &WorkUnit{Name: d.Name, Branch: r.Branch(d), Path: d.Path}
			byPath[d.Path] = u
			seen[u] = make(map[string]bool)
			res.Units = append(res.Units, u)
		}
		if !seen[u][p] {
			seen[u][p] = true
			u.Files = append(u.Files, p)
		}
		res.Resolved++
	}
	return res
}

// projectCandidates returns the possible project parts of p. A path without a marker, or whose marker leaves no
// proper prefix, has no candidates.
func projectCandidates(p string) []string {
	n := strings.Count(p, ResMarker)
	if n == 0 {
		return nil
	}
	var out []string
	first := strings.Index(p, ResMarker)
	if c := strings.Trim(p[:first], "/"); c != "" {
		out = append(out, c)
	}
	if n == 2 {
		second := first + len(ResMarker) + strings.Index(p[first+len(ResMarker):], ResMarker)
		if c := strings.Trim(p[:second], "/"); c != "" {
			out = append(out, c)
		}
	}
	return out
}
