// Package manifest reads repo manifests (default.xml, local manifests and
// extra package lists) into project descriptors.
package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minios-linux/crowdsync/project"
)

// ErrNoProjects is returned by Load when no manifest declares a project.
var ErrNoProjects = errors.New("no projects declared in manifests")

// Manifest is one parsed manifest file.
type Manifest struct {
	// Path is the file the manifest was read from, empty for Parse.
	Path string
	// DefaultRevision is the revision of the <default> element, if any.
	DefaultRevision string
	Projects        []project.Descriptor
	// Removed lists the names of <remove-project> elements.
	Removed []string
}

// Parse reads a manifest document. Only <project>, <default> and
// <remove-project> are interpreted; everything else is ignored. A project
// without a path is checked out at its name.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	root := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !root {
			if se.Name.Local != "manifest" {
				return nil, fmt.Errorf("root element is <%s>, want <manifest>", se.Name.Local)
			}
			root = true
			continue
		}

		switch se.Name.Local {
		case "project":
			d := project.Descriptor{
				Name:     attr(se, "name"),
				Path:     attr(se, "path"),
				Revision: attr(se, "revision"),
			}
			if d.Name == "" {
				continue
			}
			if d.Path == "" {
				d.Path = d.Name
			}
			d.Path = strings.Trim(d.Path, "/")
			m.Projects = append(m.Projects, d)
		case "default":
			m.DefaultRevision = attr(se, "revision")
		case "remove-project":
			if name := attr(se, "name"); name != "" {
				m.Removed = append(m.Removed, name)
			}
		}
	}
	if !root {
		return nil, errors.New("no <manifest> root element")
	}
	return m, nil
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Merge combines manifests in order. A later project with the same path
// replaces the earlier one in place; <remove-project> drops every earlier
// project with that name.
func Merge(manifests ...*Manifest) []project.Descriptor {
	var out []project.Descriptor
	index := make(map[string]int)

	for _, m := range manifests {
		for _, name := range m.Removed {
			kept := out[:0]
			for _, d := range out {
				if d.Name != name {
					kept = append(kept, d)
				}
			}
			out = kept
			index = make(map[string]int, len(out))
			for i, d := range out {
				index[d.Path] = i
			}
		}
		for _, d := range m.Projects {
			if i, ok := index[d.Path]; ok {
				out[i] = d
				continue
			}
			index[d.Path] = len(out)
			out = append(out, d)
		}
	}
	return out
}

// Load parses the manifests at paths and merges them. Missing files are
// skipped with their error reported in skipped; a manifest that exists but
// does not parse is an error.
func Load(paths []string) (projects []project.Descriptor, skipped []error, err error) {
	var ms []*Manifest
	for _, p := range paths {
		m, err := ParseFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				skipped = append(skipped, err)
				continue
			}
			return nil, skipped, err
		}
		ms = append(ms, m)
	}
	projects = Merge(ms...)
	if len(projects) == 0 {
		return nil, skipped, ErrNoProjects
	}
	return projects, skipped, nil
}
