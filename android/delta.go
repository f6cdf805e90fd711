package android

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrBaselineMissing is returned when the upstream baseline file does not exist.
var ErrBaselineMissing = errors.New("baseline resource file missing")

// LoadBaseline reads and parses an upstream baseline file. A missing file is
// reported as ErrBaselineMissing, never as an empty baseline.
func LoadBaseline(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrBaselineMissing)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Delta
// ---------------------------------------------------------------------------

// Delta compares derived resource files against one upstream baseline. It
// offers the structured comparison (Additions) and the text-level inverse
// (Purge) behind one type.
type Delta struct {
	baseline *File
}

// NewDelta returns a Delta against baseline.
func NewDelta(baseline *File) *Delta {
	return &Delta{baseline: baseline}
}

// Additions returns the vendor additions of derived. See Additions.
func (d *Delta) Additions(derived *File) []*Entry {
	return Additions(d.baseline, derived)
}

// Purge removes the vendor additions from derivedText. See Purge.
func (d *Delta) Purge(derivedText []byte) (*PurgeResult, error) {
	return Purge(d.baseline, derivedText)
}

// Additions returns the translatable entries of derived whose name does not
// exist as a translatable entry of the same kind in baseline.
//
// Output is grouped by kind (strings, then string-arrays, then plurals) and
// keeps document order inside each group. When a name qualifies, all of its
// translatable product variants are emitted together, once.
//
// Baseline membership is decided by name only; product values are not compared.
func Additions(baseline, derived *File) []*Entry {
	var out []*Entry
	for _, kind := range resourceKinds {
		known := baseline.nameSet(kind, true)
		emitted := make(map[string]bool)
		for _, e := range derived.Nodes {
			if e.Kind != kind || !e.Translatable || known[e.Name] || emitted[e.Name] {
				continue
			}
			emitted[e.Name] = true
			for _, v := range derived.Variants(kind, e.Name) {
				if v.Translatable {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Purge
// ---------------------------------------------------------------------------

// PurgeResult is the outcome of Purge.
type PurgeResult struct {
	// Text is the derived document with every foreign block removed.
	Text []byte
	// Removed lists the purged resources as "kind/name", once per name.
	Removed []string

	backup []byte
}

// Backup returns the derived text exactly as it was before the purge.
func (r *PurgeResult) Backup() []byte {
	return r.backup
}

// Changed reports whether anything was purged.
func (r *PurgeResult) Changed() bool {
	return len(r.Removed) > 0
}

// UnifiedDiff renders the purge as a unified diff between the backup and Text.
func (r *PurgeResult) UnifiedDiff(name string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.backup)),
		B:        difflib.SplitLines(string(r.Text)),
		FromFile: name + ".backup",
		ToFile:   name,
		Context:  2,
	})
}

// ErrPurgeIncomplete is returned when a foreign resource found by the parser
// could not be located in the text.
var ErrPurgeIncomplete = errors.New("vendor additions not located in text")

var (
	reResourceStart = regexp.MustCompile(`<(string-array|plurals|string)(\s[^>]*?)?(/?)>`)
	reNameAttr      = regexp.MustCompile(`\sname\s*=\s*(?:"([^"]+)"|'([^']+)')`)
	reComment       = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// Purge removes from derivedText every resource whose name is absent from the
// baseline for its kind, regardless of translatability. The removal is
// line-oriented: from the line holding the start tag through the line holding
// the matching close tag, inclusive. Start tags may span lines. All other
// lines are kept byte-for-byte, including their line endings. The pre-purge
// text is available from PurgeResult.Backup.
//
// derivedText must parse; on a parse error nothing is purged. A foreign
// resource that cannot be located in the text fails the purge with
// ErrPurgeIncomplete.
func Purge(baseline *File, derivedText []byte) (*PurgeResult, error) {
	derived, err := Parse(derivedText)
	if err != nil {
		return nil, err
	}

	foreign := make(map[string]bool)
	var order []string
	for _, kind := range resourceKinds {
		known := baseline.nameSet(kind, false)
		for _, e := range derived.Nodes {
			key := indexKey(kind, e.Name)
			if e.Kind == kind && !known[e.Name] && !foreign[key] {
				foreign[key] = true
				order = append(order, key)
			}
		}
	}

	res := &PurgeResult{backup: append([]byte(nil), derivedText...)}
	if len(foreign) == 0 {
		res.Text = append([]byte(nil), derivedText...)
		return res, nil
	}

	comments := reComment.FindAllIndex(derivedText, -1)
	inComment := func(off int) bool {
		for _, c := range comments {
			if off >= c[0] && off < c[1] {
				return true
			}
		}
		return false
	}

	seen := make(map[string]bool)
	var out bytes.Buffer
	cursor := 0
	for _, m := range reResourceStart.FindAllSubmatchIndex(derivedText, -1) {
		if m[0] < cursor || inComment(m[0]) || m[4] < 0 {
			continue
		}
		n := reNameAttr.FindSubmatch(derivedText[m[4]:m[5]])
		if n == nil {
			continue
		}
		name := n[1]
		if name == nil {
			name = n[2]
		}
		kind := kindOf(string(derivedText[m[2]:m[3]]))
		key := indexKey(kind, string(name))
		if !foreign[key] {
			continue
		}

		end := m[1]
		if m[7] == m[6] {
			tag := []byte("</" + kind.String() + ">")
			i := bytes.Index(derivedText[end:], tag)
			if i < 0 {
				continue
			}
			end += i + len(tag)
		}

		from := lineStart(derivedText, m[0])
		if from < cursor {
			from = cursor
		}
		out.Write(derivedText[cursor:from])
		cursor = lineEnd(derivedText, end)

		if !seen[key] {
			seen[key] = true
			res.Removed = append(res.Removed, key)
		}
	}
	out.Write(derivedText[cursor:])

	var missed []string
	for _, key := range order {
		if !seen[key] {
			missed = append(missed, key)
		}
	}
	if len(missed) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrPurgeIncomplete, strings.Join(missed, ", "))
	}

	res.Text = out.Bytes()
	return res, nil
}

// lineStart returns the offset of the first byte of the line holding off.
func lineStart(data []byte, off int) int {
	return bytes.LastIndexByte(data[:off], '\n') + 1
}

// lineEnd returns the offset just past the "\n" ending the line that holds
// the byte before off, or len(data) on the last line.
func lineEnd(data []byte, off int) int {
	i := bytes.IndexByte(data[off:], '\n')
	if i < 0 {
		return len(data)
	}
	return off + i + 1
}

// ---------------------------------------------------------------------------
// Upload-only document
// ---------------------------------------------------------------------------

// AdditionsRoot is the root element used for generated vendor-delta documents.
const AdditionsRoot = `<resources xmlns:xliff="urn:oasis:names:tc:xliff:document:1.2">`

// BuildAdditionsFile renders entries into a standalone resource document
// suitable for upload. header, when non-empty, is written as a comment
// between the declaration and the root. Entries are embedded verbatim.
func BuildAdditionsFile(header string, entries []*Entry) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	if header != "" {
		b.WriteString("<!--\n")
		for _, line := range strings.Split(strings.TrimRight(header, "\n"), "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString("     " + line + "\n")
		}
		b.WriteString("-->\n")
	}
	b.WriteString(AdditionsRoot + "\n")
	for _, e := range entries {
		b.WriteString("    ")
		b.WriteString(e.Raw)
		b.WriteString("\n")
	}
	b.WriteString("</resources>\n")
	return []byte(b.String())
}
