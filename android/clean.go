package android

import (
	"regexp"
	"strings"
)

// Outcome classifies the result of cleaning one document.
type Outcome int

const (
	// OutcomeCleaned means the document still has content and should be written back.
	OutcomeCleaned Outcome = iota
	// OutcomeDeleted means nothing is left; the caller removes the file
	// (and its directory when it becomes empty).
	OutcomeDeleted
	// OutcomeUnparseable means the input is not a well-formed resource file.
	// No cleanup was attempted; the caller should back the file up and
	// restore its last committed version.
	OutcomeUnparseable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleaned:
		return "cleaned"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeUnparseable:
		return "unparseable"
	}
	return "unknown"
}

// Reasons attached to removed entries.
const (
	ReasonNoDefaultProduct = "missing default product variant"
	ReasonNonTranslatable  = "not translatable"
	ReasonEmpty            = "empty string"
	ReasonInvalidFormat    = "invalid format placeholder"
)

// Removal describes one entry dropped by Clean.
type Removal struct {
	Kind   EntryKind
	Name   string
	Reason string
	// Text is the string value, set for invalid format strings.
	Text string
}

// CleanResult is the outcome of Clean or CleanData.
type CleanResult struct {
	// File is the cleaned document. Nil when the input was unparseable.
	File    *File
	Outcome Outcome
	// Removed lists the dropped resources in rule order.
	Removed []Removal
	// Comments is the number of comments stripped from inside <resources>.
	Comments int
	// Err holds the parse error for OutcomeUnparseable.
	Err error
}

// Deleted reports whether the cleaned document has no content left.
func (r *CleanResult) Deleted() bool { return r.Outcome == OutcomeDeleted }

// RemovedCount returns the number of dropped resources.
func (r *CleanResult) RemovedCount() int { return len(r.Removed) }

// Invalid returns the strings dropped for malformed format placeholders.
func (r *CleanResult) Invalid() []Removal {
	var out []Removal
	for _, rm := range r.Removed {
		if rm.Reason == ReasonInvalidFormat {
			out = append(out, rm)
		}
	}
	return out
}

// Bytes serializes the cleaned document. Nil for unparseable input.
func (r *CleanResult) Bytes() []byte {
	if r.File == nil {
		return nil
	}
	return r.File.Marshal()
}

// reInvalidFormat matches positional placeholders colliding with a literal
// percent sign and bare percent signs surrounded by whitespace.
var reInvalidFormat = regexp.MustCompile(`%\d\$\w%[^%]|%%\d\$\w|%\w%[^%]|\s%(\s|$)`)

// ValidFormat reports whether s is free of malformed printf placeholders.
func ValidFormat(s string) bool {
	return !reInvalidFormat.MatchString(s)
}

// CleanData parses data and cleans it. Input that does not parse yields
// OutcomeUnparseable with the parse error and no partial cleanup.
func CleanData(data []byte) *CleanResult {
	f, err := Parse(data)
	if err != nil {
		return &CleanResult{Outcome: OutcomeUnparseable, Err: err}
	}
	return Clean(f)
}

// Clean sanitizes a downloaded translation in place. Rules, in order:
//
//  1. every variant of a name that has product variants but no default one is removed;
//  2. comments inside <resources> are stripped (header comments are kept);
//  3. non-translatable resources are removed;
//  4. strings without any content are removed;
//  5. formatted strings containing '%' with malformed placeholders are removed;
//  6. a document left without elements is marked deleted.
func Clean(f *File) *CleanResult {
	res := &CleanResult{File: f}
	drop := func(reason string, match func(*Entry) bool) {
		for _, e := range f.removeIf(match) {
			rm := Removal{Kind: e.Kind, Name: e.Name, Reason: reason}
			if reason == ReasonInvalidFormat {
				rm.Text = e.Value
			}
			res.Removed = append(res.Removed, rm)
		}
	}

	incomplete := make(map[string]bool)
	for key, idx := range f.byName {
		hasProduct, hasDefault := false, false
		for _, i := range idx {
			e := f.Nodes[i]
			if e.HasProduct() {
				hasProduct = true
			}
			if e.IsDefaultVariant() {
				hasDefault = true
			}
		}
		if hasProduct && !hasDefault {
			incomplete[key] = true
		}
	}
	drop(ReasonNoDefaultProduct, func(e *Entry) bool {
		return e.IsResource() && incomplete[indexKey(e.Kind, e.Name)]
	})

	res.Comments = len(f.removeIf(func(e *Entry) bool { return e.Kind == KindComment }))

	drop(ReasonNonTranslatable, func(e *Entry) bool {
		return e.IsResource() && !e.Translatable
	})

	drop(ReasonEmpty, func(e *Entry) bool {
		return e.Kind == KindString && e.Value == ""
	})

	drop(ReasonInvalidFormat, func(e *Entry) bool {
		return e.Kind == KindString && e.Formatted &&
			strings.Contains(e.Value, "%") && !ValidFormat(e.Value)
	})

	if f.ElementCount() == 0 {
		res.Outcome = OutcomeDeleted
	}
	return res
}
