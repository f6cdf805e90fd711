// Package android implements reading and writing of Android resource files
// (values*/strings.xml, arrays.xml, plurals.xml …) as exchanged with the
// translation service.
//
// Supported resource types:
//   - <string>        simple key/value string
//   - <string-array>  ordered list of strings
//   - <plurals>       quantity-keyed plural forms (zero/one/two/few/many/other)
//
// Every child of <resources> keeps its verbatim source text, so a File can be
// written back with untouched entries byte-for-byte identical to the input.
// Resource names are not unique: product variants (product="…") of the same
// string share one name.
package android

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// EntryKind identifies the type of a node inside <resources>.
type EntryKind int

const (
	// KindString is a plain <string> resource.
	KindString EntryKind = iota
	// KindStringArray is a <string-array> resource.
	KindStringArray
	// KindPlurals is a <plurals> resource.
	KindPlurals
	// KindComment is an XML comment (not a resource).
	KindComment
	// KindOther is any other element (<eat-comment/>, <item type="id"/>, <integer> …).
	KindOther
)

// resourceKinds lists the translatable resource kinds in output order.
var resourceKinds = []EntryKind{KindString, KindStringArray, KindPlurals}

// String returns the element name of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStringArray:
		return "string-array"
	case KindPlurals:
		return "plurals"
	case KindComment:
		return "comment"
	}
	return "other"
}

// kindOf maps an element name to its kind.
func kindOf(local string) EntryKind {
	switch local {
	case "string":
		return KindString
	case "string-array":
		return KindStringArray
	case "plurals":
		return KindPlurals
	}
	return KindOther
}

// DefaultProduct is the product value that marks the default variant.
const DefaultProduct = "default"

// NonTranslatableAttrs holds the attribute spellings that mark a resource as
// not translatable when set to "false". "translate" is the legacy spelling
// still found in vendor overlays.
var NonTranslatableAttrs = map[string]bool{
	"translatable": true,
	"translate":    true,
}

// Attr is a single attribute of a resource element, in source order.
type Attr struct {
	// Space is the namespace prefix (or resolved URL), empty for plain attributes.
	Space string
	Name  string
	Value string
}

// Entry represents a single node inside <resources>.
type Entry struct {
	// Kind is the node type.
	Kind EntryKind

	// --- shared fields (KindString / KindStringArray / KindPlurals) ---

	// Name is the resource name (attribute name="…"). Empty for comments.
	Name string
	// Attrs are all attributes of the element in document order.
	Attrs []Attr
	// Product is the value of product="…", empty when the attribute is absent.
	Product string
	// Translatable is false when translatable="false" or translate="false".
	Translatable bool
	// Formatted is false when formatted="false" (no printf placeholders).
	Formatted bool

	// --- KindString ---

	// Value is the string content with inline elements (e.g. <xliff:g>)
	// reconstructed as text. Apostrophes are unescaped (\' → ').
	Value string

	// --- KindStringArray ---

	// Items holds the <item> values in document order.
	Items []string

	// --- KindPlurals ---

	// Plurals maps quantity keyword (zero/one/two/few/many/other) to text.
	Plurals map[string]string
	// PluralOrder preserves the order of quantity keywords as they appear in the file.
	PluralOrder []string

	// --- KindComment ---

	// Comment is the trimmed comment text (without <!-- -->).
	Comment string

	// Raw is the verbatim source text of the node.
	Raw string
	// lead is the whitespace that preceded the node inside <resources>.
	lead string
}

// IsComment reports whether this entry is an XML comment.
func (e *Entry) IsComment() bool { return e.Kind == KindComment }

// IsResource reports whether this entry is a string, string-array or plurals.
func (e *Entry) IsResource() bool {
	return e.Kind == KindString || e.Kind == KindStringArray || e.Kind == KindPlurals
}

// IsTranslatable reports whether this resource should be translated.
func (e *Entry) IsTranslatable() bool {
	return e.IsResource() && e.Translatable
}

// IsDefaultVariant reports whether the entry applies to the default product.
func (e *Entry) IsDefaultVariant() bool {
	return !e.HasProduct() || e.Product == DefaultProduct
}

// HasProduct reports whether the element carries a product attribute.
func (e *Entry) HasProduct() bool {
	_, ok := e.Attr("product")
	return ok
}

// Attr returns the value of the attribute with the given local name.
func (e *Entry) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// File represents a parsed Android resource file.
type File struct {
	// Declaration is the raw <?xml …?> header, empty when the input had none.
	Declaration string
	// Header holds raw comments (with <!-- -->) preceding the <resources> root.
	Header []string
	// Nodes are the children of <resources> in document order.
	Nodes []*Entry

	rootStart   string
	selfClosing bool
	trailing    string
	// byName maps "kind/name" to the indexes of all variants in Nodes.
	byName map[string][]int
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrMalformed is matched by every parse failure.
var ErrMalformed = errors.New("malformed resource document")

// ParseError reports a document that is not a well-formed resource file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v (line %d): %v", ErrMalformed, e.Line, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrMalformed, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformed) hold for every ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrMalformed }

func newParseError(err error) *ParseError {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &ParseError{Line: se.Line, Err: errors.New(se.Msg)}
	}
	return &ParseError{Err: err}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an Android resource file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses Android resource XML. Malformed input returns a *ParseError
// and no File.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := xml.NewDecoder(bytes.NewReader(data))

	const (
		beforeRoot = iota
		inRoot
		afterRoot
	)
	state := beforeRoot
	var lead strings.Builder

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newParseError(err)
		}
		raw := string(data[start:dec.InputOffset()])

		switch state {
		case beforeRoot:
			switch t := tok.(type) {
			case xml.ProcInst:
				if t.Target == "xml" {
					f.Declaration = raw
				}
			case xml.Comment:
				f.Header = append(f.Header, raw)
			case xml.StartElement:
				if t.Name.Local != "resources" {
					return nil, &ParseError{Err: fmt.Errorf("root element is <%s>, want <resources>", t.Name.Local)}
				}
				f.rootStart = raw
				f.selfClosing = strings.HasSuffix(raw, "/>")
				state = inRoot
			}

		case inRoot:
			switch t := tok.(type) {
			case xml.CharData:
				lead.WriteString(raw)
			case xml.Comment:
				f.Nodes = append(f.Nodes, &Entry{
					Kind:    KindComment,
					Comment: strings.TrimSpace(string(t)),
					Raw:     raw,
					lead:    lead.String(),
				})
				lead.Reset()
			case xml.StartElement:
				e, err := parseElement(dec, t)
				if err != nil {
					return nil, newParseError(err)
				}
				e.Raw = string(data[start:dec.InputOffset()])
				e.lead = lead.String()
				lead.Reset()
				f.Nodes = append(f.Nodes, e)
			case xml.EndElement:
				f.trailing = lead.String()
				lead.Reset()
				state = afterRoot
			}

		case afterRoot:
			if _, ok := tok.(xml.StartElement); ok {
				return nil, &ParseError{Err: errors.New("content after the <resources> root")}
			}
		}
	}

	switch state {
	case beforeRoot:
		return nil, &ParseError{Err: errors.New("no <resources> root element")}
	case inRoot:
		return nil, &ParseError{Err: errors.New("unterminated <resources> root")}
	}

	f.reindex()
	return f, nil
}

// parseElement parses a child of <resources> that was already opened.
func parseElement(dec *xml.Decoder, elem xml.StartElement) (*Entry, error) {
	e := &Entry{
		Kind:         kindOf(elem.Name.Local),
		Translatable: true,
		Formatted:    true,
	}
	parseAttrs(e, elem)

	switch e.Kind {
	case KindString:
		var inner strings.Builder
		if err := readElementContent(dec, &inner); err != nil {
			return nil, fmt.Errorf("reading <string name=%q>: %w", e.Name, err)
		}
		e.Value = inner.String()
	case KindStringArray:
		if err := parseItems(dec, e); err != nil {
			return nil, fmt.Errorf("reading <string-array name=%q>: %w", e.Name, err)
		}
	case KindPlurals:
		e.Plurals = make(map[string]string)
		if err := parseItems(dec, e); err != nil {
			return nil, fmt.Errorf("reading <plurals name=%q>: %w", e.Name, err)
		}
	default:
		if err := dec.Skip(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// parseAttrs copies the element attributes and derives the well-known flags.
func parseAttrs(e *Entry, elem xml.StartElement) {
	for _, attr := range elem.Attr {
		e.Attrs = append(e.Attrs, Attr{Space: attr.Name.Space, Name: attr.Name.Local, Value: attr.Value})
		switch {
		case attr.Name.Local == "name":
			e.Name = attr.Value
		case attr.Name.Local == "product":
			e.Product = attr.Value
		case attr.Name.Local == "formatted":
			if strings.EqualFold(attr.Value, "false") {
				e.Formatted = false
			}
		case NonTranslatableAttrs[attr.Name.Local]:
			if strings.EqualFold(attr.Value, "false") {
				e.Translatable = false
			}
		}
	}
}

// parseItems reads the <item> children of a <string-array> or <plurals>.
func parseItems(dec *xml.Decoder, e *Entry) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "item" || depth != 1 {
				depth++
				continue
			}
			var inner strings.Builder
			if err := readElementContent(dec, &inner); err != nil {
				return fmt.Errorf("reading <item>: %w", err)
			}
			if e.Kind == KindStringArray {
				e.Items = append(e.Items, inner.String())
				continue
			}
			for _, attr := range t.Attr {
				if attr.Name.Local == "quantity" && attr.Value != "" {
					e.Plurals[attr.Value] = inner.String()
					e.PluralOrder = append(e.PluralOrder, attr.Value)
					break
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// readElementContent reads the full inner content of an XML element until its
// matching close tag, reconstructing inline child elements (e.g., <xliff:g>)
// as raw text. Apostrophes are unescaped (\' → ').
func readElementContent(dec *xml.Decoder, b *strings.Builder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.WriteString(unescapeAndroidApostrophe(string(t)))
		case xml.StartElement:
			depth++
			b.WriteString("<")
			writeName(b, t.Name)
			for _, attr := range t.Attr {
				b.WriteString(" ")
				writeName(b, attr.Name)
				fmt.Fprintf(b, `="%s"`, attr.Value)
			}
			b.WriteString(">")
		case xml.EndElement:
			depth--
			if depth > 0 {
				b.WriteString("</")
				writeName(b, t.Name)
				b.WriteString(">")
			}
		}
	}
	return nil
}

// writeName writes an element or attribute name. Namespace URLs resolved by
// the decoder are shortened to their well-known prefixes.
func writeName(b *strings.Builder, n xml.Name) {
	if n.Space != "" {
		b.WriteString(namespacePrefix(n.Space))
		b.WriteString(":")
	}
	b.WriteString(n.Local)
}

var knownNamespaces = map[string]string{
	"urn:oasis:names:tc:xliff:document:1.2":       "xliff",
	"http://schemas.android.com/apk/res/android": "android",
	"http://schemas.android.com/tools":           "tools",
}

func namespacePrefix(space string) string {
	if p, ok := knownNamespaces[space]; ok {
		return p
	}
	return space
}

// unescapeAndroidApostrophe converts Android-escaped apostrophes (\') to
// plain apostrophes (').
func unescapeAndroidApostrophe(s string) string {
	return strings.ReplaceAll(s, `\'`, `'`)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func indexKey(kind EntryKind, name string) string {
	return kind.String() + "/" + name
}

// reindex rebuilds the name index after Nodes changed.
func (f *File) reindex() {
	f.byName = make(map[string][]int)
	for i, e := range f.Nodes {
		if e.IsResource() {
			k := indexKey(e.Kind, e.Name)
			f.byName[k] = append(f.byName[k], i)
		}
	}
}

// Entries returns the resource entries (strings, arrays, plurals) in document order.
func (f *File) Entries() []*Entry {
	var out []*Entry
	for _, e := range f.Nodes {
		if e.IsResource() {
			out = append(out, e)
		}
	}
	return out
}

// Variants returns every entry of the given kind sharing name, in document order.
func (f *File) Variants(kind EntryKind, name string) []*Entry {
	idx := f.byName[indexKey(kind, name)]
	out := make([]*Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, f.Nodes[i])
	}
	return out
}

// ElementCount returns the number of element children of <resources>
// (resources and other elements, comments excluded).
func (f *File) ElementCount() int {
	n := 0
	for _, e := range f.Nodes {
		if e.Kind != KindComment {
			n++
		}
	}
	return n
}

// nameSet returns the names of resources of one kind. With translatableOnly,
// non-translatable resources are left out.
func (f *File) nameSet(kind EntryKind, translatableOnly bool) map[string]bool {
	set := make(map[string]bool)
	for _, e := range f.Nodes {
		if e.Kind != kind || (translatableOnly && !e.Translatable) {
			continue
		}
		set[e.Name] = true
	}
	return set
}

// removeIf drops every node for which drop returns true and returns the
// removed nodes in document order.
func (f *File) removeIf(drop func(*Entry) bool) []*Entry {
	var removed []*Entry
	kept := f.Nodes[:0]
	for _, e := range f.Nodes {
		if drop(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	f.Nodes = kept
	if len(removed) > 0 {
		f.reindex()
	}
	return removed
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

var reSpacesBeforeClose = regexp.MustCompile(`[ ]*</resources>`)

// Marshal serializes the file: the declaration (when the input had one), the
// header comments, then <resources> with every remaining node in its original
// form. Spaces immediately before </resources> are collapsed.
func (f *File) Marshal() []byte {
	var b strings.Builder
	if f.Declaration != "" {
		b.WriteString(f.Declaration)
		b.WriteString("\n")
	}
	for _, c := range f.Header {
		b.WriteString(c)
		b.WriteString("\n")
	}

	root := f.rootStart
	if root == "" {
		root = "<resources>"
	}
	if f.selfClosing {
		if len(f.Nodes) == 0 {
			b.WriteString(root)
			b.WriteString("\n")
			return []byte(b.String())
		}
		root = strings.TrimSuffix(strings.TrimSuffix(root, "/>"), " ") + ">"
	}
	b.WriteString(root)

	for _, e := range f.Nodes {
		b.WriteString(e.lead)
		b.WriteString(e.Raw)
	}
	trailing := f.trailing
	if trailing == "" && len(f.Nodes) > 0 {
		trailing = "\n"
	}
	b.WriteString(trailing)
	b.WriteString("</resources>\n")

	return reSpacesBeforeClose.ReplaceAll([]byte(b.String()), []byte("</resources>"))
}

// WriteFile writes the file to disk.
func (f *File) WriteFile(path string) error {
	return os.WriteFile(path, f.Marshal(), 0644)
}
