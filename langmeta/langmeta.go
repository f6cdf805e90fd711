// Package langmeta describes languages for CLI output: English and native
// names from CLDR, and an emoji flag for the language's region.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Tag     language.Tag
	English string
	// Name is the language's name for itself.
	Name string
	Flag string
}

// Label returns "flag English (Native)", leaving out what is unknown or
// repeated.
func (m Meta) Label() string {
	label := m.English
	if m.Name != "" && m.Name != m.English {
		label += " (" + m.Name + ")"
	}
	if m.Flag != "" {
		label = m.Flag + " " + label
	}
	return label
}

var englishNames = display.English.Tags()

// Of returns the metadata of tag. The flag uses the explicit region of the
// tag or, failing that, its most likely region.
func Of(tag language.Tag) Meta {
	m := Meta{
		Tag:     tag,
		English: englishNames.Name(tag),
		Name:    display.Self.Name(tag),
	}
	if m.English == "" {
		m.English = tag.String()
	}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = flagFromRegion(region.String())
	}
	return m
}

// Resolve returns best-effort metadata for a locale name such as pt_BR,
// pt-BR or ru. Names that do not parse are passed through.
func Resolve(lang string) Meta {
	tag, err := language.Parse(canonicalize(lang))
	if err != nil {
		return Meta{English: lang}
	}
	return Of(tag)
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// flagFromRegion maps a two-letter region code to its regional indicator
// pair. Anything else yields "".
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(region) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + r - 'A')
	}
	return b.String()
}
