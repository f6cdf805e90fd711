package android

import (
	"path"
	"strings"

	"golang.org/x/text/language"
)

// LocaleOfPath returns the language tag encoded in the values-XX directory of
// a resource file path ("…/res/values-pt-rBR/strings.xml" → pt-BR). The
// second result is false for the default values/ directory and for
// qualifiers that are not a language (values-land, values-sw600dp …).
func LocaleOfPath(p string) (language.Tag, bool) {
	dir := path.Base(path.Dir(strings.ReplaceAll(p, "\\", "/")))
	if !strings.HasPrefix(dir, "values-") {
		return language.Und, false
	}
	return parseAndroidLocale(strings.TrimPrefix(dir, "values-"))
}

// parseAndroidLocale converts an Android qualifier to a BCP-47 tag.
// e.g., "pt-rBR" -> pt-BR, "b+sr+Latn" -> sr-Latn, "ru" -> ru
func parseAndroidLocale(q string) (language.Tag, bool) {
	if strings.HasPrefix(q, "b+") {
		q = strings.ReplaceAll(strings.TrimPrefix(q, "b+"), "+", "-")
	} else {
		parts := strings.Split(q, "-")
		q = parts[0]
		if len(parts) > 1 && strings.HasPrefix(parts[1], "r") && len(parts[1]) == 3 {
			q += "-" + parts[1][1:]
		}
	}
	base := strings.SplitN(q, "-", 2)[0]
	if len(base) < 2 || len(base) > 3 {
		return language.Und, false
	}
	tag, err := language.Parse(q)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
