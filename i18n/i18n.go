// Package i18n translates the user-facing messages of the crowdsync CLI.
//
// It wraps gotext with T() and N(). Catalogs are embedded from
// locales/{lang}/LC_MESSAGES/crowdsync.po and selected by Init():
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	logInfo(i18n.N("Cleaned %d file", "Cleaned %d files", n), n)
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// locales embeds the .po catalogs.
//
//go:embed all:locales
var locales embed.FS

const domain = "crowdsync"

// sourceLanguage is the language of the msgids.
const sourceLanguage = "en"

// po is the gotext locale object used for translations.
var po *gotext.Locale

// Init selects the catalog for lang, or for the environment when lang is
// empty. Call it once before building commands.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(match(lang), locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string. If no translation is available, returns the
// original string unchanged (standard gettext passthrough behavior).
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms. The singular form is used
// when n == 1, the plural form otherwise (exact rules depend on the
// target language's plural formula).
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// Available returns the languages with an embedded catalog, sorted.
func Available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// match returns the catalog that best serves a POSIX or BCP 47 locale
// name, or the source language when none does.
func match(lang string) string {
	avail := Available()
	supported := make([]language.Tag, 0, len(avail)+1)
	supported = append(supported, language.Make(sourceLanguage))
	for _, a := range avail {
		supported = append(supported, language.Make(strings.ReplaceAll(a, "_", "-")))
	}

	want, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return sourceLanguage
	}
	_, idx, conf := language.NewMatcher(supported).Match(want)
	if idx == 0 || conf == language.No {
		return sourceLanguage
	}
	return avail[idx-1]
}

// detectLanguage follows the GNU gettext variable order.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			// LANGUAGE is a colon-separated list
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			// ru_RU.UTF-8 -> ru_RU
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return sourceLanguage
}
