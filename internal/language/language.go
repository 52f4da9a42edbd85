package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// wordForms maps full language names to BCP 47 codes for inputs the tag
// parser does not accept.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

func parse(value string) (xlang.Tag, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return xlang.Tag{}, false
	}
	if code, ok := wordForms[value]; ok {
		value = code
	}
	tag, err := xlang.Parse(value)
	if err != nil {
		return xlang.Tag{}, false
	}
	return tag, true
}

// ToISO2 normalizes any recognized language identifier ("en", "eng",
// "en-US", "english") to its base code. Returns "" for unknown input.
func ToISO2(value string) string {
	tag, ok := parse(value)
	if !ok {
		return ""
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return ""
	}
	return base.String()
}

// DisplayName returns the English display name for a language identifier,
// or "" when the input is not recognized.
func DisplayName(value string) string {
	tag, ok := parse(value)
	if !ok {
		return ""
	}
	return display.English.Languages().Name(tag)
}
