package domain

import "strings"

// UnknownLanguage is reported by detectors that could not identify the text.
const UnknownLanguage = "unknown"

// DetectionResult is a single language guess, confidence in [0, 1].
type DetectionResult struct {
	Language   string
	Confidence float64
}

type Language struct {
	Code string
	Name string
}

//nolint:gochecknoglobals // Fixed menu of target languages.
var TargetLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "tr", Name: "Turkish"},
	{Code: "ru", Name: "Russian"},
}

// LookupTargetLanguage reports whether code is one of TargetLanguages.
func LookupTargetLanguage(code string) (Language, bool) {
	code = NormalizeLanguageCode(code)

	for _, lang := range TargetLanguages {
		if lang.Code == code {
			return lang, true
		}
	}

	return Language{}, false
}

// LanguageName returns a human name for code, or the code itself.
func LanguageName(code string) string {
	if lang, ok := LookupTargetLanguage(code); ok {
		return lang.Name
	}

	return NormalizeLanguageCode(code)
}

// NormalizeLanguageCode lowercases code and strips a region suffix:
// "EN" -> "en", "fr-CA" -> "fr", "pt_BR" -> "pt".
func NormalizeLanguageCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))

	if idx := strings.IndexAny(code, "-_"); idx >= 0 {
		code = code[:idx]
	}

	return code
}
