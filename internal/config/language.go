package config

// TargetLanguage is the translation language requested from the service.
const TargetLanguage = "zh"

// CJK language codes (first 3 chars of the code).
var cjkCodes = map[string]bool{
	"zho": true,
	"jpn": true,
	"kor": true,
	"chi": true,
	"zh":  true,
	"ja":  true,
	"ko":  true,
}

// IsCJK returns true if the language code represents Chinese, Japanese, or Korean.
func IsCJK(langCode string) bool {
	if len(langCode) > 3 {
		langCode = langCode[:3]
	}
	return cjkCodes[langCode]
}

// CPLForLang returns the characters-per-line limit for the given language.
func (s SubtitleSettings) CPLForLang(langCode string) int {
	if IsCJK(langCode) {
		return s.CJKCharsPerLine
	}
	return s.LatinCharsPerLine
}
