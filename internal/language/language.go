// Package language maps ISO 639-1 codes to the names used in prompts and captions.
package language

import "strings"

// Default is used when a story does not name a language.
const Default = "en"

var names = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
	"ar": "Arabic",
	"bn": "Bengali",
	"ur": "Urdu",
	"ta": "Tamil",
	"te": "Telugu",
	"mr": "Marathi",
	"gu": "Gujarati",
	"kn": "Kannada",
	"ml": "Malayalam",
	"pa": "Punjabi",
	"or": "Odia",
	"as": "Assamese",
	"ne": "Nepali",
	"si": "Sinhala",
	"my": "Myanmar",
	"th": "Thai",
	"vi": "Vietnamese",
	"id": "Indonesian",
	"ms": "Malay",
	"tl": "Filipino",
	"sw": "Swahili",
	"am": "Amharic",
	"yo": "Yoruba",
	"ig": "Igbo",
	"ha": "Hausa",
}

// Name returns the human-readable name for code. Unknown codes are
// returned unchanged.
func Name(code string) string {
	if name, ok := names[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// Known reports whether code has a registered name.
func Known(code string) bool {
	_, ok := names[strings.ToLower(code)]
	return ok
}

// Normalize lower-cases code and substitutes Default for an empty value.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Default
	}
	return code
}
