package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// known lists the languages transcription is routinely run in. Each row
// holds the ISO 639-1 code, its English name and the ISO 639-2 forms
// (terminology first, then bibliographic) that media tags and WhisperX use.
var known = []struct {
	code, name string
	iso3       []string
}{
	{"en", "English", []string{"eng"}},
	{"es", "Spanish", []string{"spa"}},
	{"fr", "French", []string{"fra", "fre"}},
	{"de", "German", []string{"deu", "ger"}},
	{"it", "Italian", []string{"ita"}},
	{"pt", "Portuguese", []string{"por"}},
	{"ja", "Japanese", []string{"jpn"}},
	{"ko", "Korean", []string{"kor"}},
	{"zh", "Chinese", []string{"zho", "chi"}},
	{"ru", "Russian", []string{"rus"}},
	{"ar", "Arabic", []string{"ara"}},
	{"hi", "Hindi", []string{"hin"}},
	{"nl", "Dutch", []string{"nld", "dut"}},
	{"pl", "Polish", []string{"pol"}},
	{"sv", "Swedish", []string{"swe"}},
	{"da", "Danish", []string{"dan"}},
	{"no", "Norwegian", []string{"nor"}},
	{"fi", "Finnish", []string{"fin"}},
}

// aliases maps every lower-cased spelling in known to its ISO 639-1 code;
// names maps codes back to display names.
var aliases, names = func() (map[string]string, map[string]string) {
	a := make(map[string]string, len(known)*4)
	n := make(map[string]string, len(known))
	for _, k := range known {
		a[k.code] = k.code
		a[strings.ToLower(k.name)] = k.code
		for _, c := range k.iso3 {
			a[c] = k.code
		}
		n[k.code] = k.name
	}
	return a, n
}()

// ToISO2 reduces a language code, English name or BCP 47 tag to its ISO
// 639-1 code. Unknown two-letter codes pass through unchanged; anything
// else unrecognized yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch {
	case code == "":
		return ""
	case aliases[code] != "":
		return aliases[code]
	case len(code) == 2:
		return code
	}
	tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	if base, conf := tag.Base(); conf != xlang.No && len(base.String()) == 2 {
		return base.String()
	}
	return ""
}

// DisplayName returns the English name for a language code, "Unknown"
// for an empty code, or the code upper-cased when nothing matches.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	if name, ok := names[aliases[strings.ToLower(code)]]; ok {
		return name
	}
	if tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-")); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
