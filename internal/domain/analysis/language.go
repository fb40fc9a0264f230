package analysis

import "strings"

// Language is one entry of the closed set of languages shared by callers and the engine.
type Language string

const (
	LangPython     Language = "Python"
	LangJavaScript Language = "JavaScript"
	LangTypeScript Language = "TypeScript"
	LangJava       Language = "Java"
	LangC          Language = "C"
	LangCPP        Language = "C++"
	LangCSharp     Language = "C#"
	LangGo         Language = "Go"
	LangRust       Language = "Rust"
	LangRuby       Language = "Ruby"
	LangPHP        Language = "PHP"
	LangSwift      Language = "Swift"
	LangKotlin     Language = "Kotlin"
)

// supported keeps presentation order; adding a language only means adding it here.
var supported = []Language{
	LangPython, LangJavaScript, LangTypeScript, LangJava, LangC, LangCPP, LangCSharp,
	LangGo, LangRust, LangRuby, LangPHP, LangSwift, LangKotlin,
}

var byFoldedName = func() map[string]Language {
	m := make(map[string]Language, len(supported))
	for _, l := range supported {
		m[strings.ToLower(string(l))] = l
	}
	return m
}()

// SupportedLanguages returns a copy of the supported set in presentation order.
func SupportedLanguages() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// ParseLanguage resolves a name case-insensitively to its canonical Language.
func ParseLanguage(name string) (Language, bool) {
	l, ok := byFoldedName[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

func (l Language) Valid() bool {
	_, ok := ParseLanguage(string(l))
	return ok
}

func (l Language) String() string { return string(l) }
