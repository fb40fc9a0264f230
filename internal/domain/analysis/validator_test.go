package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		req  AnalysisRequest
		kind ErrorKind
		lang string
	}{
		{
			name: "empty code",
			req:  AnalysisRequest{SourceCode: "", SourceLanguage: "Python", TargetLanguages: []string{"Go"}},
			kind: KindEmptyCode,
		},
		{
			name: "whitespace only code",
			req:  AnalysisRequest{SourceCode: " \n\t ", SourceLanguage: "Python", TargetLanguages: []string{"Go"}},
			kind: KindEmptyCode,
		},
		{
			name: "unknown source",
			req:  AnalysisRequest{SourceCode: "x", SourceLanguage: "Cobol", TargetLanguages: []string{"Go"}},
			kind: KindInvalidLanguage,
			lang: "Cobol",
		},
		{
			name: "no targets",
			req:  AnalysisRequest{SourceCode: "x", SourceLanguage: "Python"},
			kind: KindNoTargetLanguages,
		},
		{
			name: "unknown target",
			req:  AnalysisRequest{SourceCode: "x", SourceLanguage: "Python", TargetLanguages: []string{"Go", "Brainfuck"}},
			kind: KindInvalidLanguage,
			lang: "Brainfuck",
		},
		{
			name: "source among targets",
			req:  AnalysisRequest{SourceCode: "x", SourceLanguage: "Python", TargetLanguages: []string{"Go", "python"}},
			kind: KindSourceEqualsTarget,
			lang: "Python",
		},
		{
			name: "empty code wins over other problems",
			req:  AnalysisRequest{SourceCode: "", SourceLanguage: "Cobol"},
			kind: KindEmptyCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.kind, ve.Kind)
			assert.Equal(t, tt.lang, ve.Language)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestValidateCanonicalizesAndCollapsesDuplicates(t *testing.T) {
	req := AnalysisRequest{
		SourceCode:      "def f(): pass",
		SourceLanguage:  " python ",
		TargetLanguages: []string{"rust", "Go", "RUST", "c++"},
	}
	v, err := Validate(req)
	require.NoError(t, err)
	assert.Equal(t, LangPython, v.SourceLanguage())
	assert.Equal(t, []Language{LangRust, LangGo, LangCPP}, v.TargetLanguages())
	assert.Equal(t, "def f(): pass", v.SourceCode())
}

func TestValidateIsIdempotent(t *testing.T) {
	req := AnalysisRequest{SourceCode: "x", SourceLanguage: "Java", TargetLanguages: []string{"Kotlin", "C#"}}
	a, errA := Validate(req)
	b, errB := Validate(req)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)

	req.SourceLanguage = "Kotlin"
	_, errA = Validate(req)
	_, errB = Validate(req)
	assert.Equal(t, errA, errB)
}

func TestValidatedRequestAccessorsReturnCopies(t *testing.T) {
	v, err := Validate(AnalysisRequest{SourceCode: "x", SourceLanguage: "Go", TargetLanguages: []string{"Rust"}})
	require.NoError(t, err)
	targets := v.TargetLanguages()
	targets[0] = LangPHP
	assert.Equal(t, []Language{LangRust}, v.TargetLanguages())
}

func TestParseLanguage(t *testing.T) {
	l, ok := ParseLanguage("typescript")
	assert.True(t, ok)
	assert.Equal(t, LangTypeScript, l)

	_, ok = ParseLanguage("")
	assert.False(t, ok)

	all := SupportedLanguages()
	all[0] = "Nope"
	assert.Equal(t, LangPython, SupportedLanguages()[0])
	assert.Len(t, SupportedLanguages(), 13)
}
