package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// Markdown renders a submission as a readable report.
func Markdown(sub *domain.Submission) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis %s\n\n", sub.ID)
	fmt.Fprintf(&b, "- **Source language:** %s\n", sub.SourceLanguage)
	fmt.Fprintf(&b, "- **Target languages:** %s\n", joinLanguages(sub.TargetLanguages))
	fmt.Fprintf(&b, "- **Status:** %s\n", sub.Status)
	if sub.Attempts > 0 {
		fmt.Fprintf(&b, "- **Attempts:** %d\n", sub.Attempts)
	}
	if !sub.SubmittedAt.IsZero() {
		fmt.Fprintf(&b, "- **Submitted:** %s\n", sub.SubmittedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if sub.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", sub.Model)
	}
	b.WriteString("\n")

	o := sub.Outcome
	if o == nil {
		b.WriteString("## Error\n\n")
		if sub.ErrorKind != "" {
			fmt.Fprintf(&b, "`%s`: ", sub.ErrorKind)
		}
		msg := sub.ErrorMessage
		if msg == "" {
			msg = "no result"
		}
		b.WriteString(msg + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "> %s\n\n", o.Summary())

	if c := o.OriginalComplexity; c != nil {
		b.WriteString("## Original complexity\n\n")
		b.WriteString("| Time | Space |\n|---|---|\n")
		fmt.Fprintf(&b, "| %s | %s |\n\n", cell(c.Time), cell(c.Space))
	}

	for _, t := range o.Translations {
		fmt.Fprintf(&b, "## %s\n\n", t.Language)
		ticks := codeFence(t.Code)
		fmt.Fprintf(&b, "%s%s\n%s\n%s\n\n", ticks, fence(t.Language), strings.TrimRight(t.Code, "\n"), ticks)
		if t.TimeComplexity != "" || t.SpaceComplexity != "" {
			fmt.Fprintf(&b, "Time: `%s`, space: `%s`\n\n", dash(t.TimeComplexity), dash(t.SpaceComplexity))
		}
		if t.Explanation != "" {
			b.WriteString(t.Explanation + "\n\n")
		}
	}

	if len(o.Failures) > 0 {
		b.WriteString("## Failed languages\n\n")
		langs := make([]string, 0, len(o.Failures))
		for l := range o.Failures {
			langs = append(langs, string(l))
		}
		sort.Strings(langs)
		for _, l := range langs {
			fmt.Fprintf(&b, "- **%s**: %s\n", l, o.Failures[domain.Language(l)].Error())
		}
		b.WriteString("\n")
	}

	writeList(&b, "Suggestions", o.Suggestions)
	writeList(&b, "Applications", o.Applications)

	if tc := o.TestCases; tc != nil && (len(tc.Basic) > 0 || len(tc.Edge) > 0) {
		b.WriteString("## Test cases\n\n")
		b.WriteString("| Kind | Input | Expected | Description |\n|---|---|---|---|\n")
		for _, c := range tc.Basic {
			fmt.Fprintf(&b, "| basic | %s | %s | %s |\n", cell(c.Input), cell(c.Expected), cell(c.Description))
		}
		for _, c := range tc.Edge {
			fmt.Fprintf(&b, "| edge | %s | %s | %s |\n", cell(c.Input), cell(c.Expected), cell(c.Description))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders the Markdown report to a standalone HTML page.
func HTML(sub *domain.Submission) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank | html.Safelink | html.SkipHTML,
		Title: fmt.Sprintf("Analysis %s", sub.ID),
	})
	return markdown.ToHTML([]byte(Markdown(sub)), p, r)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func joinLanguages(langs []domain.Language) string {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// fence maps a language to its code-fence info string.
func fence(l domain.Language) string {
	switch l {
	case domain.LangCPP:
		return "cpp"
	case domain.LangCSharp:
		return "csharp"
	default:
		return strings.ToLower(string(l))
	}
}

// codeFence returns a backtick fence longer than any backtick run inside code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return dash(s)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
