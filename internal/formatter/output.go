package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/report"
)

// Formats lists the accepted values of the output flag.
var Formats = []string{"human", "json", "yaml", "markdown"}

// DisplayResults formats and writes one submission
func DisplayResults(w io.Writer, sub *domain.Submission, format string) error {
	switch format {
	case "json":
		return displayJSON(w, sub)
	case "yaml":
		return displayYAML(w, sub)
	case "markdown", "md":
		_, err := io.WriteString(w, report.Markdown(sub))
		return err
	case "human", "":
		displayHuman(w, sub)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use one of: %s)", format, strings.Join(Formats, ", "))
	}
}

// DisplayError prints a terminal error with the action the user should take.
func DisplayError(w io.Writer, err error) {
	cat, advice := domain.Advise(err)
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(w, "✖ %s\n", advice)
	fmt.Fprintf(w, "   %s\n", color.HiBlackString("kind=%s category=%s: %v", domain.KindOf(err), cat, err))
}

func displayJSON(w io.Writer, sub *domain.Submission) error {
	output, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, sub *domain.Submission) error {
	output, err := yaml.Marshal(sub)
	if err != nil {
		return err
	}
	_, err = w.Write(output)
	return err
}

func displayHuman(w io.Writer, sub *domain.Submission) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	o := sub.Outcome
	if o == nil {
		red.Fprintf(w, "✖ ANALYSIS FAILED (%s)\n", dash(string(sub.ErrorKind)))
		fmt.Fprintf(w, "   %s\n", dash(sub.ErrorMessage))
		return
	}

	if o.Partial() {
		yellow.Fprintf(w, "⚠️  %s\n\n", o.Summary())
	} else {
		green.Fprintf(w, "✔ %s\n\n", o.Summary())
	}

	if c := o.OriginalComplexity; c != nil {
		white.Fprintf(w, "📊 ORIGINAL (%s): ", sub.SourceLanguage)
		fmt.Fprintf(w, "time %s, space %s\n\n", dash(c.Time), dash(c.Space))
	}

	for _, t := range o.Translations {
		cyan.Fprintf(w, "── %s ", t.Language)
		fmt.Fprintf(w, "%s\n", color.HiBlackString("time %s, space %s", dash(t.TimeComplexity), dash(t.SpaceComplexity)))
		fmt.Fprintln(w, indent(strings.TrimRight(t.Code, "\n"), "   "))
		if t.Explanation != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, wrapText(t.Explanation, 80, "   "))
		}
		fmt.Fprintln(w)
	}

	if len(o.Failures) > 0 {
		red.Fprintln(w, "✖ FAILED LANGUAGES:")
		langs := make([]string, 0, len(o.Failures))
		for l := range o.Failures {
			langs = append(langs, string(l))
		}
		sort.Strings(langs)
		for _, l := range langs {
			fmt.Fprintf(w, "   %s: %s\n", l, color.YellowString("%s", o.Failures[domain.Language(l)].Error()))
		}
		fmt.Fprintln(w)
	}

	if len(o.Suggestions) > 0 {
		cyan.Fprintln(w, "💡 SUGGESTIONS:")
		for i, s := range o.Suggestions {
			fmt.Fprintf(w, "   %d. %s\n", i+1, s)
		}
		fmt.Fprintln(w)
	}

	if len(o.Applications) > 0 {
		white.Fprintln(w, "🧭 APPLICATIONS:")
		for _, a := range o.Applications {
			fmt.Fprintf(w, "   • %s\n", a)
		}
		fmt.Fprintln(w)
	}

	if tc := o.TestCases; tc != nil && len(tc.Basic)+len(tc.Edge) > 0 {
		white.Fprintln(w, "🧪 TEST CASES:")
		for _, c := range tc.Basic {
			fmt.Fprintf(w, "   %s → %s  %s\n", c.Input, c.Expected, color.HiBlackString("%s", c.Description))
		}
		for _, c := range tc.Edge {
			fmt.Fprintf(w, "   [edge] %s → %s  %s\n", c.Input, c.Expected, color.HiBlackString("%s", c.Description))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json, -o yaml or -o markdown for machine-readable output"))
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}
		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}
	return strings.TrimSuffix(result.String(), "\n")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
