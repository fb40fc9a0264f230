package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

func NewLanguagesCmd() *cobra.Command {
	var outputFormat string
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			langs := domain.SupportedLanguages()
			out := cmd.OutOrStdout()
			if outputFormat == "json" {
				data, err := json.Marshal(langs)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			cyan := color.New(color.FgCyan, color.Bold)
			cyan.Fprintln(out, "Supported languages:")
			for _, l := range langs {
				fmt.Fprintf(out, "  • %s\n", l)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "human", "Output format (human, json)")
	return cmd
}
