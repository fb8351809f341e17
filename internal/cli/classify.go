package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaenox/emo/internal/classifier"
	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/session"
	"github.com/xaenox/emo/internal/toolargs"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Show how a message is routed and which arguments each tool gets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			c := classifier.NewDefault()
			result := c.Classify(message)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "query_type: %s\n", result.QueryType)
			if fired := c.Explain(message); len(fired) > 0 {
				fmt.Fprintf(out, "rules: %s\n", strings.Join(fired, ", "))
			}
			if len(result.ToolsNeeded) == 0 {
				fmt.Fprintln(out, "tools: none")
				return nil
			}
			sess := session.New("classify")
			for _, tool := range result.ToolsNeeded {
				fmt.Fprintf(out, "tool: %s %s\n", tool, formatArgs(toolargs.Prepare(tool, message, sess)))
			}
			return nil
		},
	}
}

func formatArgs(args models.Args) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, fmt.Sprint(args[k])))
	}
	return strings.Join(parts, " ")
}
