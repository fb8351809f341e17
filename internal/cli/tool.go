package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/toolargs"
)

func newToolCmd(load func() (*app, error)) *cobra.Command {
	var overrides map[string]string

	cmd := &cobra.Command{
		Use:   "tool <name> [message]",
		Short: "Run one tool directly",
		Long:  "Arguments are prepared from the message the same way a chat turn does; --arg sets them explicitly.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := models.ParseToolName(args[0])
			if name == models.ToolUnknown {
				return fmt.Errorf("unknown tool %q", args[0])
			}

			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			inv, err := a.tools(cmd.Context())
			if err != nil {
				return err
			}

			sess := a.sessions.Get("cli")
			toolArgs := models.Args{}
			if message := strings.Join(args[1:], " "); message != "" {
				toolArgs = toolargs.Prepare(name, message, sess)
			}
			for k, v := range overrides {
				toolArgs[k] = v
			}

			out := inv.Invoke(cmd.Context(), sess, name, toolArgs)
			fmt.Fprintln(cmd.OutOrStdout(), out.Result)
			if !out.Succeeded() {
				return out.Err
			}
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&overrides, "arg", nil, "Tool argument as key=value (repeatable)")
	return cmd
}
