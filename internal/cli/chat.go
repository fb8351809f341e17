package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaenox/emo/internal/assistant"
)

func newChatCmd(load func() (*app, error)) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Emo in the terminal",
		Long:  "Reads one message per line. \":new\" starts a new conversation, \":quit\" leaves.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())
			in.Buffer(make([]byte, 64*1024), 1024*1024)

			fmt.Fprintln(out, "Emo is listening. Type :quit to leave.")
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					return in.Err()
				}
				line := strings.TrimSpace(in.Text())
				switch line {
				case "":
					continue
				case ":quit", ":q":
					return nil
				case ":new":
					a.sessions.Reset(sessionID)
					fmt.Fprintln(out, "Started a new conversation.")
					continue
				}

				sess := a.sessions.Get(sessionID)
				printed := false
				reply := engine.ChatStream(ctx, sess, line, func(delta string) error {
					printed = true
					_, err := fmt.Fprint(out, delta)
					return err
				})
				finishReply(out, reply, printed)
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "cli", "Session id")
	return cmd
}

// finishReply completes a turn whose text may already be partly streamed.
// Quiz turns arrive only in the reply; a failure may follow a partial
// stream, so its apology goes on a line of its own.
func finishReply(out io.Writer, reply assistant.Reply, streamed bool) {
	switch {
	case !streamed:
		fmt.Fprint(out, reply.Response)
	case reply.Failed:
		fmt.Fprint(out, "\n"+reply.Response)
	}
	fmt.Fprintln(out)
	if len(reply.ToolsUsed) > 0 {
		fmt.Fprintf(out, "[tools: %s]\n", strings.Join(reply.ToolsUsed, ", "))
	}
}
