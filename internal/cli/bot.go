package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/emo/internal/bot"
)

func newBotCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the deadline reminder loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Telegram.Token == "" {
				return errors.New("telegram token is not set (telegram.token or TELEGRAM_TOKEN)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}
			scanner, err := a.reminders(ctx)
			if err != nil {
				return err
			}

			b, err := bot.New(a.cfg.Telegram.Token, bot.Deps{
				Engine:           engine,
				Sessions:         a.sessions,
				Tasks:            a.tasks,
				Alerts:           scanner,
				OwnerChatID:      a.cfg.Telegram.OwnerChatID,
				ReminderInterval: a.cfg.Telegram.ReminderInterval,
			}, a.logger)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return b.Start(gctx) })
			g.Go(func() error { return b.RunReminders(gctx) })
			return g.Wait()
		},
	}
}
