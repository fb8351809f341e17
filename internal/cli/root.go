// Package cli wires the assistant into the emo command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "emo",
		Short:         "Emo, a personal assistant for tasks, memory, web and mail",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Config file path (optional).")

	load := func() (*app, error) { return newApp(configPath) }

	cmd.AddCommand(newChatCmd(load))
	cmd.AddCommand(newBotCmd(load))
	cmd.AddCommand(newTasksCmd(load))
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newToolCmd(load))
	return cmd
}
