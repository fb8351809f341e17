package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newTasksCmd(load func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Maintain the to-do list",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			store, err := a.taskStore(cmd.Context())
			if err != nil {
				return err
			}

			tasks, err := store.ListPending(cmd.Context())
			if all {
				tasks, err = store.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}
			for i, t := range tasks {
				line := fmt.Sprintf("%d. [%s] %s", i+1, t.Status, t.Text)
				if t.Deadline != nil {
					line += " (due " + t.Deadline.Format("2006-01-02 15:04") + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "Include completed tasks")

	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task; a deadline is read from the text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			store, err := a.taskStore(cmd.Context())
			if err != nil {
				return err
			}

			task, err := store.Add(cmd.Context(), strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", task.Text)
			if task.Deadline != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Deadline: %s\n", task.Deadline.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	done := &cobra.Command{
		Use:   "done <n>",
		Short: "Complete the n-th pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid task number %q", args[0])
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			store, err := a.taskStore(cmd.Context())
			if err != nil {
				return err
			}

			task, err := store.CompleteByIndex(cmd.Context(), index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed: %s\n", task.Text)
			return nil
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			store, err := a.taskStore(cmd.Context())
			if err != nil {
				return err
			}

			n, err := store.DeleteCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed task(s).\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, add, done, purge)
	return cmd
}
