package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studyhall/internal/storage"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long:  `Add tasks and assignments, list them, and mark them done.`,
}

// parseDue accepts a full RFC 3339 timestamp or a bare date, which is
// read as end of that local day.
func parseDue(s string) (time.Time, error) {
	if due, err := time.Parse(time.RFC3339, s); err == nil {
		return due, nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Second), nil
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		email, _ := cmd.Flags().GetString("user")
		all, _ := cmd.Flags().GetBool("all")

		tasks, err := provider.ListTasks(ctx, userIDByEmail(ctx, email), all)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing tasks: %v\n", err)
			os.Exit(1)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tDUE\tSTATUS")
		for _, task := range tasks {
			due := "-"
			if task.DueAt != nil {
				due = task.DueAt.Local().Format("2006-01-02 15:04")
			}
			status := "open"
			if task.DoneAt != nil {
				status = "done"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", task.ID, task.Title, due, status)
		}
		w.Flush()
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		email, _ := cmd.Flags().GetString("user")
		dueFlag, _ := cmd.Flags().GetString("due")
		courseID, _ := cmd.Flags().GetInt64("course")
		notes, _ := cmd.Flags().GetString("notes")

		task := storage.Task{
			UserID:    userIDByEmail(ctx, email),
			Title:     args[0],
			Notes:     notes,
			CreatedAt: time.Now(),
		}
		if dueFlag != "" {
			due, err := parseDue(dueFlag)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid --due time: %v\n", err)
				os.Exit(1)
			}
			task.DueAt = &due
		}
		if courseID > 0 {
			task.CourseID = &courseID
		}

		id, err := provider.CreateTask(ctx, task)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating task: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Task '%s' created with ID %d.\n", task.Title, id)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := parseID(args[0])

		task, err := provider.GetTask(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading task: %v\n", err)
			os.Exit(1)
		}
		if task == nil {
			fmt.Fprintf(os.Stderr, "No task with ID %d\n", id)
			os.Exit(1)
		}

		if err := provider.CompleteTask(ctx, id, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Error completing task: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Task '%s' done.\n", task.Title)
	},
}

func init() {
	taskListCmd.Flags().StringP("user", "u", "", "Email of the task owner")
	taskListCmd.Flags().BoolP("all", "a", false, "Include completed tasks")

	taskAddCmd.Flags().StringP("user", "u", "", "Email of the task owner")
	taskAddCmd.Flags().StringP("due", "d", "", "Due time, RFC 3339 or YYYY-MM-DD")
	taskAddCmd.Flags().Int64("course", 0, "Course the task belongs to")
	taskAddCmd.Flags().StringP("notes", "n", "", "Free-form notes")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskDoneCmd)
	rootCmd.AddCommand(taskCmd)
}
