package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studyhall/internal/habit"
	"studyhall/internal/storage"
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage habits",
	Long:  `Create habits, list them with their streaks, and log completions.`,
}

// userIDByEmail resolves the --user flag. CLI habit commands always act
// on behalf of a named account.
func userIDByEmail(ctx context.Context, email string) int64 {
	if email == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(1)
	}
	user, err := provider.GetUserByEmail(ctx, email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error looking up user: %v\n", err)
		os.Exit(1)
	}
	if user == nil {
		fmt.Fprintf(os.Stderr, "No user with email %s\n", email)
		os.Exit(1)
	}
	return user.ID
}

var habitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's habits with streaks",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		email, _ := cmd.Flags().GetString("user")
		userID := userIDByEmail(ctx, email)

		summaries, err := habit.NewTracker(provider).Overview(ctx, userID, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing habits: %v\n", err)
			os.Exit(1)
		}

		if len(summaries) == 0 {
			fmt.Println("No habits found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFREQUENCY\tSTREAK\tPERIOD\tTODAY")
		for _, s := range summaries {
			today := " "
			if s.CompletedToday {
				today = "x"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d/%d\t%s\n",
				s.Habit.ID, s.Habit.Name, s.Habit.Frequency,
				s.Streak, s.PeriodCount, s.Habit.TargetCount, today)
		}
		w.Flush()
	},
}

var habitCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a habit",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		email, _ := cmd.Flags().GetString("user")
		color, _ := cmd.Flags().GetString("color")
		frequency, _ := cmd.Flags().GetString("frequency")
		target, _ := cmd.Flags().GetInt("target")

		switch storage.Frequency(frequency) {
		case storage.FrequencyDaily, storage.FrequencyWeekly, storage.FrequencyMonthly:
		default:
			fmt.Fprintf(os.Stderr, "Unknown frequency %q (Daily, Weekly or Monthly)\n", frequency)
			os.Exit(1)
		}
		if target < 1 {
			fmt.Fprintln(os.Stderr, "--target must be at least 1")
			os.Exit(1)
		}

		id, err := provider.CreateHabit(ctx, storage.Habit{
			UserID:      userIDByEmail(ctx, email),
			Name:        args[0],
			Color:       color,
			Frequency:   storage.Frequency(frequency),
			TargetCount: target,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating habit: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Habit '%s' created with ID %d.\n", args[0], id)
	},
}

var habitLogCmd = &cobra.Command{
	Use:   "log <habit-id>",
	Short: "Log a completion for a habit",
	Long: `Mark a habit completed for today, or for --day. Logging a day that is
already marked raises its completion count instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		day, _ := cmd.Flags().GetString("day")

		tracker := habit.NewTracker(provider)
		entry, err := tracker.Log(ctx, parseID(args[0]), day)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error logging completion: %v\n", err)
			os.Exit(1)
		}

		streak, err := tracker.Streak(ctx, entry.HabitID, day)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error computing streak: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Logged %s (count %d). Current streak: %d.\n", entry.Day, entry.Count, streak)
	},
}

func init() {
	habitListCmd.Flags().StringP("user", "u", "", "Email of the habit owner")

	habitCreateCmd.Flags().StringP("user", "u", "", "Email of the habit owner")
	habitCreateCmd.Flags().StringP("color", "c", "", "Display color, e.g. #34c759")
	habitCreateCmd.Flags().StringP("frequency", "f", string(storage.FrequencyDaily), "Target period (Daily, Weekly, Monthly)")
	habitCreateCmd.Flags().IntP("target", "t", 1, "Completions per period")

	habitLogCmd.Flags().StringP("day", "d", "", "Calendar day YYYY-MM-DD (default today)")

	habitCmd.AddCommand(habitListCmd)
	habitCmd.AddCommand(habitCreateCmd)
	habitCmd.AddCommand(habitLogCmd)
	rootCmd.AddCommand(habitCmd)
}
