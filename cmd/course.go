package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studyhall/internal/roster"
	"studyhall/internal/storage"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
	Long:  `Create, list, and archive courses, and import enrollment rosters.`,
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all courses",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		courses, err := provider.ListCourses(ctx, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing courses: %v\n", err)
			os.Exit(1)
		}

		if len(courses) == 0 {
			fmt.Println("No courses found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tTITLE\tCREDITS\tSTATUS")
		for _, course := range courses {
			status := "active"
			if course.ArchivedAt != nil {
				status = "archived"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%s\n", course.ID, course.Code, course.Title, course.Credits, status)
		}
		w.Flush()
	},
}

var courseCreateCmd = &cobra.Command{
	Use:   "create <code> <title>",
	Short: "Create a new course",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		credits, _ := cmd.Flags().GetFloat64("credits")
		ownerEmail, _ := cmd.Flags().GetString("owner")

		var ownerID int64
		if ownerEmail != "" {
			owner, err := provider.GetUserByEmail(ctx, ownerEmail)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error looking up owner: %v\n", err)
				os.Exit(1)
			}
			if owner == nil {
				fmt.Fprintf(os.Stderr, "No user with email %s\n", ownerEmail)
				os.Exit(1)
			}
			ownerID = owner.ID
		}

		course := storage.Course{
			OwnerID:   ownerID,
			Code:      args[0],
			Title:     args[1],
			Credits:   credits,
			CreatedAt: time.Now(),
		}

		id, err := provider.CreateCourse(ctx, course)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating course: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Course '%s' created with ID %d.\n", course.Code, id)
	},
}

var courseArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a course",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid ID: %v\n", err)
			os.Exit(1)
		}

		if err := provider.ArchiveCourse(ctx, id, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Error archiving course: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Course %d archived.\n", id)
	},
}

var courseRosterCmd = &cobra.Command{
	Use:   "roster <course-id> <csv-file>",
	Short: "Import an enrollment roster from a CSV file",
	Long: `Import a course roster. Each row enrolls a student by email,
creating an account for addresses not seen before.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		var courseID int64
		if _, err := fmt.Sscanf(args[0], "%d", &courseID); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid course ID: %v\n", err)
			os.Exit(1)
		}

		rows, err := roster.ParseFile(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing roster: %v\n", err)
			os.Exit(1)
		}

		result, err := roster.NewImporter(provider).Import(ctx, courseID, rows)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing roster: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Roster imported: %d enrolled, %d accounts created, %d skipped.\n",
			result.Enrolled, result.Created, result.Skipped)
	},
}

func init() {
	courseCreateCmd.Flags().Float64P("credits", "c", 0, "Credit value of the course")
	courseCreateCmd.Flags().StringP("owner", "o", "", "Email of the owning instructor")

	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseCreateCmd)
	courseCmd.AddCommand(courseArchiveCmd)
	courseCmd.AddCommand(courseRosterCmd)
	rootCmd.AddCommand(courseCmd)
}
