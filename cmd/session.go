package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studyhall/internal/checkin"
	"studyhall/internal/config"
	"studyhall/internal/storage"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage attendance sessions",
	Long:  `Create, list, and close attendance sessions, and print their check-in codes.`,
}

func parseID(arg string) int64 {
	var id int64
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid ID %q\n", arg)
		os.Exit(1)
	}
	return id
}

var sessionListCmd = &cobra.Command{
	Use:   "list <course-id>",
	Short: "List a course's attendance sessions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		sessions, err := provider.ListSessions(ctx, parseID(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tOPENS\tCLOSES\tMODE\tSTATUS")
		for _, s := range sessions {
			status := "pending"
			switch {
			case s.ClosedAt != nil || (s.ClosesAt != nil && !now.Before(*s.ClosesAt)):
				status = "closed"
			case !now.Before(s.OpensAt):
				status = "open"
			}
			closes := "-"
			if s.ClosesAt != nil {
				closes = s.ClosesAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.Title,
				s.OpensAt.Local().Format("2006-01-02 15:04"),
				closes,
				s.PasscodeMode, status)
		}
		w.Flush()
	},
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create <course-id> <title>",
	Short: "Create an attendance session",
	Long: `Create a check-in window for a course. The session opens now unless
--opens gives an RFC 3339 time, and stays open for --minutes. With
--minutes 0 the session stays open until closed with "session close".`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		opens, _ := cmd.Flags().GetString("opens")
		minutes, _ := cmd.Flags().GetInt("minutes")
		mode, _ := cmd.Flags().GetString("mode")
		passcode, _ := cmd.Flags().GetString("passcode")
		allowEarly, _ := cmd.Flags().GetBool("allow-early")
		anyone, _ := cmd.Flags().GetBool("anyone")

		opensAt := time.Now()
		if opens != "" && opens != "now" {
			var err error
			opensAt, err = time.Parse(time.RFC3339, opens)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid --opens time: %v\n", err)
				os.Exit(1)
			}
		}
		if minutes < 0 {
			fmt.Fprintln(os.Stderr, "--minutes cannot be negative")
			os.Exit(1)
		}
		var closesAt *time.Time
		if minutes > 0 {
			t := opensAt.Add(time.Duration(minutes) * time.Minute)
			closesAt = &t
		}

		course, err := provider.GetCourse(ctx, parseID(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading course: %v\n", err)
			os.Exit(1)
		}
		if course == nil {
			fmt.Fprintf(os.Stderr, "No course with ID %s\n", args[0])
			os.Exit(1)
		}

		session := storage.Session{
			CourseID:          course.ID,
			Title:             args[1],
			OpensAt:           opensAt,
			ClosesAt:          closesAt,
			PasscodeMode:      storage.PasscodeMode(mode),
			AllowEarly:        allowEarly,
			RequireEnrollment: !anyone,
			CreatedAt:         time.Now(),
		}

		switch session.PasscodeMode {
		case storage.PasscodeNone:
		case storage.PasscodeStatic:
			if len(passcode) < 4 {
				fmt.Fprintln(os.Stderr, "Static mode needs --passcode with at least 4 characters")
				os.Exit(1)
			}
			hash, err := checkin.HashPasscode(passcode)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error hashing passcode: %v\n", err)
				os.Exit(1)
			}
			session.PasscodeHash = &hash
		case storage.PasscodeRotating:
			secret, err := checkin.NewTOTPSecret(course.Code)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error generating rotating secret: %v\n", err)
				os.Exit(1)
			}
			session.TOTPSecret = &secret
		default:
			fmt.Fprintf(os.Stderr, "Unknown mode %q (none, static or rotating)\n", mode)
			os.Exit(1)
		}

		id, err := provider.CreateSession(ctx, session)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
			os.Exit(1)
		}

		if session.ClosesAt != nil {
			fmt.Printf("Session %d open %s to %s.\n", id,
				session.OpensAt.Local().Format("15:04"),
				session.ClosesAt.Local().Format("15:04"))
		} else {
			fmt.Printf("Session %d open from %s until closed.\n", id,
				session.OpensAt.Local().Format("15:04"))
		}
		if session.PasscodeMode == storage.PasscodeStatic {
			fmt.Println("Students will need the passcode to check in.")
		}
	},
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a session before its scheduled end",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := parseID(args[0])
		if err := provider.CloseSession(ctx, id, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session %d closed.\n", id)
	},
}

var sessionQRCmd = &cobra.Command{
	Use:   "qr <id>",
	Short: "Print a session's check-in code",
	Long: `Print the scan payload for a session, or with --out write it as a QR
PNG for the projector. Static passcodes are never embedded in the code;
rotating sessions embed the passcode of the current period.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		session, err := provider.GetSession(ctx, parseID(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading session: %v\n", err)
			os.Exit(1)
		}
		if session == nil {
			fmt.Fprintf(os.Stderr, "No session with ID %s\n", args[0])
			os.Exit(1)
		}

		var passcode string
		if session.PasscodeMode == storage.PasscodeRotating {
			if session.TOTPSecret == nil {
				fmt.Fprintln(os.Stderr, "Session has no rotating secret")
				os.Exit(1)
			}
			passcode, err = checkin.CurrentPasscode(*session.TOTPSecret, time.Now(), config.Cfg.Checkin.RotatingPeriod)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error deriving rotating passcode: %v\n", err)
				os.Exit(1)
			}
		}
		content := checkin.EncodeQRContent(session.ID, passcode)

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			fmt.Println(content)
			return
		}

		size, _ := cmd.Flags().GetInt("size")
		png, err := checkin.QRImage(content, size)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering QR code: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(out, png, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("QR code written to %s.\n", out)
	},
}

var sessionRecordsCmd = &cobra.Command{
	Use:   "records <id>",
	Short: "List who has checked in to a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		records, err := provider.ListAttendanceBySession(ctx, parseID(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing attendance: %v\n", err)
			os.Exit(1)
		}

		if len(records) == 0 {
			fmt.Println("No check-ins yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STUDENT\tEMAIL\tCHECKED IN\tMETHOD")
		for _, record := range records {
			name, email := "-", "-"
			user, err := provider.GetUser(ctx, record.StudentID)
			if err == nil && user != nil {
				name, email = user.Name, user.Email
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				name, email, record.CheckedInAt.Local().Format("15:04:05"), record.Method)
		}
		w.Flush()

		fmt.Printf("\nTotal check-ins: %d\n", len(records))
	},
}

func init() {
	sessionCreateCmd.Flags().String("opens", "now", "Opening time, RFC 3339 or \"now\"")
	sessionCreateCmd.Flags().IntP("minutes", "m", 15, "Length of the check-in window in minutes, 0 for open-ended")
	sessionCreateCmd.Flags().String("mode", "none", "Passcode mode (none, static, rotating)")
	sessionCreateCmd.Flags().StringP("passcode", "p", "", "Passcode for static mode")
	sessionCreateCmd.Flags().Bool("allow-early", false, "Accept check-ins before the window opens")
	sessionCreateCmd.Flags().Bool("anyone", false, "Accept check-ins from students not enrolled in the course")

	sessionQRCmd.Flags().StringP("out", "o", "", "Write a QR PNG to this file instead of printing the payload")
	sessionQRCmd.Flags().Int("size", config.QR_IMAGE_SIZE, "PNG size in pixels")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
	sessionCmd.AddCommand(sessionQRCmd)
	sessionCmd.AddCommand(sessionRecordsCmd)
	rootCmd.AddCommand(sessionCmd)
}
