package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"studyhall/internal/storage"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	Long:  `Create accounts, list them, and reset passwords.`,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		users, err := provider.ListUsers(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing users: %v\n", err)
			os.Exit(1)
		}

		if len(users) == 0 {
			fmt.Println("No users found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCREATED")
		for _, user := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				user.ID, user.Email, user.Name, user.Role, user.CreatedAt.Format("2006-01-02"))
		}
		w.Flush()

		fmt.Printf("\nTotal users: %d\n", len(users))
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		name, _ := cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")
		password, _ := cmd.Flags().GetString("password")

		switch storage.Role(role) {
		case storage.RoleStudent, storage.RoleInstructor, storage.RoleAdmin:
		default:
			fmt.Fprintf(os.Stderr, "Unknown role %q (student, instructor or admin)\n", role)
			os.Exit(1)
		}

		var hash string
		if password != "" {
			h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
				os.Exit(1)
			}
			hash = string(h)
		}

		id, err := provider.CreateUser(ctx, storage.User{
			Email:        args[0],
			Name:         name,
			Role:         storage.Role(role),
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("User %s created with ID %d.\n", args[0], id)
		if password == "" {
			fmt.Println("No password set; the account can only sign in with an emailed login link.")
		}
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <email> <password>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		user, err := provider.GetUserByEmail(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error looking up user: %v\n", err)
			os.Exit(1)
		}
		if user == nil {
			fmt.Fprintf(os.Stderr, "No user with email %s\n", args[0])
			os.Exit(1)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
			os.Exit(1)
		}

		if err := provider.SetUserPassword(ctx, user.ID, string(hash)); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting password: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Password updated for %s.\n", args[0])
	},
}

func init() {
	userAddCmd.Flags().StringP("name", "n", "", "Display name")
	userAddCmd.Flags().StringP("role", "r", string(storage.RoleStudent), "Account role (student, instructor, admin)")
	userAddCmd.Flags().StringP("password", "p", "", "Initial password (login-link only when empty)")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userPasswdCmd)
	rootCmd.AddCommand(userCmd)
}
