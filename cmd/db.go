package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studyhall/internal/storage"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the database schema",
	Long:  `Report the applied schema version and apply pending migrations.`,
}

// storageDriver mirrors the driver selection in storage.NewProvider.
func storageDriver() string {
	if cfg.Storage.PostgreSQL != nil {
		return "postgres"
	}
	return "sqlite3"
}

var dbSchemaVersionCmd = &cobra.Command{
	Use:   "schema-version",
	Short: "Print the applied schema version",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		version, err := provider.GetSchemaVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying schema version: %v\n", err)
			os.Exit(1)
		}

		latest, err := storage.NewMigrationRunner(storageDriver()).GetLatestMigrationVersion()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading migrations: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Schema version: %d (latest available: %d)\n", version, latest)
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply pending schema migrations. Migrations also run automatically
whenever the storage provider starts, so this mainly serves to migrate
a database without starting the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Opening the provider already brought the schema up to date.
		version, err := provider.GetSchemaVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying schema version: %v\n", err)
			os.Exit(1)
		}

		latest, err := storage.NewMigrationRunner(storageDriver()).GetLatestMigrationVersion()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading migrations: %v\n", err)
			os.Exit(1)
		}

		if version < latest {
			fmt.Fprintf(os.Stderr, "Schema is at version %d but latest is %d; migration failed.\n", version, latest)
			os.Exit(1)
		}

		fmt.Printf("Schema is up to date at version %d.\n", version)
	},
}

func init() {
	dbCmd.AddCommand(dbSchemaVersionCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	rootCmd.AddCommand(dbCmd)
}
