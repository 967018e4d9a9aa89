package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/database"
)

// MigrateCmd applies or reverts the pgvector schema.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or revert database migrations",
		Long:      "Apply (up) or revert (down) the pgvector schema used by BRAIN_VECTOR_BACKEND=pgvector.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE:      runMigrate,
	}

	cmd.Flags().String("dir", "", "Migrations directory (default from BRAIN_MIGRATIONS_DIR)")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := database.Direction(args[0])
	if direction != database.Up && direction != database.Down {
		return fmt.Errorf("unknown direction %q (want up or down)", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("BRAIN_DATABASE_URL is required for migrations")
	}

	dir := cfg.MigrationsDir
	if flagDir, _ := cmd.Flags().GetString("dir"); flagDir != "" {
		dir = flagDir
	}

	if err := database.RunMigrations(cfg.DatabaseURL, dir, direction); err != nil {
		return err
	}
	fmt.Printf("Migrations %s complete\n", direction)
	return nil
}
