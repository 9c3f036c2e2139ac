package cli

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"acvcharts/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending storage migrations",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	dialect, err := storage.ParseDialect(rt.cfg.DataBackend)
	if err != nil {
		return fmt.Errorf("migrate needs a SQL backend: %w", err)
	}
	dsn := rt.cfg.DatabaseURL
	if dialect == storage.SQLite {
		dsn = rt.cfg.SQLiteDBPath
	}

	if err := storage.RunMigrations(dialect, dsn); err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Migrations applied (%s)", dialect)
	return nil
}
