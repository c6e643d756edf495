package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_foodcart/internal/config"
	"github.com/fjod/go_foodcart/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create Mongo indexes and apply Postgres migrations",
		Long:  "Creates the Mongo indexes the cart and order collections rely on. With ORDER_STORE=postgres the SQL migrations are applied as well.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ShutdownTimeout)
			defer cancel()

			db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer db.Client().Disconnect(context.Background())

			if err := repository.EnsureIndexes(ctx, db); err != nil {
				return fmt.Errorf("mongo indexes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mongo indexes ready")

			if cfg.OrderStore != config.OrderStorePostgres {
				return nil
			}

			repo, err := repository.NewPostgresRepository(&cfg.Postgres)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RunMigrations(&cfg.Postgres); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "postgres migrations applied")
			return nil
		},
	}
}
