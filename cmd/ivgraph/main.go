// Package main provides the ivgraph CLI entry point.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/ivgraph/ivgraph/pkg/config"
	"github.com/ivgraph/ivgraph/pkg/engine"
	"github.com/ivgraph/ivgraph/pkg/logging"
	"github.com/ivgraph/ivgraph/pkg/schema"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
	"github.com/ivgraph/ivgraph/pkg/translator"
)

var (
	version    = "0.1.0"
	commit     = "dev"
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ivgraph",
		Short: "ivgraph - Cypher query layer over a vector/BM25-capable relational store",
		Long: `ivgraph translates a Cypher subset into parameterized SQL CTE chains
and runs it against a relational database that already provides vector
ANN search, BM25 full-text search, and JSON functions.

Commands:
  version  print version information
  migrate  apply schema migrations and backfill node identity
  query    execute a single Cypher query and print the result`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(versionCmd(), migrateCmd(), queryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ivgraph v%s (%s)\n", version, commit)
		},
	}
}

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and backfill node identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := sql.Open("pgx", cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			migrator, err := schema.NewMigrator(db, log)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if down {
				return migrator.Down(ctx)
			}
			if err := migrator.Up(ctx); err != nil {
				return err
			}

			host := &sqlhost.StdlibHost{DB: db}
			if err := schema.MigrateNodeIdentity(ctx, host); err != nil {
				return err
			}
			log.Info("migration complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration instead of applying pending ones")
	return cmd
}

func queryCmd() *cobra.Command {
	var paramsJSON string
	cmd := &cobra.Command{
		Use:   "query <cypher>",
		Short: "Execute a single Cypher query and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := sqlhost.NewPgxHost(cmd.Context(), cfg.Database.DSN, int32(cfg.Database.PoolSize), log)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			eng, err := engine.New(pool, translator.Config{
				EmbeddingDimension: cfg.Query.EmbeddingDimension,
				TraversalMaxHops:   cfg.Query.TraversalMaxHops,
				DefaultSimilarity:  cfg.Query.DefaultSimilarity,
			}, engine.WithLogger(log))
			if err != nil {
				return err
			}

			params := map[string]any{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("parsing --params: %w", err)
				}
			}

			rows, err := eng.ExecuteCypher(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Println(row)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paramsJSON, "params", "", "JSON object of query parameters")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
