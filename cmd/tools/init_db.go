package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/formadmin"
	"github.com/lychee-technology/formadmin/internal"
	"github.com/spf13/cobra"
)

type initDBOptions struct {
	database formadmin.DatabaseConfig
	dryRun   bool
}

// txBeginner is satisfied by *pgxpool.Pool.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func newInitDBCmd(root *rootOptions) *cobra.Command {
	opts := initDBOptions{database: formadmin.DefaultConfig().Database}
	db := &opts.database

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the PostgreSQL tables and indexes of every model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(root.modelDir)
			if err != nil {
				return err
			}
			statements, err := schemaStatements(registry)
			if err != nil {
				return err
			}
			if opts.dryRun {
				return printStatements(cmd.OutOrStdout(), statements)
			}

			if err := internal.ValidatePostgresConfig(opts.database); err != nil {
				return err
			}
			pool, err := internal.NewPostgresPool(cmd.Context(), opts.database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := applyStatements(cmd.Context(), pool, statements); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database initialized successfully, models: %d\n", len(registry.ListModels()))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&db.Host, "db-host", getenvDefault("DB_HOST", db.Host), "database host")
	flags.IntVar(&db.Port, "db-port", db.Port, "database port")
	flags.StringVar(&db.Database, "db-name", getenvDefault("DB_NAME", db.Database), "database name")
	flags.StringVar(&db.Username, "db-user", getenvDefault("DB_USER", db.Username), "database user")
	flags.StringVar(&db.Password, "db-password", getenvDefault("DB_PASSWORD", ""), "database password")
	flags.StringVar(&db.SSLMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", db.SSLMode), "database sslmode")
	flags.BoolVar(&db.UseIAM, "db-use-iam", false, "authenticate with an Aurora DSQL IAM token")
	flags.StringVar(&db.Region, "db-region", getenvDefault("AWS_REGION", ""), "region used to sign IAM tokens")
	flags.DurationVar(&db.Timeout, "db-timeout", 30*time.Second, "connect timeout")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the statements instead of executing them")
	return cmd
}

// schemaStatements returns CREATE TABLE statements for every model, followed
// by one index per relation foreign key. Models sharing a table are created once.
func schemaStatements(registry formadmin.ModelRegistry) ([]string, error) {
	var tables, indexes []string
	seen := make(map[string]bool)

	for _, name := range registry.ListModels() {
		model, err := registry.GetModel(name)
		if err != nil {
			return nil, err
		}
		if seen[model.Table] {
			continue
		}
		seen[model.Table] = true

		tables = append(tables, createTable(model))

		relations := make([]string, 0, len(model.Relations))
		for relName := range model.Relations {
			relations = append(relations, relName)
		}
		sort.Strings(relations)
		for _, relName := range relations {
			fk := model.Relations[relName].ForeignKey
			indexes = append(indexes, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`,
				quoteIdentifier(makeIndexName(model.Table, fk)), quoteIdentifier(model.Table), quoteIdentifier(fk)))
		}
	}
	return append(tables, indexes...), nil
}

func createTable(model *formadmin.Model) string {
	lines := make([]string, 0, len(model.Columns))
	for _, col := range model.Columns {
		if col.Name == model.IDField {
			lines = append(lines, quoteIdentifier(col.Name)+" "+identityColumn(col))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s", quoteIdentifier(col.Name), col.Type.SQLType()))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdentifier(model.Table), strings.Join(lines, ",\n\t"))
}

func identityColumn(col formadmin.Column) string {
	switch {
	case col.Type.IsInteger():
		return col.Type.SQLType() + " GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	case col.Type == formadmin.ValueTypeUUID:
		return "UUID PRIMARY KEY DEFAULT gen_random_uuid()"
	default:
		return col.Type.SQLType() + " PRIMARY KEY"
	}
}

func printStatements(out io.Writer, statements []string) error {
	for _, stmt := range statements {
		if _, err := fmt.Fprintf(out, "%s;\n\n", stmt); err != nil {
			return err
		}
	}
	return nil
}

// applyStatements runs all statements in one transaction.
func applyStatements(ctx context.Context, db txBeginner, statements []string) error {
	return withTx(ctx, db, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("execute %q: %w", firstLine(stmt), err)
			}
		}
		return nil
	})
}

func withTx(ctx context.Context, db txBeginner, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}

func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func makeIndexName(table string, suffix string) string {
	base := strings.ReplaceAll(table, ".", "_")
	base = strings.ReplaceAll(base, `"`, "")
	return fmt.Sprintf("%s_%s_idx", base, suffix)
}
