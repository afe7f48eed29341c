package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	modelDir    string
	routePrefix string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "formadmin-tools",
		Short:         "Model definition and database tooling for formadmin",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.modelDir, "models", getenvDefault("ADMIN_MODEL_DIR", "models"), "directory containing model definition files")
	cmd.PersistentFlags().StringVar(&opts.routePrefix, "route-prefix", getenvDefault("ADMIN_ROUTE_PREFIX", "/admin"), "admin route prefix used when resolving links")

	cmd.AddCommand(newValidateModelsCmd(opts))
	cmd.AddCommand(newDescribeCmd(opts))
	cmd.AddCommand(newInitDBCmd(opts))
	return cmd
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
