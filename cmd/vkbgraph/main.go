// Command vkbgraph converts traffic-sign survey records into a linked-data
// graph and serves queries over it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vkb-graph/backend/internal/logging"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const appName = "vkbgraph"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	logLevel string
	devLog   bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Traffic-sign linked-data backend",
		Long: `vkbgraph turns traffic-sign survey records into a linked-data graph
and answers installation, road segment, bounding box and SPARQL queries over it.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.devLog, "dev-log", false, "Human readable console logging")

	cmd.AddCommand(convertCmd(flags))
	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// logger builds the process logger. level wins over fallback when set.
func (f *globalFlags) logger(fallback string) (*zap.Logger, error) {
	level := f.logLevel
	if level == "" {
		level = fallback
	}
	if f.devLog {
		return logging.NewDevelopment(level)
	}
	return logging.New(level)
}
