// Command sqlupsert performs atomic upserts through synthesized stored
// routines.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/lmittmann/tint"

	"github.com/syssam/sqlupsert/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.New(tint.NewHandler(os.Stderr, nil)).Error("sqlupsert failed", "error", err)
		os.Exit(1)
	}
}
