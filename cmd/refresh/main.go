// Command refresh replaces the card catalog with the current Scryfall bulk
// dataset. It is meant to run from cron; each invocation performs one run.
//
// Flags:
//
//	--dry-run   download and decode the dataset without touching the database
//	--config    path to the YAML config file (overrides CONFIG_PATH)
//	--version   print the version and exit
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/mtgportal-cron/internal/app"
)

func main() {
	dryRunFlag := flag.Bool("dry-run", false, "download and decode without writing to DB")
	configFlag := flag.String("config", "", "path to YAML config file")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(app.BuildVersion())
		return
	}

	if *configFlag != "" {
		if err := os.Setenv("CONFIG_PATH", *configFlag); err != nil {
			fmt.Fprintf(os.Stderr, "set CONFIG_PATH: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{DryRun: *dryRunFlag}); err != nil {
		slog.Error("refresh failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
