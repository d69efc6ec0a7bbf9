// catalogctl runs catalogue maintenance commands from the shell. It reads
// the same configuration as the server (CATALOG_* variables, config files
// and flags) plus the command keys below.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dalemusser/catalog/internal/app/bootstrap"
	"github.com/dalemusser/catalog/internal/app/ctl"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

var commandKeys = []config.AppKey{
	{Name: "command", Default: "", Desc: "Command to run: " + strings.Join(ctl.Commands(), ", ")},
	{Name: "root_id", Default: "", Desc: "Training to postpone (postpone-content)"},
	{Name: "group_id", Default: "", Desc: "Education group to shorten (shorten)"},
	{Name: "until", Default: 0, Desc: "Last academic year kept (shorten)"},
	{Name: "file", Default: "", Desc: "Input file (import-*)"},
	{Name: "lang", Default: "fr-be", Desc: "Language of imported texts (import-admission, import-common)"},
	{Name: "from", Default: 0, Desc: "Source academic year (duplicate-admission)"},
	{Name: "to", Default: 0, Desc: "Target academic year (duplicate-admission)"},
	{Name: "dry_run", Default: false, Desc: "Only compute the partition (postpone-years)"},
	{Name: "acronym", Default: "", Desc: "Restrict postpone-years to matching acronyms"},
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Error("catalogctl failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys := append(bootstrap.AppConfigKeys(), commandKeys...)
	coreCfg, values, err := config.LoadWithAppConfig(logger, bootstrap.EnvPrefix, keys)
	if err != nil {
		return err
	}
	appCfg := bootstrap.AppConfigFrom(values)
	if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
		return err
	}
	bootstrap.ApplyTimeouts(appCfg)

	deps, err := bootstrap.ConnectDB(ctx, coreCfg, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bootstrap.Shutdown(context.Background(), coreCfg, appCfg, deps, logger) }()

	if err := bootstrap.EnsureSchema(ctx, coreCfg, appCfg, deps, logger); err != nil {
		return err
	}

	svc := bootstrap.NewServices(appCfg, deps, logger)
	r := &ctl.Runner{
		DB:    deps.CatalogMongoDatabase,
		Cal:   svc.Cal,
		Audit: svc.Audit,
		Log:   logger,
		Out:   os.Stdout,
	}
	return r.Run(ctx, ctl.Options{
		Command: values.String("command"),
		RootID:  values.String("root_id"),
		GroupID: values.String("group_id"),
		Until:   values.Int("until"),
		File:    values.String("file"),
		Lang:    values.String("lang"),
		From:    values.Int("from"),
		To:      values.Int("to"),
		DryRun:  values.Bool("dry_run"),
		Acronym: values.String("acronym"),
	})
}
