package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	root    string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", "", "goose migrations directory for up/down/status/version (defaults per dialect)")
	fs.StringVar(&opts.root, "root", migrate.RootDir, "migrations root holding one directory per dialect (create/validate)")
	fs.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return options{}, usageError(fs, "-name is required for create")
		}
	case "version":
		if opts.version == "" {
			return options{}, usageError(fs, "-version is required for version")
		}
	case "up", "down", "status", "validate":
	default:
		return options{}, usageError(fs, fmt.Sprintf("unknown -cmd %q", opts.cmd))
	}
	return opts, nil
}

func usageError(fs *flag.FlagSet, msg string) error {
	fmt.Fprintln(fs.Output(), msg)
	fs.Usage()
	return errors.New(msg)
}

func run(ctx context.Context, opts options) error {
	// file-only commands run before config so they work without a database env
	switch opts.cmd {
	case "create":
		paths, err := migrate.CreatePair(opts.root, opts.name, time.Now())
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Println("created", path)
		}
		return nil
	case "validate":
		if err := migrate.ValidateTree(opts.root); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	dialect, err := migrate.DialectFor(dbClient.DB().Dialector.Name())
	if err != nil {
		return err
	}
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	dir := opts.dir
	if dir == "" {
		dir = migrate.DefaultDir
		if dialect == goose.DialectSQLite3 {
			dir = migrate.SQLiteDir
		}
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": dir})
	logg.Info(ctx, "migrate starting")

	if opts.cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, dialect, dir, opts.cmd)
}
