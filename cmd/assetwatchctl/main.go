package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/assetwatch-backend/internal/app"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

func usage() {
	fmt.Fprint(os.Stderr, `usage: assetwatchctl <command> [flags]

commands:
  check                        run one content check cycle
  discover                     run one discovery scan
  migrate [--base] [--force]   migrate pending updates
  rollback --base --version    roll back a base name to an archived version
  history --base               print version history for a base name
  stats [--days]               print migration statistics
  seed --file                  seed tracked assets from a watchlist file
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	var runErr error
	switch os.Args[1] {
	case "check":
		runErr = runCheck(ctx, application)
	case "discover":
		runErr = runDiscover(ctx, application)
	case "migrate":
		runErr = runMigrate(ctx, application, os.Args[2:])
	case "rollback":
		runErr = runRollback(ctx, application, os.Args[2:])
	case "history":
		runErr = runHistory(ctx, application, os.Args[2:])
	case "stats":
		runErr = runStats(ctx, application, os.Args[2:])
	case "seed":
		runErr = runSeed(ctx, application, os.Args[2:])
	default:
		usage()
	}
	if runErr != nil {
		fmt.Printf("%s: %v\n", os.Args[1], runErr)
		os.Exit(1)
	}
}

func runCheck(ctx context.Context, a *app.App) error {
	sum, err := a.Services.Monitor.CheckAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("checked=%d changed=%d baselines=%d failed=%d\n",
		sum.Checked, sum.Changed, sum.Baselines, sum.Failed)
	return nil
}

func runDiscover(ctx context.Context, a *app.App) error {
	sum, err := a.Services.Discovery.Scan(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("pages=%d failed=%d found=%d recorded=%d new=%d\n",
		sum.Pages, sum.Failed, sum.Found, sum.Recorded, sum.New)
	return nil
}

func runMigrate(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	base := fs.String("base", "", "migrate only this base name")
	force := fs.Bool("force", false, "bypass priority delays")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dbc := dbctx.Context{Ctx: ctx}
	updates, err := a.Services.Finder.FindUpdates(dbc)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		fmt.Println("no updates available")
		return nil
	}

	if *base != "" {
		for _, upd := range updates {
			if upd.BaseName != *base {
				continue
			}
			rec, err := a.Services.Migration.Migrate(ctx, upd, types.MigrationTriggerManual, *force)
			if err != nil {
				return err
			}
			fmt.Printf("base=%s %s -> %s status=%s\n",
				rec.BaseName, rec.FromVersion, rec.ToVersion, rec.Status)
			return nil
		}
		return fmt.Errorf("no pending update for %q", *base)
	}

	stats, err := a.Services.Migration.MigrateBatch(ctx, updates, types.MigrationTriggerManual, *force)
	if err != nil {
		return err
	}
	fmt.Printf("updates=%d successful=%d failed=%d deferred=%d\n",
		len(updates), stats.Successful, stats.Failed, stats.Deferred)
	return nil
}

func runRollback(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	base := fs.String("base", "", "base name to roll back")
	version := fs.String("version", "", "archived version to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *base == "" || *version == "" {
		return fmt.Errorf("--base and --version are required")
	}

	rec, err := a.Services.Migration.Rollback(ctx, *base, *version)
	if err != nil {
		return err
	}
	fmt.Printf("base=%s %s -> %s status=%s\n",
		rec.BaseName, rec.FromVersion, rec.ToVersion, rec.Status)
	return nil
}

func runHistory(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	base := fs.String("base", "", "base name to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *base == "" {
		return fmt.Errorf("--base is required")
	}

	dbc := dbctx.Context{Ctx: ctx}
	entries, err := a.Services.Stats.VersionHistory(dbc, *base)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no versions tracked for %q", *base)
	}
	for _, e := range entries {
		marker := " "
		if e.Active {
			marker = "*"
		}
		archived := ""
		if e.ArchivedAt != nil {
			archived = " archived=" + e.ArchivedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s %-12s size=%-8d %s%s\n", marker, e.Version, e.Size, e.URL, archived)
	}
	return nil
}

func runStats(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	days := fs.Int("days", 7, "report window in days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dbc := dbctx.Context{Ctx: ctx}
	sum, err := a.Services.Stats.Summary(dbc, *days)
	if err != nil {
		return err
	}
	fmt.Printf("period_days=%d\n", sum.PeriodDays)
	fmt.Printf("updates_found=%d changes_detected=%d\n", sum.UpdatesFound, sum.ChangesDetected)
	fmt.Printf("migrations: started=%d completed=%d failed=%d rolled_back=%d\n",
		sum.Started, sum.Completed, sum.Failed, sum.RolledBack)
	fmt.Printf("avg_validation_ms=%d avg_duration_ms=%d\n", sum.AvgValidationMs, sum.AvgDurationMs)
	for severity, count := range sum.BySeverity {
		fmt.Printf("changes[%s]=%d\n", severity, count)
	}
	fmt.Printf("pending_migrations=%d\n", sum.Pending)
	return nil
}

func runSeed(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", a.Cfg.WatchlistPath, "watchlist file to seed from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sum, err := a.Services.Seeder.SeedFile(ctx, *file)
	if err != nil {
		return err
	}
	fmt.Printf("groups=%d created=%d existing=%d skipped=%d\n",
		sum.Groups, sum.Created, sum.Existing, sum.Skipped)
	return nil
}
