// Command snapshot_copy moves a board snapshot between stores, for example
// from the local JSON file to Postgres when a deployment outgrows one host.
//
// The source is the store configured for the service (config file and
// LIFEBOARD_SNAPSHOT_* variables); the destination comes from flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/lifeboard-backend/internal/app"
	"github.com/yungbote/lifeboard-backend/internal/config"
	"github.com/yungbote/lifeboard-backend/internal/snapshot"
)

func main() {
	var dst config.SnapshotConfig
	var dryRun bool
	var timeout time.Duration
	flag.StringVar(&dst.Driver, "to-driver", "", "destination driver: file|sqlite|postgres|redis|gcs")
	flag.StringVar(&dst.Path, "to-path", "", "destination file path (file driver)")
	flag.StringVar(&dst.DSN, "to-dsn", "", "destination DSN (sqlite/postgres drivers)")
	flag.StringVar(&dst.RedisAddr, "to-redis-addr", "", "destination redis address")
	flag.StringVar(&dst.RedisKey, "to-redis-key", snapshot.DefaultRedisKey, "destination redis key")
	flag.IntVar(&dst.RedisDB, "to-redis-db", 0, "destination redis database")
	flag.StringVar(&dst.GCSBucket, "to-gcs-bucket", "", "destination GCS bucket")
	flag.StringVar(&dst.GCSObject, "to-gcs-object", snapshot.DefaultGCSObject, "destination GCS object")
	flag.BoolVar(&dryRun, "dry-run", false, "load the source and print what would be copied")
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	src, err := app.OpenSnapshotStore(ctx, cfg.Snapshot)
	if err != nil {
		fmt.Printf("open source: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	doc, err := src.Load(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		fmt.Printf("source %s holds no snapshot; nothing to copy\n", src.Name())
		return
	}
	if err != nil {
		fmt.Printf("load source: %v\n", err)
		os.Exit(1)
	}
	boards, skipped := doc.DomainBoards()
	for _, s := range skipped {
		fmt.Printf("skipping invalid record: %v\n", s)
	}

	if dryRun {
		fmt.Printf("[dry-run] would copy %d boards from %s to %s (%d skipped)\n", len(boards), src.Name(), dst.Driver, len(skipped))
		return
	}

	if dst.Driver == "" {
		fmt.Println("-to-driver is required")
		os.Exit(2)
	}
	dst.Mode = "sync"
	out, err := app.OpenSnapshotStore(ctx, dst)
	if err != nil {
		fmt.Printf("open destination: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := out.Save(ctx, snapshot.NewDocument(boards, time.Now())); err != nil {
		fmt.Printf("save destination: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("copied %d boards from %s to %s (%d skipped)\n", len(boards), src.Name(), out.Name(), len(skipped))
}
