package daemon

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/subdex/subdex/internal/archive"
	"github.com/subdex/subdex/internal/daemonconfig"
	"github.com/subdex/subdex/internal/extractor"
	"github.com/subdex/subdex/internal/httpapi"
	"github.com/subdex/subdex/internal/subdexlog"
	"github.com/subdex/subdex/internal/suffixstore"
	"github.com/subdex/subdex/internal/walker"
	"github.com/subdex/subdex/internal/watch"
)

// Daemon is the long-running process: one Handle around an Engine, a
// walker driving the initial and on-change indexing, a watch.Watcher
// feeding change events back to the walker, a gocron-driven sweep, an
// optional archiver, and either a NATS or local-socket control surface.
type Daemon struct {
	cfg daemonconfig.Config
	log subdexlog.Logger

	handle    *Handle
	walker    *walker.Walker
	watcher   *watch.Watcher
	scheduler *Scheduler
	http      *httpapi.Server
	nats      *NatsControl
	local     *LocalSocket
	archiver  *archive.Archiver
}

// changeListener adapts a *Handle + *walker.Walker into a watch.Listener.
type changeListener struct {
	h      *Handle
	walker *walker.Walker
	log    subdexlog.Logger
}

func (l changeListener) OnChange(ctx context.Context, path string) {
	if err := l.walker.IndexOne(ctx, l.h, path); err != nil {
		l.log.Log(ctx, subdexlog.LevelVerbose, "reindex %s after change: %v", path, err)
	}
}

// New builds a Daemon from cfg, opening (or creating) the database at
// cfg.DBPath.
func New(ctx context.Context, cfg daemonconfig.Config, log subdexlog.Logger) (*Daemon, error) {
	e, err := suffixstore.OpenRW(ctx, cfg.DBPath, suffixstore.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	handle := NewHandle(e, cfg.DBPath, suffixstore.WithLogger(log))

	w, err := walker.New(extractor.New(), walker.Options{
		IndexFilenames:      cfg.IndexFilenames,
		IndexPathComponents: cfg.IndexPathComponents,
		Prune:               cfg.Prune,
	})
	if err != nil {
		return nil, fmt.Errorf("compile prune rule: %w", err)
	}
	w.Log = log

	watcher, err := watch.New(rate.Every(500*time.Millisecond), 1)
	if err != nil {
		return nil, fmt.Errorf("start file watcher: %w", err)
	}
	watcher.Log = log

	sched, err := NewScheduler(handle, log)
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	d := &Daemon{cfg: cfg, log: log, handle: handle, walker: w, watcher: watcher, scheduler: sched}

	if cfg.ArchiveRootDir != "" {
		var backend archive.Backend
		if cfg.S3Bucket != "" {
			backend, err = archive.NewS3Backend(ctx, archive.S3Config{
				Region: cfg.S3Region,
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
			})
			if err != nil {
				return nil, fmt.Errorf("build s3 archive backend: %w", err)
			}
		}
		d.archiver = archive.New(archive.Config{
			RootDir:  cfg.ArchiveRootDir,
			Interval: time.Duration(cfg.ArchiveIntervalSecs) * time.Second,
		}, cfg.DBPath+"~*", backend, log)
	}

	if cfg.HTTPAddr != "" {
		d.http = httpapi.New(httpapi.Config{Addr: cfg.HTTPAddr}, handle, log)
	}

	if cfg.NatsAddress != "" {
		nc, err := NewNatsControl(NatsControlConfig{
			Address:  cfg.NatsAddress,
			Username: cfg.NatsUsername,
			Password: cfg.NatsPassword,
		}, handle, w, log)
		if err != nil {
			return nil, fmt.Errorf("connect nats control: %w", err)
		}
		d.nats = nc
	} else if cfg.LocalSocketPath != "" {
		d.local = NewLocalSocket(cfg.LocalSocketPath, handle, w, log)
	}

	return d, nil
}

// Run performs the initial index of every watch path, starts the
// watcher/scheduler/control/http surfaces, and blocks until ctx is
// cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	for _, p := range d.cfg.WatchPaths {
		if err := d.walker.Walk(ctx, d.handle, p); err != nil {
			return fmt.Errorf("initial walk of %s: %w", p, err)
		}
		if err := d.watcher.Add(p, changeListener{h: d.handle, walker: d.walker, log: d.log}); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	go d.watcher.Run(ctx)

	if err := d.scheduler.Start(ctx, SweepConfig{
		Interval:           time.Duration(d.cfg.SweepIntervalSeconds) * time.Second,
		CheckpointInterval: time.Duration(d.cfg.CheckpointIntervalSeconds) * time.Second,
	}); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if d.archiver != nil {
		go d.archiver.Run(ctx)
	}

	if d.nats != nil {
		if err := d.nats.Start(ctx); err != nil {
			return fmt.Errorf("start nats control: %w", err)
		}
	} else if d.local != nil {
		if err := d.local.Start(ctx); err != nil {
			return fmt.Errorf("start local control socket: %w", err)
		}
	}

	if d.http != nil {
		if err := d.http.Start(); err != nil {
			return fmt.Errorf("start http api: %w", err)
		}
	}

	SystemdNotify(true, "READY")
	<-ctx.Done()
	return nil
}

// Shutdown stops every collaborator and closes the database.
func (d *Daemon) Shutdown(ctx context.Context) error {
	SystemdNotify(false, "STOPPING")
	if d.http != nil {
		d.http.Shutdown(ctx)
	}
	if d.nats != nil {
		d.nats.Close()
	}
	if d.local != nil {
		d.local.Close()
	}
	d.watcher.Close()
	if err := d.scheduler.Shutdown(); err != nil {
		d.log.Log(ctx, subdexlog.LevelVerbose, "scheduler shutdown: %v", err)
	}
	return d.handle.Close(ctx)
}
