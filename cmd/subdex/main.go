// Command subdex is the indexing daemon: it loads a JSON config naming
// the database path and watch roots, opens (or creates) the database,
// performs an initial walk of every watch path, and then serves
// searches and remote control commands until signaled to stop.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subdex/subdex/internal/daemon"
	"github.com/subdex/subdex/internal/daemonconfig"
	"github.com/subdex/subdex/internal/subdexlog"
)

func main() {
	var (
		configFile = flag.String("config", "./subdex.json", "Path to the daemon configuration file")
		logLevel   = flag.Int("log-level", subdexlog.LevelVerbose, "Logging level: 0 critical, 1 verbose, 2 very-verbose, 3 insane")
	)
	flag.Parse()

	subdexlog.SetLevel(*logLevel)

	raw, err := os.ReadFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subdex: read config: %v\n", err)
		os.Exit(1)
	}

	cfg, err := daemonconfig.Validate(json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "subdex: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := subdexlog.Default{}

	d, err := daemon.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subdex: %v\n", err)
		os.Exit(1)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	runErr := d.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "subdex: shutdown: %v\n", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "subdex: %v\n", runErr)
		os.Exit(1)
	}
}
