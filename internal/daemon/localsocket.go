package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"

	"github.com/subdex/subdex/internal/subdexlog"
	"github.com/subdex/subdex/internal/walker"
)

// LocalSocket is the control-protocol fallback used when no NATS address
// is configured: newline-delimited JSON controlCommands, any number per
// connection, each answered with one JSON line — {"error": "..."} on
// failure, {} on success. Grounded on the reference daemon's listen-and-dispatch
// loop, but using one goroutine per connection instead of a manual
// select loop over raw descriptors.
type LocalSocket struct {
	path   string
	ln     net.Listener
	h      *Handle
	walker *walker.Walker
	log    subdexlog.Logger
}

func NewLocalSocket(path string, h *Handle, w *walker.Walker, log subdexlog.Logger) *LocalSocket {
	return &LocalSocket{path: path, h: h, walker: w, log: log}
}

// Start removes any stale socket file, binds, and begins accepting
// connections in a background goroutine.
func (s *LocalSocket) Start(ctx context.Context) error {
	os.Remove(s.path)
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	s.ln = ln
	go s.acceptLoop(ctx)
	return nil
}

func (s *LocalSocket) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Log(ctx, subdexlog.LevelVerbose, "localsocket accept: %v", err)
				return
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *LocalSocket) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		var cmd controlCommand
		var result struct {
			Error string `json:"error,omitempty"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			result.Error = err.Error()
			enc.Encode(result)
			continue
		}

		var err error
		switch cmd.Op {
		case "reindex":
			err = s.walker.IndexOne(ctx, s.h, cmd.Path)
		case "truncate":
			err = s.h.TruncateOne(ctx, cmd.Path)
		case "checkpoint":
			err = s.h.Checkpoint(ctx)
		default:
			err = os.ErrInvalid
		}
		if err != nil {
			result.Error = err.Error()
		}
		enc.Encode(result)
	}
}

// Close stops accepting connections and removes the socket file.
func (s *LocalSocket) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}
