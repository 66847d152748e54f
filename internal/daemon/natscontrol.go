package daemon

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/subdex/subdex/internal/subdexlog"
	"github.com/subdex/subdex/internal/walker"
)

// ControlSubject is the NATS subject remote control commands are
// published to.
const ControlSubject = "subdex.control"

// controlCommand is the JSON envelope accepted on ControlSubject (and on
// the local socket): the ops are reindex, truncate and checkpoint, in
// the spirit of the reference daemon's listen-and-dispatch loop.
type controlCommand struct {
	Op   string `json:"op"` // "reindex", "truncate", "checkpoint"
	Path string `json:"path,omitempty"`
}

// NatsControl subscribes to ControlSubject and dispatches commands
// against a Handle.
type NatsControl struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	h      *Handle
	walker *walker.Walker
	log    subdexlog.Logger
}

// NatsControlConfig names the server and optional credentials.
type NatsControlConfig struct {
	Address  string
	Username string
	Password string
}

func NewNatsControl(cfg NatsControlConfig, h *Handle, w *walker.Walker, log subdexlog.Logger) (*NatsControl, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("nats: no address configured")
	}

	var opts []nats.Option
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Log(context.Background(), subdexlog.LevelVerbose, "nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Log(context.Background(), subdexlog.LevelVerbose, "nats reconnected to %s", nc.ConnectedUrl())
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NatsControl{conn: nc, h: h, walker: w, log: log}, nil
}

// Start subscribes to ControlSubject; dispatch runs on the nats.go
// callback goroutine, one at a time per message.
func (c *NatsControl) Start(ctx context.Context) error {
	sub, err := c.conn.Subscribe(ControlSubject, func(msg *nats.Msg) {
		c.dispatch(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe to %q: %w", ControlSubject, err)
	}
	c.sub = sub
	c.log.Log(ctx, subdexlog.LevelVerbose, "nats control subscribed to %s", ControlSubject)
	return nil
}

func (c *NatsControl) dispatch(ctx context.Context, data []byte) {
	var cmd controlCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.log.Log(ctx, subdexlog.LevelVerbose, "nats control: bad command: %v", err)
		return
	}

	var err error
	switch cmd.Op {
	case "reindex":
		err = c.walker.IndexOne(ctx, c.h, cmd.Path)
	case "truncate":
		err = c.h.TruncateOne(ctx, cmd.Path)
	case "checkpoint":
		err = c.h.Checkpoint(ctx)
	default:
		err = fmt.Errorf("unknown op %q", cmd.Op)
	}
	if err != nil {
		c.log.Log(ctx, subdexlog.LevelVerbose, "nats control %q %q: %v", cmd.Op, cmd.Path, err)
	}
}

// Close unsubscribes and closes the NATS connection.
func (c *NatsControl) Close() error {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	c.conn.Close()
	return nil
}
