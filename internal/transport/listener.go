package transport

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshuafuller/dictd/internal/connlimit"
	"github.com/joshuafuller/dictd/internal/protocol"
	"github.com/joshuafuller/dictd/internal/registry"
)

// defaultThreshold/defaultCooldown/defaultMaxEntries size the accept-loop's
// per-IP connection limiter.
const (
	defaultThreshold  = 50
	defaultCooldown   = 60 * time.Second
	defaultMaxEntries = 10000
)

// Listener runs the accept loop: bind, throttle by source IP, then hand
// each accepted connection to a protocol.Session.
type Listener struct {
	ln      net.Listener
	reg     *registry.Registry
	log     zerolog.Logger
	limiter *connlimit.Limiter
}

// Listen binds addr and returns a Listener ready to Serve.
func Listen(addr string, reg *registry.Registry, log zerolog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{
		ln:      ln,
		reg:     reg,
		log:     log,
		limiter: connlimit.New(defaultThreshold, defaultCooldown, defaultMaxEntries),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections until ctx is canceled or the listener is
// closed, running one goroutine per session.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		if !l.limiter.Allow(host) {
			conn.Close()
			continue
		}

		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	buf := GetLineBuffer()
	defer PutLineBuffer(buf)

	peer := conn.RemoteAddr().String()
	sess := protocol.NewWithBuffer(conn, conn, l.reg, l.log, peer, *buf)
	if err := sess.Serve(ctx); err != nil {
		l.log.Debug().Str("peer", peer).Err(err).Msg("session ended")
	}
}
