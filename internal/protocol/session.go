// Package protocol implements the per-connection session state machine
// (C4): parsing (line -> Command), semantic action (call the registry),
// and rendering (result -> CRLF-terminated reply lines) are kept as
// separate steps so the 552-vs-550 distinction and the Closing
// transition can each be tested without a socket.
package protocol

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joshuafuller/dictd/internal/dicterrors"
	"github.com/joshuafuller/dictd/internal/registry"
)

// State is one stage of the session lifecycle: Greet -> Idle ->
// Processing -> Idle ... -> Closing.
type State int

const (
	StateGreet State = iota
	StateIdle
	StateProcessing
	StateClosing
)

const maxLineBytes = 1024

// Session is the per-connection state: input/output framing, the last
// seen CLIENT identity (informational only; auth is stubbed), and the
// current FSM state.
type Session struct {
	sc   *bufio.Scanner
	w    io.Writer
	reg  *registry.Registry
	log  zerolog.Logger
	peer string

	state    State
	clientID string
}

// New builds a Session over r/w. peer is used only for logging.
func New(r io.Reader, w io.Writer, reg *registry.Registry, log zerolog.Logger, peer string) *Session {
	return NewWithBuffer(r, w, reg, log, peer, make([]byte, maxLineBytes))
}

// NewWithBuffer builds a Session using buf as the scanner's backing line
// buffer, letting the caller supply a pooled buffer instead of a fresh
// allocation per connection.
func NewWithBuffer(r io.Reader, w io.Writer, reg *registry.Registry, log zerolog.Logger, peer string, buf []byte) *Session {
	sc := bufio.NewScanner(r)
	sc.Buffer(buf, maxLineBytes)
	return &Session{
		sc:   sc,
		w:    w,
		reg:  reg,
		log:  log.With().Str("peer", peer).Logger(),
		peer: peer,
	}
}

// Serve runs the session to completion: greeting, then one command per
// line until QUIT or a transition to Closing, then the goodbye line.
// A read or write failure ends the session immediately without further
// output, matching the IoError policy: socket failures are dropped
// silently rather than reported on the wire.
func (s *Session) Serve(ctx context.Context) error {
	s.state = StateGreet
	if err := s.writeLine("220 dict 0.1.0"); err != nil {
		return err
	}
	s.state = StateIdle

	for s.state != StateClosing {
		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		s.state = StateProcessing
		if err := s.dispatch(ctx, Parse(line)); err != nil {
			return err
		}
		if s.state != StateClosing {
			s.state = StateIdle
		}
	}

	return s.writeLine("221 bye")
}

func (s *Session) readLine() (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(s.sc.Text(), " \t"), nil
}

func (s *Session) writeLine(line string) error {
	_, err := io.WriteString(s.w, line+"\r\n")
	return err
}

// writeBody renders a multi-line definition body, converting any bare LF
// to CRLF, followed by the lone "." terminator line. The source text is
// written byte-for-byte aside from the line-ending conversion; no dot
// stuffing is performed, matching the formatting invariants as specified.
func (s *Session) writeBody(body string) error {
	for _, ln := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
		if err := s.writeLine(ln); err != nil {
			return err
		}
	}
	return s.writeLine(".")
}

func (s *Session) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Verb {
	case "DEFINE":
		return s.handleDefine(ctx, cmd.Args)
	case "MATCH":
		return s.handleMatch(ctx, cmd.Args)
	case "SHOW":
		return s.handleShow(cmd.Args)
	case "CLIENT":
		s.clientID = strings.Join(cmd.Args, " ")
		return s.writeLine("250 ok")
	case "QUIT":
		s.state = StateClosing
		return nil
	case "STATUS", "OPTION", "AUTH", "SASLAUTH", "SASLRESP":
		s.state = StateClosing
		return s.writeLine("502 '" + cmd.Verb + "' unimplemented")
	case "":
		return s.writeLine("500 Unknown command ''")
	default:
		s.state = StateClosing
		return s.writeLine("500 Unknown command '" + cmd.Verb + "'")
	}
}

func (s *Session) handleDefine(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return s.writeLine("501 syntax error, illegal parameters")
	}
	db, word := args[0], args[1]

	results, err := s.reg.Lookup(ctx, word, db)
	if err != nil {
		var dbErr *dicterrors.DbNotFoundError
		var wordErr *dicterrors.WordNotFoundError
		switch {
		case errors.As(err, &dbErr):
			s.state = StateClosing
			return s.writeLine("550 invalid database, use SHOW DB for list")
		case errors.As(err, &wordErr):
			return s.writeLine("552 No match")
		default:
			return err
		}
	}

	if err := s.writeLine(countLine(150, len(results), "definitions retrieved")); err != nil {
		return err
	}
	for _, r := range results {
		if err := s.writeLine(`151 "` + word + `" ` + r.DisplayName + ` "` + r.LongName + `"`); err != nil {
			return err
		}
		if err := s.writeBody(r.Definition); err != nil {
			return err
		}
	}
	return s.writeLine("250 ok")
}

func (s *Session) handleMatch(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return s.writeLine("501 syntax error, illegal parameters")
	}
	db, strategyArg, word := args[0], args[1], args[2]

	strategy, ok := registry.ParseStrategy(strategyArg)
	if !ok {
		s.state = StateClosing
		return s.writeLine("551 invalid strategy, use SHOW STRAT for list")
	}

	results, err := s.reg.Match(ctx, word, db, strategy)
	if err != nil {
		var dbErr *dicterrors.DbNotFoundError
		var wordErr *dicterrors.WordNotFoundError
		switch {
		case errors.As(err, &dbErr):
			s.state = StateClosing
			return s.writeLine("550 invalid database, use SHOW DB for list")
		case errors.As(err, &wordErr):
			return s.writeLine("552 No match")
		default:
			return err
		}
	}

	if err := s.writeLine(countLine(152, len(results), "matches found")); err != nil {
		return err
	}
	for _, r := range results {
		if err := s.writeLine(r.DisplayName + ` "` + r.Word + `"`); err != nil {
			return err
		}
	}
	if err := s.writeLine("."); err != nil {
		return err
	}
	return s.writeLine("250 ok")
}
