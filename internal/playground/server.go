// Package playground serves a websocket endpoint that checks, compiles,
// disassembles and runs programs sent by a browser session.
package playground

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/driver"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/vm"
)

// UnitName is the file name diagnostics are reported against.
const UnitName = "playground.sam"

// Request is one message from the client.
type Request struct {
	ID     string `json:"id"`
	Action string `json:"action"` // check, dis or run
	Source string `json:"source"`
}

// Diagnostic is a located compiler or runtime message.
type Diagnostic struct {
	Type    string `json:"type"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID          string       `json:"id"`
	Session     string       `json:"session"`
	OK          bool         `json:"ok"`
	Output      string       `json:"output,omitempty"`
	Steps       int64        `json:"steps,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type Server struct {
	driver   *driver.Driver
	upgrader websocket.Upgrader
	origins  map[string]bool
	timeout  time.Duration
}

type Option func(*Server)

// WithAllowedOrigins admits browser pages from origins other than the
// server's own host, e.g. "http://localhost:3000".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
		}
	}
}

func New(d *driver.Driver, opts ...Option) *Server {
	s := &Server{
		driver:  d,
		origins: make(map[string]bool),
		timeout: 5 * time.Second,
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkOrigin accepts clients that send no Origin header and pages
// served from the host being dialled or from an allowed origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return s.origins[strings.ToLower(u.Scheme+"://"+u.Host)]
}

// ServeHTTP upgrades the connection and answers requests until the
// client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := s.Handle(r.Context(), req)
		resp.Session = session
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

// Handle serves one request.
func (s *Server) Handle(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp := Response{ID: req.ID}
	switch req.Action {
	case "check":
		if _, err := s.driver.Check(UnitName, req.Source); err != nil {
			resp.Diagnostics = diagnostics(err)
			return resp
		}
	case "dis", "run":
		m, _, err := s.driver.Compile(ctx, UnitName, req.Source)
		if err != nil {
			resp.Diagnostics = diagnostics(err)
			return resp
		}
		var out bytes.Buffer
		if req.Action == "dis" {
			if err := bytecode.Disassemble(&out, m); err != nil {
				resp.Diagnostics = diagnostics(err)
				return resp
			}
		} else {
			machine := vm.NewVM(m, vm.WithOutput(&out), vm.WithMaxSteps(s.driver.Config().Run.MaxSteps))
			err := machine.Run(ctx)
			resp.Steps = machine.Steps()
			if err != nil {
				resp.Output = out.String()
				resp.Diagnostics = diagnostics(err)
				return resp
			}
		}
		resp.Output = out.String()
	default:
		resp.Diagnostics = []Diagnostic{{Type: "RequestError", Message: fmt.Sprintf("unknown action %q", req.Action)}}
		return resp
	}
	resp.OK = true
	return resp
}

func diagnostics(err error) []Diagnostic {
	var list errors.List
	switch e := err.(type) {
	case errors.List:
		list = e
	default:
		ce, ok := errors.As(err)
		if !ok {
			return []Diagnostic{{Type: "Error", Message: err.Error()}}
		}
		list = errors.List{ce}
	}
	ds := make([]Diagnostic, len(list))
	for i, ce := range list {
		ds[i] = Diagnostic{
			Type:    string(ce.Type),
			Line:    ce.Location.Line,
			Column:  ce.Location.Column,
			Message: ce.Message,
		}
	}
	return ds
}

// ListenAndServe serves the playground at addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, s *Server) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
