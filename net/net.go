package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdnet "net"
	"net/http"
	"strings"
	"sync"

	c "Userdb/common"
	"Userdb/service"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

const (
	rpcPrefix      = "/rpc/"
	registryPrefix = "/registry/"
)

// Server serves bound services over HTTP. It also acts as the registry the
// clients query to find a service by its logical name.
type Server struct {
	addr     string
	maxConns int

	mu       sync.RWMutex
	bindings map[string]service.API

	listener   stdnet.Listener
	httpServer *http.Server
}

// NewServer creates a server for addr. maxConns caps simultaneous
// connections; zero means no cap.
func NewServer(addr string, maxConns int) *Server {
	s := &Server{
		addr:     addr,
		maxConns: maxConns,
		bindings: make(map[string]service.API),
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s
}

// Bind registers api under name, replacing any previous binding.
func (s *Server) Bind(name string, api service.API) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[name] = api
	logrus.Infof("%s: bound service %q", c.CurFuncName(), name)
}

// Unbind removes name from the registry. Later calls to it fail as not bound.
func (s *Server) Unbind(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bindings[name]
	delete(s.bindings, name)
	if ok {
		logrus.Infof("%s: unbound service %q", c.CurFuncName(), name)
	}
	return ok
}

func (s *Server) lookup(name string) (service.API, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	api, ok := s.bindings[name]
	return api, ok
}

// Listen opens the listening socket. It is separate from Serve so that a
// port already in use is reported before anything else starts.
func (s *Server) Listen() error {
	l, err := stdnet.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if s.maxConns > 0 {
		l = netutil.LimitListener(l, s.maxConns)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address once Listen succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Serve blocks until the server is shut down. It returns nil after Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	logrus.Infof("%s: listening on %s", c.CurFuncName(), s.Addr())
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight calls to be
// answered or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(registryPrefix, s.handleLookup)
	mux.HandleFunc(rpcPrefix, s.handleCall)
	return mux
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, registryPrefix)
	if _, ok := s.lookup(name); !ok {
		http.Error(w, fmt.Sprintf("%s not bound", name), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, rpcPrefix)
	api, ok := s.lookup(name)
	if !ok {
		http.Error(w, fmt.Sprintf("%s not bound", name), http.StatusNotFound)
		return
	}

	var req c.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, c.Response{Error: &c.RemoteError{Kind: c.KindBadRequest, Message: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, Dispatch(r.Context(), api, req))
}

// Dispatch runs req against api and packs the outcome into a Response. A
// panic inside the call is confined to this request.
func Dispatch(ctx context.Context, api service.API, req c.Request) (resp c.Response) {
	defer func() {
		if p := recover(); p != nil {
			logrus.Errorf("%s: %s request panicked: %v", c.CurFuncName(), req.Operation, p)
			resp = c.Response{Error: &c.RemoteError{Kind: c.KindInternal, Message: fmt.Sprint(p)}}
		}
	}()

	var err error
	switch req.Operation {
	case c.Create:
		var rec c.Record
		rec, err = api.Create(ctx, req.Record)
		if err == nil {
			resp.Record = &rec
			resp.Found = true
		}
	case c.Delete:
		resp.Found, err = api.Delete(ctx, req.ID)
	case c.Read:
		var rec c.Record
		rec, resp.Found, err = api.Read(ctx, req.ID)
		if err == nil && resp.Found {
			resp.Record = &rec
		}
	case c.List:
		resp.Records, err = api.List(ctx)
		if resp.Records == nil {
			resp.Records = []c.Record{}
		}
	case c.UpdateSalary:
		resp.Found, err = api.UpdateSalary(ctx, req.ID, req.Salary)
	case c.UpdateDepartment:
		resp.Found, err = api.UpdateDepartmentAndPosition(ctx, req.ID, req.Department, req.Position)
	case c.Shutdown:
		err = api.Shutdown(ctx)
	default:
		return c.Response{Error: &c.RemoteError{Kind: c.KindBadRequest, Message: fmt.Sprintf("unsupported operation %s", req.Operation)}}
	}
	if err != nil {
		return c.Response{Error: toRemoteError(err)}
	}
	return resp
}

func toRemoteError(err error) *c.RemoteError {
	var ve *c.ValidationError
	if errors.As(err, &ve) {
		return &c.RemoteError{Kind: c.KindValidation, Message: ve.Reason}
	}
	return &c.RemoteError{Kind: c.KindInternal, Message: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("%s: failed to write response: %v", c.CurFuncName(), err)
	}
}
