package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcgate "github.com/oshokin/gatekeeper/internal/api/grpc/gate"
	domain "github.com/oshokin/gatekeeper/internal/domain/gate"
	"github.com/oshokin/gatekeeper/internal/logger"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// Service is the read side of the poll loop.
type Service interface {
	Snapshot() *domain.Snapshot
}

// resourceResponse is the body of /api/resource.
type resourceResponse struct {
	// PID is the daemon process ID.
	PID int32 `json:"pid"`
	// CPUPercent is the CPU usage since the process started.
	CPUPercent float64 `json:"cpu_percent"`
	// MemoryRSS is the resident set size in bytes.
	MemoryRSS uint64 `json:"memory_rss"`
	// Threads is the OS thread count.
	Threads int32 `json:"threads"`
}

// Presser holds the simulated call button down. A zero duration asks the
// driver for its default press.
type Presser interface {
	Press(d time.Duration)
}

// Option customizes a Server.
type Option func(*Server)

// WithSimulator enables POST /api/sim/press for the simulated hardware driver.
func WithSimulator(p Presser) Option {
	return func(s *Server) {
		s.presser = p
	}
}

// Server renders the snapshot as JSON.
type Server struct {
	// service provides the published snapshot.
	service Service
	// instance identifies this daemon.
	instance string
	// presser is the simulated button, nil on real hardware.
	presser Presser
	// router dispatches requests.
	router *mux.Router
}

// NewServer creates a server and registers its routes.
func NewServer(service Service, instance string, opts ...Option) *Server {
	s := &Server{
		service:  service,
		instance: instance,
		router:   mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.status).Methods(http.MethodGet)
	api.HandleFunc("/subscribers", s.subscribers).Methods(http.MethodGet)
	api.HandleFunc("/subscribers/{address}", s.subscriber).Methods(http.MethodGet)
	api.HandleFunc("/resource", s.resource).Methods(http.MethodGet)

	if s.presser != nil {
		api.HandleFunc("/sim/press", s.press).Methods(http.MethodPost)
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on address until ctx is done.
func (s *Server) Serve(ctx context.Context, address string) error {
	ctx = logger.WithName(ctx, "http-status")

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: shutdownTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	logger.InfoKV(ctx, "HTTP status API listening", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done

	return nil
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	if snap == nil {
		http.Error(w, "controller has not published a snapshot", http.StatusServiceUnavailable)

		return
	}

	s.writeStruct(w, r, grpcgate.StatusFields(snap, s.instance))
}

func (s *Server) subscribers(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	if snap == nil {
		http.Error(w, "controller has not published a snapshot", http.StatusServiceUnavailable)

		return
	}

	fields := grpcgate.StatusFields(snap, s.instance)

	s.writeStruct(w, r, map[string]any{
		"subscribers": fields["subscribers"],
	})
}

func (s *Server) subscriber(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddrPort(mux.Vars(r)["address"])
	if err != nil {
		http.Error(w, "address must be ip:port", http.StatusBadRequest)

		return
	}

	snap := s.service.Snapshot()
	if snap == nil {
		http.Error(w, "controller has not published a snapshot", http.StatusServiceUnavailable)

		return
	}

	for _, sub := range snap.Subscribers {
		if sub.Address != addr {
			continue
		}

		s.writeStruct(w, r, map[string]any{
			"address":       sub.Address.String(),
			"subscribed_at": sub.SubscribedAt.UTC().Format(time.RFC3339Nano),
			"renewed_at":    sub.RenewedAt.UTC().Format(time.RFC3339Nano),
		})

		return
	}

	http.NotFound(w, r)
}

func (s *Server) resource(w http.ResponseWriter, r *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // PIDs fit in int32.
	if err != nil {
		s.fail(w, r, "inspect process", err)

		return
	}

	cpu, err := proc.CPUPercent()
	if err != nil {
		s.fail(w, r, "read CPU usage", err)

		return
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		s.fail(w, r, "read memory usage", err)

		return
	}

	threads, err := proc.NumThreads()
	if err != nil {
		s.fail(w, r, "read thread count", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resourceResponse{
		PID:        proc.Pid,
		CPUPercent: cpu,
		MemoryRSS:  mem.RSS,
		Threads:    threads,
	}); err != nil {
		logger.WarnKV(r.Context(), "Failed to write response", "error", err)
	}
}

// press holds the button for the "duration" query value, or the driver
// default when it is absent.
func (s *Server) press(w http.ResponseWriter, r *http.Request) {
	var d time.Duration

	if raw := r.URL.Query().Get("duration"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "duration must be a positive Go duration", http.StatusBadRequest)

			return
		}

		d = parsed
	}

	s.presser.Press(d)

	logger.InfoKV(r.Context(), "Simulated ringer pressed", "duration", d)

	w.WriteHeader(http.StatusAccepted)
}

// writeStruct renders fields through protojson so both admin APIs share one shape.
func (s *Server) writeStruct(w http.ResponseWriter, r *http.Request, fields map[string]any) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		s.fail(w, r, "encode response", err)

		return
	}

	data, err := protojson.Marshal(st)
	if err != nil {
		s.fail(w, r, "marshal response", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		logger.WarnKV(r.Context(), "Failed to write response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	logger.ErrorKV(r.Context(), "HTTP request failed", "path", r.URL.Path, "step", what, "error", err)
	http.Error(w, what+" failed", http.StatusInternalServerError)
}
