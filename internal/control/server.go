package control

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/supervisor"
)

// SocketPath returns the per-process socket path of spec §6:
// <uds-folder>/warden-<pid>.sock.
func SocketPath(udsFolder string, pid int) string {
	return filepath.Join(udsFolder, fmt.Sprintf("warden-%d.sock", pid))
}

// Server is the control endpoint's acceptor: one UNIX domain socket per
// supervisor process, answering status queries and forwarding start/stop
// commands to the repository/scheduler/shutdown coordinator.
type Server struct {
	repo   *supervisor.Repository
	bus    *eventbus.Bus
	logger logging.Logger

	path     string
	listener net.Listener
}

// NewServer creates a Server that will listen at path, reading state from
// repo and publishing commands to bus.
func NewServer(repo *supervisor.Repository, bus *eventbus.Bus, path string, logger logging.Logger) *Server {
	return &Server{repo: repo, bus: bus, logger: logger, path: path}
}

// Listen creates the uds folder if needed, removes a stale socket file
// left by a prior run at the same path, and binds the listener.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("control: create uds folder: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("control: remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", s.path, err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until the listener is closed. Intended to run
// in its own goroutine; Close unblocks it.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if s.logger != nil {
				s.logger.Warn("", "control_accept_failed", err.Error(), nil)
			}
			continue
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the listener and removes the socket file.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		var req Request
		if err := readFrame(conn, &req); err != nil {
			return
		}
		resp := s.handleRequest(req)
		if err := writeFrame(conn, resp); err != nil {
			if s.logger != nil {
				s.logger.Warn("", "control_write_failed", err.Error(), nil)
			}
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Op {
	case OpStatus:
		return s.handleStatus(req.Service)
	case OpChange:
		return s.handleChange(req.Service, req.Action)
	default:
		return Response{Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

func (s *Server) handleStatus(service string) Response {
	if service != "" {
		view, ok := s.repo.Get(service)
		if !ok {
			return Response{Error: fmt.Sprintf("unknown service %q", service)}
		}
		return Response{Statuses: []ServiceStatus{toServiceStatus(view)}}
	}

	snapshot := s.repo.Snapshot()
	out := make([]ServiceStatus, 0, len(snapshot))
	for _, view := range snapshot {
		out = append(out, toServiceStatus(view))
	}
	return Response{Statuses: out}
}

func (s *Server) handleChange(service string, action Action) Response {
	if service == "" {
		return Response{Error: "change requires a service name"}
	}
	if _, ok := s.repo.Get(service); !ok {
		return Response{Error: fmt.Sprintf("unknown service %q", service)}
	}

	switch action {
	case ActionStart:
		if !s.repo.Restart(service) {
			return Response{Error: fmt.Sprintf("service %q is not in a terminal state", service)}
		}
		return Response{}
	case ActionStop:
		s.bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.ControlCommand, Scope: service})
		return Response{}
	default:
		return Response{Error: fmt.Sprintf("unknown action %q", action)}
	}
}

func toServiceStatus(view supervisor.View) ServiceStatus {
	return ServiceStatus{
		Name:          view.Name,
		State:         view.Status.String(),
		PID:           view.PID,
		StartAttempts: view.StartAttempts,
	}
}
