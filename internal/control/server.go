package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/log"
	"github.com/firestige/taskctl/internal/task"
)

// Runner is the subset of the execution core the control surface
// drives.
type Runner interface {
	GetTask(name string) (*catalog.Task, bool)
	TaskList() []string
	TaskStatus() map[string]int
	Run(taskDef *catalog.Task, args map[string]any, observers []task.Observer) (*task.TaskRun, error)
}

// Server is the UDS accept-loop control surface. One goroutine per
// connection; conns are tracked so Stop can force them closed, and
// Stop blocks on the same WaitGroup the connection goroutines signal.
type Server struct {
	socketPath   string
	runner       Runner
	shutdownFunc func()

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewServer builds a control server bound to socketPath. shutdownFunc
// is invoked on a new goroutine each time a client calls
// daemon_shutdown; the reply does not wait for it.
func NewServer(socketPath string, runner Runner, shutdownFunc func()) *Server {
	return &Server{
		socketPath:   socketPath,
		runner:       runner,
		shutdownFunc: shutdownFunc,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Start removes any stale socket file, binds, restricts permissions to
// 0600, and launches the accept loop. Idempotent.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	_ = os.Remove(s.socketPath)
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return err
	}

	s.listener = ln
	s.running = true
	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Stop closes the listener and every tracked connection, then waits
// for all connection goroutines to exit. Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
	}()

	dec := json.NewDecoder(bufio.NewReader(conn))
	enc := json.NewEncoder(conn)
	for {
		var cmd Command
		if err := dec.Decode(&cmd); err != nil {
			return
		}
		resp := s.dispatch(cmd)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(cmd Command) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.GetLogger().Errorf("control: surface fault handling %s: %v", cmd.Method, r)
			resp = errResponse(cmd.ID, CodeInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	switch cmd.Method {
	case "ping":
		return okResponse(cmd.ID, "pong")
	case "task_list":
		return okResponse(cmd.ID, map[string]any{"tasks": s.runner.TaskList()})
	case "task_status":
		return okResponse(cmd.ID, map[string]any{"running": s.runner.TaskStatus()})
	case "task_run":
		return s.handleTaskRun(cmd)
	case "daemon_shutdown":
		if s.shutdownFunc != nil {
			go s.shutdownFunc()
		}
		return okResponse(cmd.ID, "shutting down")
	default:
		return errResponse(cmd.ID, CodeInvalidMethod, "unknown method: "+cmd.Method)
	}
}

func (s *Server) handleTaskRun(cmd Command) Response {
	var p runParams
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return errResponse(cmd.ID, CodeInvalidParams, err.Error())
		}
	}
	taskDef, ok := s.runner.GetTask(p.TaskName)
	if !ok {
		return errResponse(cmd.ID, CodeTaskNotFound, "task not found: "+p.TaskName)
	}
	run, err := s.runner.Run(taskDef, p.Args, nil)
	if err != nil {
		return errResponse(cmd.ID, CodeGateRefusal, err.Error())
	}
	return okResponse(cmd.ID, map[string]any{"run_id": run.ID()})
}
