package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "medivoice.pid"
	ProtoVer = "1.0"

	replyTimeout = 10 * time.Second
)

// Commands understood by the daemon. Name and Upload take an argument.
const (
	CmdName    byte = 'n'
	CmdRecord  byte = 'r'
	CmdStop    byte = 'x'
	CmdProcess byte = 'p'
	CmdUpload  byte = 'u'
	CmdCancel  byte = 'c'
	CmdStatus  byte = 's'
	CmdResult  byte = 'o'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

// FormatCommand builds one protocol line. Newlines in arg become spaces.
func FormatCommand(cmd byte, arg string) string {
	arg = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(arg))
	if arg == "" {
		return string(cmd) + "\n"
	}
	return string(cmd) + " " + arg + "\n"
}

// ParseCommand splits a protocol line into its command byte and argument.
func ParseCommand(line string) (byte, string, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return 0, "", errors.New("empty command")
	}
	if len(line) > 1 && line[1] != ' ' {
		return 0, "", fmt.Errorf("malformed command %q", line)
	}
	return line[0], strings.TrimSpace(line[1:]), nil
}

// ReplyError is an ERR reply from the daemon.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string { return e.Message }

// ParseReply splits a reply into its kind (OK, STATUS, RESULT) and payload.
func ParseReply(resp string) (string, string, error) {
	resp = strings.TrimRight(resp, "\r\n")
	kind, payload, _ := strings.Cut(resp, " ")
	switch kind {
	case "OK", "STATUS", "RESULT":
		return kind, payload, nil
	case "ERR":
		return kind, "", &ReplyError{Message: payload}
	}
	return "", "", fmt.Errorf("unexpected reply %q", resp)
}

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", s.path)
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails if the PID file names a live process and removes it otherwise.
func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil || !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Endpoint is the daemon's control socket and PID file.
type Endpoint struct {
	socket socketManager
	pid    pidManager
}

// NewEndpoint places the socket and PID file in dir.
func NewEndpoint(dir string) *Endpoint {
	return &Endpoint{
		socket: socketManager{path: filepath.Join(dir, SockName)},
		pid:    pidManager{path: filepath.Join(dir, PidName)},
	}
}

// DefaultEndpoint lives in ~/.cache/medivoice.
func DefaultEndpoint() (*Endpoint, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return NewEndpoint(filepath.Join(dir, "medivoice")), nil
}

func (e *Endpoint) SockPath() string { return e.socket.path }
func (e *Endpoint) PidPath() string  { return e.pid.path }

func (e *Endpoint) Listen() (net.Listener, error) { return e.socket.listen() }
func (e *Endpoint) CheckExisting() error          { return e.pid.checkExisting() }
func (e *Endpoint) CreatePidFile() error          { return e.pid.create() }
func (e *Endpoint) RemovePidFile() error          { return e.pid.remove() }

// Send writes one command line and returns the single-line reply.
func (e *Endpoint) Send(cmd byte, arg string) (string, error) {
	c, err := e.socket.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := c.Write([]byte(FormatCommand(cmd, arg))); err != nil {
		return "", err
	}
	return bufio.NewReader(c).ReadString('\n')
}

// SendCommand talks to the daemon at the default endpoint.
func SendCommand(cmd byte, arg string) (string, error) {
	e, err := DefaultEndpoint()
	if err != nil {
		return "", err
	}
	return e.Send(cmd, arg)
}
