package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPidManagerBasics(t *testing.T) {
	testPidManager := &pidManager{
		path: filepath.Join(t.TempDir(), PidName),
	}

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(testPidManager.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if want := strconv.Itoa(os.Getpid()); string(pidData) != want {
			t.Errorf("PID file contains %q, expected %q", string(pidData), want)
		}

		if err := testPidManager.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer testPidManager.remove()

		if err := testPidManager.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	stale := []struct {
		name    string
		content string
	}{
		{"stale PID file", "99999999"},
		{"invalid PID file", "invalid"},
	}
	for _, tt := range stale {
		t.Run("checkExisting with "+tt.name, func(t *testing.T) {
			if err := os.WriteFile(testPidManager.path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write PID file: %v", err)
			}
			if err := testPidManager.checkExisting(); err != nil {
				t.Errorf("checkExisting should succeed: %v", err)
			}
			if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
				t.Error("PID file should be removed")
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(99999999) {
		t.Error("non-existent process should not be alive")
	}
	if pm.isProcessAlive(0) {
		t.Error("pid 0 should not count as alive")
	}
}

func TestFormatAndParseCommand(t *testing.T) {
	tests := []struct {
		cmd     byte
		arg     string
		line    string
		wantArg string
	}{
		{CmdStatus, "", "s\n", ""},
		{CmdName, "Juan Pérez", "n Juan Pérez\n", "Juan Pérez"},
		{CmdName, "  padded  ", "n padded\n", "padded"},
		{CmdName, "two\nlines", "n two lines\n", "two lines"},
		{CmdUpload, "/tmp/a b.m4a", "u /tmp/a b.m4a\n", "/tmp/a b.m4a"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			line := FormatCommand(tt.cmd, tt.arg)
			if line != tt.line {
				t.Fatalf("FormatCommand() = %q, want %q", line, tt.line)
			}
			cmd, arg, err := ParseCommand(line)
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if cmd != tt.cmd || arg != tt.wantArg {
				t.Errorf("ParseCommand() = %c %q, want %c %q", cmd, arg, tt.cmd, tt.wantArg)
			}
		})
	}

	for _, bad := range []string{"", "\n", "status\n"} {
		if _, _, err := ParseCommand(bad); err == nil {
			t.Errorf("ParseCommand(%q) should fail", bad)
		}
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		resp        string
		wantKind    string
		wantPayload string
		wantErr     bool
	}{
		{"OK recording\n", "OK", "recording", false},
		{"STATUS status=idle name=\"\"\n", "STATUS", "status=idle name=\"\"", false},
		{"RESULT {\"id\":\"1\"}\n", "RESULT", "{\"id\":\"1\"}", false},
		{"ERR busy\n", "ERR", "", true},
		{"garbage\n", "", "", true},
	}

	for _, tt := range tests {
		kind, payload, err := ParseReply(tt.resp)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseReply(%q) error = %v, wantErr %v", tt.resp, err, tt.wantErr)
			continue
		}
		if kind != tt.wantKind || payload != tt.wantPayload {
			t.Errorf("ParseReply(%q) = %q, %q", tt.resp, kind, payload)
		}
	}

	_, _, err := ParseReply("ERR no pending recording\n")
	re, ok := err.(*ReplyError)
	if !ok || re.Message != "no pending recording" {
		t.Errorf("ERR reply should give ReplyError, got %v", err)
	}
}

func TestEndpointSend(t *testing.T) {
	e := NewEndpoint(t.TempDir())

	ln, err := e.Listen()
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				cmd, arg, err := ParseCommand(line)
				if err != nil {
					fmt.Fprintf(c, "ERR %v\n", err)
					return
				}
				switch cmd {
				case CmdName:
					fmt.Fprintf(c, "OK name=%q\n", arg)
				case CmdVersion:
					fmt.Fprintf(c, "STATUS proto=%s\n", ProtoVer)
				default:
					fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
				}
			}(conn)
		}
	}()

	tests := []struct {
		cmd  byte
		arg  string
		want string
	}{
		{CmdName, "Visit", "OK name=\"Visit\"\n"},
		{CmdVersion, "", fmt.Sprintf("STATUS proto=%s\n", ProtoVer)},
		{'z', "", "ERR unknown='z'\n"},
	}
	for _, tt := range tests {
		got, err := e.Send(tt.cmd, tt.arg)
		if err != nil {
			t.Errorf("Send(%c) error = %v", tt.cmd, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Send(%c) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestEndpointSendWithoutListener(t *testing.T) {
	e := NewEndpoint(t.TempDir())
	if _, err := e.Send(CmdStatus, ""); err == nil {
		t.Error("Send should fail when no daemon is listening")
	}
}

func TestEndpointListenRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	e := NewEndpoint(dir)
	if err := os.WriteFile(e.SockPath(), []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	ln, err := e.Listen()
	if err != nil {
		t.Fatalf("Listen() over stale file error = %v", err)
	}
	ln.Close()
}

func TestDefaultEndpoint(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)

	e, err := DefaultEndpoint()
	if err != nil {
		t.Fatalf("DefaultEndpoint() error = %v", err)
	}
	if want := filepath.Join(cache, "medivoice", SockName); e.SockPath() != want {
		t.Errorf("SockPath() = %q, want %q", e.SockPath(), want)
	}
	if want := filepath.Join(cache, "medivoice", PidName); e.PidPath() != want {
		t.Errorf("PidPath() = %q, want %q", e.PidPath(), want)
	}
}
