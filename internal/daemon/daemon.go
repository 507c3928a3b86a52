package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/medivoice/medivoice/internal/bus"
	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/consult"
	"github.com/medivoice/medivoice/internal/notify"
	"github.com/medivoice/medivoice/internal/paste"
	"github.com/medivoice/medivoice/internal/pipeline"
	"github.com/medivoice/medivoice/internal/recording"
)

// ResultView is the payload of a RESULT reply.
type ResultView struct {
	Attempt      string            `json:"attempt,omitempty"`
	Status       pipeline.Status   `json:"status"`
	Details      *consult.Details  `json:"details,omitempty"`
	Recent       []consult.Summary `json:"recent,omitempty"`
	RefreshError string            `json:"refreshError,omitempty"`
	Error        string            `json:"error,omitempty"`
	Unauthorized bool              `json:"unauthorized,omitempty"`
	TimedOut     bool              `json:"timedOut,omitempty"`
}

type Daemon struct {
	mu         sync.Mutex
	notifier   notify.Notifier
	paster     paste.Paster
	endpoint   *bus.Endpoint
	session    *recording.Session
	engine     *pipeline.Engine
	name       string
	submitting bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(endpoint *bus.Endpoint, engine *pipeline.Engine, session *recording.Session, n notify.Notifier) *Daemon {
	if n == nil {
		n = notify.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		notifier: n,
		paster:   paste.Nop{},
		endpoint: endpoint,
		session:  session,
		engine:   engine,
		ctx:      ctx,
		cancel:   cancel,
	}
	engine.OnStatus(d.statusChanged)
	return d
}

// SetPaster sets where a finished summary is delivered.
func (d *Daemon) SetPaster(p paste.Paster) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p == nil {
		p = paste.Nop{}
	}
	d.paster = p
}

// WatchConfig applies reloaded configuration to the next submission.
func (d *Daemon) WatchConfig(m *config.Manager) {
	m.OnReload(func(cfg *config.Config) {
		d.engine.SetPolicy(cfg.ToPolicy())
		d.engine.SetRecentLimit(cfg.Results.RecentLimit)
		d.engine.SetBackend(cfg.NewClient())

		d.SetPaster(cfg.NewPaster())

		n := cfg.NewNotifier()
		d.mu.Lock()
		d.notifier = n
		d.mu.Unlock()
		n.Send(notify.MsgConfigReloaded)
	})
	if err := m.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config hot reload disabled: %v", err)
	}
}

func (d *Daemon) currentNotifier() notify.Notifier {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notifier
}

func (d *Daemon) statusChanged(s pipeline.Status) {
	switch s {
	case pipeline.Uploading:
		d.currentNotifier().Send(notify.MsgUploading)
	case pipeline.Polling:
		d.currentNotifier().Send(notify.MsgProcessing)
	}
}

func (d *Daemon) Run() error {
	if err := d.endpoint.CheckExisting(); err != nil {
		return err
	}

	ln, err := d.endpoint.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := d.endpoint.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer d.endpoint.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Daemon: received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon: started, listening on %s", d.endpoint.SockPath())

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Daemon: shutdown requested")
				d.shutdown()
				return nil
			}
			log.Printf("Daemon: accept error: %v", err)
			d.shutdown()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) shutdown() {
	d.cancel()
	if d.session.Abort() {
		log.Printf("Daemon: discarded recording in progress")
	}
	d.wg.Wait()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	cmd, arg, err := bus.ParseCommand(line)
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	fmt.Fprint(c, d.Execute(cmd, arg))
}

// Execute runs one protocol command and returns the reply line.
func (d *Daemon) Execute(cmd byte, arg string) string {
	switch cmd {
	case bus.CmdName:
		return d.setName(arg)
	case bus.CmdRecord:
		return d.record()
	case bus.CmdStop:
		return d.stop()
	case bus.CmdProcess:
		return d.process()
	case bus.CmdUpload:
		return d.upload(arg)
	case bus.CmdCancel:
		return d.cancelCurrent()
	case bus.CmdStatus:
		return d.status()
	case bus.CmdResult:
		return d.result()
	case bus.CmdVersion:
		return fmt.Sprintf("STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		d.cancel()
		return "OK quitting\n"
	default:
		log.Printf("Daemon: unknown command: %c", cmd)
		return fmt.Sprintf("ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) setName(name string) string {
	if name == "" {
		return "ERR name must not be empty\n"
	}
	d.mu.Lock()
	d.name = name
	d.mu.Unlock()
	return fmt.Sprintf("OK name=%q\n", name)
}

func (d *Daemon) currentName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

func (d *Daemon) record() string {
	if err := d.session.Start(d.ctx, d.currentName()); err != nil {
		return errReply(err)
	}
	d.currentNotifier().Send(notify.MsgRecordingStarted)
	return "OK recording\n"
}

func (d *Daemon) stop() string {
	blob, ok, err := d.session.Stop()
	if !ok {
		return "OK not recording\n"
	}
	if err != nil {
		return errReply(err)
	}
	d.currentNotifier().Send(notify.MsgRecordingStopped)
	return fmt.Sprintf("OK stopped bytes=%d\n", blob.Size())
}

func (d *Daemon) process() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		return errReply(consult.ErrBusy)
	}
	blob, name, ok := d.session.Take()
	if !ok {
		return "ERR no pending recording\n"
	}
	d.startSubmit(blob, name)
	return "OK submitting\n"
}

func (d *Daemon) upload(path string) string {
	if path == "" {
		return "ERR upload needs a file path\n"
	}
	blob, err := consult.LoadAudioFile(path)
	if err != nil {
		return errReply(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.name == "" {
		return errReply(consult.NewValidationError("name", "set a consultation name first"))
	}
	if d.submitting {
		return errReply(consult.ErrBusy)
	}
	d.startSubmit(blob, d.name)
	return "OK submitting\n"
}

// startSubmit must be called with d.mu held.
func (d *Daemon) startSubmit(blob consult.AudioBlob, name string) {
	d.submitting = true
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			d.submitting = false
			d.mu.Unlock()
		}()

		res, err := d.engine.Submit(d.ctx, blob, name)
		n := d.currentNotifier()
		switch {
		case err == nil:
			n.Send(notify.MsgConsultReady)
			d.mu.Lock()
			p := d.paster
			d.mu.Unlock()
			if perr := p.Paste(d.ctx, paste.Text(res.Details)); perr != nil {
				log.Printf("Daemon: paste failed: %v", perr)
			}
			if res.RefreshErr != nil {
				log.Printf("Daemon: recent list not refreshed: %v", res.RefreshErr)
			}
		case errors.Is(err, consult.ErrUnauthorized):
			n.Send(notify.MsgSessionExpired)
		case errors.Is(err, context.Canceled):
			n.Send(notify.MsgOperationCancelled)
		default:
			n.Error(err.Error())
		}
	}()
}

func (d *Daemon) cancelCurrent() string {
	if d.session.Abort() {
		d.currentNotifier().Send(notify.MsgRecordingAborted)
		return "OK recording aborted\n"
	}
	if d.engine.Cancel() {
		return "OK submission cancelled\n"
	}
	if d.session.Discard() {
		d.currentNotifier().Send(notify.MsgRecordingAborted)
		return "OK pending recording discarded\n"
	}
	return "OK nothing to cancel\n"
}

func (d *Daemon) status() string {
	attempt := ""
	if a, ok := d.engine.Attempt(); ok {
		attempt = a.ID
	}
	return fmt.Sprintf("STATUS status=%s recording=%s name=%q pending=%t attempt=%s\n",
		d.engine.Status(), d.session.State(), d.currentName(), d.session.HasPending(), attempt)
}

func (d *Daemon) result() string {
	last, lastErr := d.engine.Last()
	if last == nil && lastErr == nil {
		return "ERR no result yet\n"
	}

	view := ResultView{Status: d.engine.Status()}
	if a, ok := d.engine.Attempt(); ok {
		view.Attempt = a.ID
	}
	if last != nil {
		details := last.Details
		view.Details = &details
		view.Recent = last.Recent
		if last.RefreshErr != nil {
			view.RefreshError = last.RefreshErr.Error()
		}
	}
	if lastErr != nil {
		view.Error = lastErr.Error()
		view.Unauthorized = errors.Is(lastErr, consult.ErrUnauthorized)
		view.TimedOut = consult.IsFinalizeKind(lastErr, consult.FinalizeTimeout)
	}

	data, err := json.Marshal(view)
	if err != nil {
		return errReply(err)
	}
	return fmt.Sprintf("RESULT %s\n", data)
}

func errReply(err error) string {
	return fmt.Sprintf("ERR %s\n", oneLine(err.Error()))
}

func oneLine(s string) string {
	out := []byte(s)
	for i, b := range out {
		if b == '\n' || b == '\r' {
			out[i] = ' '
		}
	}
	return string(out)
}
