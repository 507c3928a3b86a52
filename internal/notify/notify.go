package notify

import (
	"fmt"
	"log"
	"os/exec"
)

const appName = "Medivoice"

type MessageType int

const (
	MsgRecordingStarted MessageType = iota
	MsgRecordingStopped
	MsgRecordingAborted
	MsgUploading
	MsgProcessing
	MsgConsultReady
	MsgOperationCancelled
	MsgConfigReloaded
	MsgSessionExpired
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef ties a message to its config key and default text.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{MsgRecordingStarted, "recording_started", appName, "Recording consultation", false},
	{MsgRecordingStopped, "recording_stopped", appName, "Recording stopped, ready to submit", false},
	{MsgRecordingAborted, "recording_aborted", appName, "Recording discarded", false},
	{MsgUploading, "uploading", appName, "Uploading audio...", false},
	{MsgProcessing, "processing", appName, "Transcribing and summarizing...", false},
	{MsgConsultReady, "consult_ready", appName, "Consultation ready", false},
	{MsgOperationCancelled, "operation_cancelled", appName, "Submission cancelled", false},
	{MsgConfigReloaded, "config_reloaded", appName, "Configuration reloaded", false},
	{MsgSessionExpired, "session_expired", appName + " Error", "Session expired, run medivoice login", true},
}

// DefaultMessages returns the built-in text for every message type.
func DefaultMessages() map[MessageType]Message {
	out := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		out[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return out
}

type Notifier interface {
	Send(mt MessageType)
	Notify(title, body string)
	Error(msg string)
}

// New picks a notifier by config type. Unknown types fall back to Log.
func New(kind string, messages map[MessageType]Message) Notifier {
	if messages == nil {
		messages = DefaultMessages()
	}
	switch kind {
	case "desktop":
		return &Desktop{messages: messages}
	case "none":
		return Nop{}
	default:
		return &Log{messages: messages}
	}
}

func lookup(messages map[MessageType]Message, mt MessageType) (Message, bool) {
	msg, ok := messages[mt]
	if !ok {
		msg, ok = DefaultMessages()[mt]
	}
	return msg, ok
}

var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

type Desktop struct {
	messages map[MessageType]Message
}

func (d *Desktop) Send(mt MessageType) {
	msg, ok := lookup(d.messages, mt)
	if !ok {
		return
	}
	if msg.IsError {
		d.send("critical", msg.Title, msg.Body)
		return
	}
	d.Notify(msg.Title, msg.Body)
}

func (d *Desktop) Notify(title, body string) {
	d.send("normal", title, body)
}

func (d *Desktop) Error(msg string) {
	d.send("critical", appName+" Error", msg)
}

func (d *Desktop) send(urgency, title, body string) {
	if err := runCommand("notify-send", "-a", appName, "-u", urgency, title, body); err != nil {
		log.Printf("Notify: failed to send notification: %v", err)
	}
}

// Log writes notifications to the standard logger.
type Log struct {
	messages map[MessageType]Message
}

func (l *Log) Send(mt MessageType) {
	msg, ok := lookup(l.messages, mt)
	if !ok {
		return
	}
	if msg.IsError {
		l.Error(msg.Body)
		return
	}
	l.Notify(msg.Title, msg.Body)
}

func (l *Log) Notify(title, body string) {
	log.Printf("%s", format(title, body))
}

func (l *Log) Error(msg string) {
	log.Printf("%s Error: %s", appName, msg)
}

func format(title, body string) string {
	if body == "" {
		return title
	}
	return fmt.Sprintf("%s: %s", title, body)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(MessageType)      {}
func (Nop) Notify(string, string) {}
func (Nop) Error(string)          {}
