// Package diag carries the step/success/warn hooks the resolution pipeline
// reports through. Hooks receive kinds and ids only, never raw authored text.
package diag

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Tracer observes pipeline boundaries.
type Tracer interface {
	Step(name string, fields logrus.Fields)
	Success(name string, fields logrus.Fields)
	Warn(name string, fields logrus.Fields)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Step(string, logrus.Fields)    {}
func (Nop) Success(string, logrus.Fields) {}
func (Nop) Warn(string, logrus.Fields)    {}

// Logger reports steps at debug level, successes at info and warnings at warn.
type Logger struct {
	Log logrus.FieldLogger
}

// NewLogger wraps log, falling back to the standard logrus logger.
func NewLogger(log logrus.FieldLogger) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{Log: log}
}

func (l *Logger) Step(name string, fields logrus.Fields) {
	l.Log.WithFields(fields).WithField("step", name).Debug("scope step")
}

func (l *Logger) Success(name string, fields logrus.Fields) {
	l.Log.WithFields(fields).WithField("step", name).Info("scope step done")
}

func (l *Logger) Warn(name string, fields logrus.Fields) {
	l.Log.WithFields(fields).WithField("step", name).Warn("scope diagnostic")
}

// Level of a recorded event.
type Level string

const (
	LevelStep    Level = "step"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
)

// Event is one recorded tracer call.
type Event struct {
	Level  Level
	Name   string
	Fields logrus.Fields
}

// Recorder keeps every event in memory. It backs the CLI --trace output and
// tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(level Level, name string, fields logrus.Fields) {
	copied := make(logrus.Fields, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.mu.Lock()
	r.events = append(r.events, Event{Level: level, Name: name, Fields: copied})
	r.mu.Unlock()
}

func (r *Recorder) Step(name string, fields logrus.Fields)    { r.record(LevelStep, name, fields) }
func (r *Recorder) Success(name string, fields logrus.Fields) { r.record(LevelSuccess, name, fields) }
func (r *Recorder) Warn(name string, fields logrus.Fields)    { r.record(LevelWarn, name, fields) }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Warnings returns the names of recorded warnings in order.
func (r *Recorder) Warnings() []string {
	var out []string
	for _, e := range r.Events() {
		if e.Level == LevelWarn {
			out = append(out, e.Name)
		}
	}
	return out
}

// Multi fans out to several tracers.
type Multi []Tracer

func (m Multi) Step(name string, fields logrus.Fields) {
	for _, t := range m {
		t.Step(name, fields)
	}
}

func (m Multi) Success(name string, fields logrus.Fields) {
	for _, t := range m {
		t.Success(name, fields)
	}
}

func (m Multi) Warn(name string, fields logrus.Fields) {
	for _, t := range m {
		t.Warn(name, fields)
	}
}
