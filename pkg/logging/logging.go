// Package logging provides structured JSON logging for the PriceWatch client.
//
// Entries are single-line JSON written through the standard logger, so output
// composes with whatever sink the host application configures via log.SetOutput.
// Fields are flat key-value pairs; nested payloads should be pre-serialized by
// the caller.
package logging

import (
	"encoding/json"
	"log"
	"time"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	Component string         `json:"component"`
	Msg       string         `json:"msg"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func write(level, component, msg string, err error, fields map[string]any) {
	e := entry{
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: component,
		Msg:       msg,
		Fields:    fields,
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		log.Printf(`{"level":"error","component":"logging","msg":"marshal failed","err":%q}`, marshalErr.Error())
		return
	}
	log.Println(string(b))
}

// Debug logs a debug-level entry.
func Debug(component, msg string, fields map[string]any) { write("debug", component, msg, nil, fields) }

// Info logs an info-level entry.
func Info(component, msg string, fields map[string]any) { write("info", component, msg, nil, fields) }

// Warn logs a warning-level entry, optionally with an error.
func Warn(component, msg string, err error, fields map[string]any) {
	write("warn", component, msg, err, fields)
}

// Error logs an error-level entry.
func Error(component, msg string, err error, fields map[string]any) {
	write("error", component, msg, err, fields)
}
