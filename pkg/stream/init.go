package stream

import (
	"slices"
	"time"
)

type InitStatus string

const (
	InitStatusRunning InitStatus = "running"
	InitStatusSuccess InitStatus = "success"
	InitStatusError   InitStatus = "error"
)

// InitMessage accumulates the output of a workspace init hook.
//
// It is immutable once published: every output line yields a new
// InitMessage with a new Lines slice, so a consumer holding the previous
// pointer can detect the change by identity.
type InitMessage struct {
	HookPath  string
	Status    InitStatus
	Lines     []string
	ExitCode  *int
	Timestamp time.Time
}

func (m *InitMessage) withLine(line string) *InitMessage {
	c := *m
	c.Lines = append(slices.Clip(m.Lines), line)
	return &c
}

func (m *InitMessage) finished(exitCode int) *InitMessage {
	c := *m
	c.Lines = slices.Clip(m.Lines)
	c.ExitCode = &exitCode
	c.Status = InitStatusSuccess
	if exitCode != 0 {
		c.Status = InitStatusError
	}
	return &c
}
