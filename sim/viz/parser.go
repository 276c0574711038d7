// Package viz tail-renders a simulation log file in the terminal. It
// is a thin observer: it only ever reads the log.
package viz

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one parsed log line.
type Entry struct {
	SimMinutes int
	ActorID    int
	HasMetrics bool
	Inside     int
	Capacity   int
	RegQ       int
	TriageQ    int
	SpecQ      int
	WaitSem    int
	StateLock  int
	Role       string
	Text       string
}

// ParseLine parses one log line of the form
//
//	simMinutes;actorID;[wR=i/c;rQ=n;tQ=n;sQ=n;wSem=n;sSem=n;]role;text
//
// The text field is free-form and may itself contain semicolons.
func ParseLine(line string) (Entry, error) {
	var e Entry
	parts := strings.SplitN(line, ";", 3)
	if len(parts) < 3 {
		return e, fmt.Errorf("short log line %q", line)
	}
	var err error
	if e.SimMinutes, err = strconv.Atoi(parts[0]); err != nil {
		return e, fmt.Errorf("sim minutes %q: %w", parts[0], err)
	}
	if e.ActorID, err = strconv.Atoi(parts[1]); err != nil {
		return e, fmt.Errorf("actor id %q: %w", parts[1], err)
	}

	rest := parts[2]
	if strings.HasPrefix(rest, "wR=") {
		fields := strings.SplitN(rest, ";", 8)
		if len(fields) < 8 {
			return e, fmt.Errorf("short metrics block in %q", line)
		}
		if err := e.parseMetrics(fields[:6]); err != nil {
			return e, err
		}
		e.HasMetrics = true
		e.Role = fields[6]
		e.Text = fields[7]
		return e, nil
	}

	role, text, ok := strings.Cut(rest, ";")
	if !ok {
		return e, fmt.Errorf("missing role separator in %q", line)
	}
	e.Role = role
	e.Text = text
	return e, nil
}

func (e *Entry) parseMetrics(fields []string) error {
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("bad metrics field %q", f)
		}
		switch key {
		case "wR":
			in, capa, ok := strings.Cut(val, "/")
			if !ok {
				return fmt.Errorf("bad occupancy %q", val)
			}
			var err error
			if e.Inside, err = strconv.Atoi(in); err != nil {
				return err
			}
			if e.Capacity, err = strconv.Atoi(capa); err != nil {
				return err
			}
		case "rQ", "tQ", "sQ", "wSem", "sSem":
			v, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("bad metrics value %q: %w", f, err)
			}
			switch key {
			case "rQ":
				e.RegQ = v
			case "tQ":
				e.TriageQ = v
			case "sQ":
				e.SpecQ = v
			case "wSem":
				e.WaitSem = v
			case "sSem":
				e.StateLock = v
			}
		default:
			return fmt.Errorf("unknown metrics key %q", key)
		}
	}
	return nil
}
