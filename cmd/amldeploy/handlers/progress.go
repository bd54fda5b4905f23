package handlers

import (
	"errors"
	"fmt"
	"maps"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/provisioning"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/ui/tui"
)

// progressObserver turns provisioning events into progress view messages.
type progressObserver struct {
	send   func(tea.Msg)
	log    logr.Logger
	fields map[string]string
}

func newProgressObserver(send func(tea.Msg), log logr.Logger) *progressObserver {
	return &progressObserver{send: send, log: log}
}

func (o *progressObserver) Printf(format string, v ...any) {
	o.send(tui.StatusMsg{Line: fmt.Sprintf(format, v...)})
}

func (o *progressObserver) Event(event provisioning.Event) {
	o.log.V(1).Info(event.Message,
		"type", string(event.Type),
		"phase", event.Phase,
		"resource", event.Resource,
		"fields", o.merge(event.Fields))

	switch event.Type {
	case provisioning.EventPhaseStarted:
		o.send(tui.PhaseMsg{Phase: event.Phase})
	case provisioning.EventPhaseCompleted:
		o.send(tui.PhaseMsg{Phase: event.Phase, Done: true})
	case provisioning.EventPhaseFailed:
		o.send(tui.PhaseMsg{Phase: event.Phase, Err: errors.New(event.Message)})
	default:
		line := event.Message
		if event.Resource != "" {
			line = event.Resource + ": " + line
		}
		o.send(tui.StatusMsg{Phase: event.Phase, Line: line})
	}
}

func (o *progressObserver) WithFields(fields map[string]string) provisioning.Observer {
	return &progressObserver{send: o.send, log: o.log, fields: o.merge(fields)}
}

func (o *progressObserver) merge(fields map[string]string) map[string]string {
	out := make(map[string]string, len(o.fields)+len(fields))
	maps.Copy(out, o.fields)
	maps.Copy(out, fields)
	return out
}

func phaseNames(p *provisioning.Pipeline) []string {
	names := make([]string, len(p.Phases))
	for i, phase := range p.Phases {
		names[i] = phase.Name()
	}
	return names
}
