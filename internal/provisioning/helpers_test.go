package provisioning

import (
	"fmt"
	"strings"
	"testing"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	testutil "github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/testing"
)

// MockObserver is a test implementation of Observer that records events.
type MockObserver struct {
	events   []Event
	messages []string
	fields   map[string]string
}

func NewMockObserver() *MockObserver {
	return &MockObserver{
		events:   make([]Event, 0),
		messages: make([]string, 0),
		fields:   make(map[string]string),
	}
}

func (m *MockObserver) Printf(format string, v ...any) {
	m.messages = append(m.messages, fmt.Sprintf(format, v...))
}

func (m *MockObserver) Event(event Event) {
	m.events = append(m.events, event)
}

func (m *MockObserver) WithFields(fields map[string]string) Observer {
	newObserver := NewMockObserver()
	for k, v := range m.fields {
		newObserver.fields[k] = v
	}
	for k, v := range fields {
		newObserver.fields[k] = v
	}
	return newObserver
}

// eventsOf returns the recorded events of type typ.
func (m *MockObserver) eventsOf(typ EventType) []Event {
	var out []Event
	for _, e := range m.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockObserver) hasMessage(substr string) bool {
	for _, msg := range m.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// newTestContext wires a Context against the platform fixture.
func newTestContext(t *testing.T, cfg *config.Config, target config.Target, platform *testutil.PlatformFixture) (*Context, *MockObserver) {
	t.Helper()
	observer := NewMockObserver()
	client := platform.Client()

	var workspace azureml.WorkspaceClient = client
	if target == config.TargetLocal {
		workspace = nil
	}

	ctx := NewContext(testutil.TestContext(t), cfg, target, workspace, client,
		WithObserver(observer),
		WithMetrics(NewMetrics()),
		WithJobNamer(func() string { return "quiet_lime_abc123" }),
	)
	return ctx, observer
}
