package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hollowmap/cartographer/core"
)

type stubProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (s *stubProvider) Generate(ctx context.Context, model string, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("stub exhausted")
}

type recordingSink struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *recordingSink) Record(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func noFloorClock() core.RateWindow {
	return rateWindowFunc(func(string, time.Duration, time.Duration) time.Duration { return 0 })
}

type rateWindowFunc func(key string, floor, backoff time.Duration) time.Duration

func (f rateWindowFunc) Observe(key string, floor, backoff time.Duration) time.Duration {
	return f(key, floor, backoff)
}

func TestDispatcherSucceedsOnFirstModel(t *testing.T) {
	p := &stubProvider{responses: []string{`{"ok":true}`}}
	registry := NewRegistry(ModelEntry{Name: "model-a", Provider: p, Capabilities: Capabilities{SupportsSystemInstruction: true}})
	d := NewDispatcher(registry, noFloorClock(), 3, 0)

	resp, err := d.Send(context.Background(), []string{"model-a"}, Request{Prompt: "hello"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "model-a", resp.Model)
	assert.Equal(t, `{"ok":true}`, resp.Text)
}

func TestDispatcherFallsThroughToNextModel(t *testing.T) {
	failing := &stubProvider{errs: []error{core.ErrServerOrClient, core.ErrServerOrClient, core.ErrServerOrClient}}
	succeeding := &stubProvider{responses: []string{"fallback ok"}}

	registry := NewRegistry(
		ModelEntry{Name: "primary", Provider: failing, Capabilities: Capabilities{SupportsSystemInstruction: true}},
		ModelEntry{Name: "secondary", Provider: succeeding, Capabilities: Capabilities{SupportsSystemInstruction: true}},
	)
	d := NewDispatcher(registry, noFloorClock(), 3, 0)

	resp, err := d.Send(context.Background(), []string{"primary", "secondary"}, Request{Prompt: "hi"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "secondary", resp.Model)
}

func TestDispatcherInvalidCredentialShortCircuits(t *testing.T) {
	p := &stubProvider{errs: []error{core.ErrInvalidCredential}}
	fallback := &stubProvider{responses: []string{"should not be reached"}}

	registry := NewRegistry(
		ModelEntry{Name: "bad-creds", Provider: p, Capabilities: Capabilities{SupportsSystemInstruction: true}},
		ModelEntry{Name: "fine", Provider: fallback, Capabilities: Capabilities{SupportsSystemInstruction: true}},
	)
	d := NewDispatcher(registry, noFloorClock(), 3, 0)

	_, err := d.Send(context.Background(), []string{"bad-creds", "fine"}, Request{Prompt: "hi"}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
	assert.Equal(t, 0, fallback.calls)
}

func TestDispatcherExhaustsAllModels(t *testing.T) {
	p1 := &stubProvider{errs: []error{core.ErrServerOrClient, core.ErrServerOrClient, core.ErrServerOrClient}}
	p2 := &stubProvider{errs: []error{core.ErrServerOrClient, core.ErrServerOrClient, core.ErrServerOrClient}}

	registry := NewRegistry(
		ModelEntry{Name: "a", Provider: p1, Capabilities: Capabilities{SupportsSystemInstruction: true}},
		ModelEntry{Name: "b", Provider: p2, Capabilities: Capabilities{SupportsSystemInstruction: true}},
	)
	d := NewDispatcher(registry, noFloorClock(), 3, 0)

	_, err := d.Send(context.Background(), []string{"a", "b"}, Request{Prompt: "hi"}, nil)
	assert.ErrorIs(t, err, core.ErrAllModelsExhausted)
	assert.Equal(t, 3, p1.calls)
	assert.Equal(t, 3, p2.calls)
}

func TestDispatcherRecordsAttemptsOnSink(t *testing.T) {
	p := &stubProvider{errs: []error{core.ErrServerOrClient}, responses: []string{"", "second try ok"}}
	registry := NewRegistry(ModelEntry{Name: "a", Provider: p, Capabilities: Capabilities{SupportsSystemInstruction: true}})
	d := NewDispatcher(registry, noFloorClock(), 3, 0)

	sink := &recordingSink{}
	_, err := d.Send(context.Background(), []string{"a"}, Request{Prompt: "hi"}, sink)
	assert.NoError(t, err)
	assert.Len(t, sink.attempts, 2)
	assert.Error(t, sink.attempts[0].Err)
	assert.Equal(t, "second try ok", sink.attempts[1].RawResponse)
}

func TestDispatcherUnknownModelSkipped(t *testing.T) {
	p := &stubProvider{responses: []string{"ok"}}
	registry := NewRegistry(ModelEntry{Name: "known", Provider: p, Capabilities: Capabilities{SupportsSystemInstruction: true}})
	d := NewDispatcher(registry, noFloorClock(), 3, 0)

	resp, err := d.Send(context.Background(), []string{"ghost", "known"}, Request{Prompt: "hi"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "known", resp.Model)
}

func TestBuildPromptFoldsSchemaWhenUnsupported(t *testing.T) {
	caps := Capabilities{SupportsSystemInstruction: true, SupportsJSONSchema: false}
	req := Request{Prompt: "describe the room", SystemInstruction: "be terse", JSONSchema: map[string]string{"type": "object"}}

	prompt, system := buildPrompt(caps, req)
	assert.Equal(t, "describe the room", prompt)
	assert.Contains(t, system, "be terse")
	assert.Contains(t, system, "schema")
}

func TestBuildPromptFoldsSystemWhenUnsupported(t *testing.T) {
	caps := Capabilities{SupportsSystemInstruction: false}
	req := Request{Prompt: "describe the room", SystemInstruction: "be terse"}

	prompt, system := buildPrompt(caps, req)
	assert.Empty(t, system)
	assert.Contains(t, prompt, "be terse")
	assert.Contains(t, prompt, "describe the room")
}
