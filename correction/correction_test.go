package correction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/llm"
)

type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type rateWindowFunc func(key string, floor, backoff time.Duration) time.Duration

func (f rateWindowFunc) Observe(key string, floor, backoff time.Duration) time.Duration {
	return f(key, floor, backoff)
}

func noFloorClock() core.RateWindow {
	return rateWindowFunc(func(string, time.Duration, time.Duration) time.Duration { return 0 })
}

func newServices(t *testing.T, response string, err error) *Services {
	t.Helper()
	p := &stubProvider{response: response, err: err}
	registry := llm.NewRegistry(llm.ModelEntry{
		Name:         "small-model",
		Provider:     p,
		Capabilities: llm.Capabilities{SupportsSystemInstruction: true},
	})
	d := llm.NewDispatcher(registry, noFloorClock(), 1, 0)
	return &Services{Dispatcher: d, Models: []string{"small-model"}}
}

func TestGuessParentReturnsAnswer(t *testing.T) {
	s := newServices(t, "region-ab12", nil)
	got, ok := s.GuessParent(context.Background(), "Stone Altar", "feature", []string{"region-ab12: Whispering Woods"}, "scene text")
	require.True(t, ok)
	assert.Equal(t, "region-ab12", got)
}

func TestGuessParentToleratesNoneReply(t *testing.T) {
	s := newServices(t, "NONE", nil)
	_, ok := s.GuessParent(context.Background(), "Stone Altar", "feature", nil, "scene text")
	assert.False(t, ok)
}

func TestGuessParentToleratesDispatchFailure(t *testing.T) {
	s := newServices(t, "", errors.New("boom"))
	_, ok := s.GuessParent(context.Background(), "Stone Altar", "feature", nil, "scene text")
	assert.False(t, ok)
}

func TestResolveIdentifierReturnsAnswer(t *testing.T) {
	s := newServices(t, "north-gate-9f3c", nil)
	got, ok := s.ResolveIdentifier(context.Background(), "the northern gate", []string{"north-gate-9f3c: North Gate"})
	require.True(t, ok)
	assert.Equal(t, "north-gate-9f3c", got)
}

func TestRenameDisambiguatorReturnsAlternative(t *testing.T) {
	s := newServices(t, "Rusty Dagger (ceremonial)", nil)
	got, ok := s.RenameDisambiguator(context.Background(), "Rusty Dagger", []string{"Rusty Dagger"})
	require.True(t, ok)
	assert.Equal(t, "Rusty Dagger (ceremonial)", got)
}

func TestChooseHierarchyResolutionParsesIndex(t *testing.T) {
	s := newServices(t, "2", nil)
	idx, ok := s.ChooseHierarchyResolution(context.Background(), []string{"downgrade child", "reparent to grandparent", "upgrade parent"})
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestChooseHierarchyResolutionRejectsOutOfRange(t *testing.T) {
	s := newServices(t, "99", nil)
	_, ok := s.ChooseHierarchyResolution(context.Background(), []string{"a", "b"})
	assert.False(t, ok)
}

func TestChooseHierarchyResolutionEmptyOptionsShortCircuits(t *testing.T) {
	s := newServices(t, "1", nil)
	_, ok := s.ChooseHierarchyResolution(context.Background(), nil)
	assert.False(t, ok)
}

func TestRepairJSONExtractsFromFencedReply(t *testing.T) {
	s := newServices(t, "```json\n{\"nodesToAdd\": []}\n```", nil)
	got, ok := s.RepairJSON(context.Background(), "garbled text", `{"type": "object"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"nodesToAdd": []}`, got)
}

func TestRepairJSONFailsWhenStillUnparseable(t *testing.T) {
	s := newServices(t, "still not json", nil)
	_, ok := s.RepairJSON(context.Background(), "garbled text", `{"type": "object"}`)
	assert.False(t, ok)
}
