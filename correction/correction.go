// Package correction implements the Correction Services (C5): thin
// LLM-backed repair operations invoked by the Update Applier (C7) and the
// Connector-Chain Refiner (C6) when a pure graph operation cannot resolve
// something on its own — an ambiguous rename, an unresolvable identifier, a
// missing parent, or a multi-candidate hierarchy conflict. Every function
// here is a single dispatcher round-trip against a smaller/cheaper model
// list with fallback to the primary, and every function must tolerate an
// empty or unparseable reply by returning nil/false rather than erroring,
// per spec §6: "all must tolerate an empty or unparseable reply by
// returning null and letting the applier fall back to its default."
package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hollowmap/cartographer/envelope"
	"github.com/hollowmap/cartographer/llm"
)

// Services bundles the dispatcher and the model list correction calls use.
// Models is ordered smaller/cheaper-first with fallback to the primary,
// mirroring spec §6's "smaller/cheaper model list with fallback to the
// primary."
type Services struct {
	Dispatcher *llm.Dispatcher
	Models     []string
	Sink       llm.Sink
}

func (s *Services) dispatch(ctx context.Context, label, prompt, system string) (string, bool) {
	resp, err := s.Dispatcher.Send(ctx, s.Models, llm.Request{
		Prompt:            prompt,
		SystemInstruction: system,
		Label:             label,
		Temperature:       0,
	}, s.Sink)
	if err != nil || resp == nil {
		return "", false
	}
	return resp.Text, true
}

// GuessParent asks the correction model to choose the best parent node id
// for an unresolved add, from a list of candidate (id, name, type) summaries
// (spec §4.5 P4's "one-shot guess parent LLM call"). Returns ("", false) on
// any failure or an empty/unparseable reply — the caller falls back to the
// root sentinel.
func (s *Services) GuessParent(ctx context.Context, childName, childType string, candidates []string, narrativeContext string) (string, bool) {
	prompt := fmt.Sprintf(
		"A new map node %q (type %s) needs a parent. Candidate parents:\n%s\n\nNarrative context:\n%s\n\nReply with only the chosen parent's id, or the single word NONE.",
		childName, childType, strings.Join(candidates, "\n"), narrativeContext,
	)
	text, ok := s.dispatch(ctx, "correction.guessParent", prompt, "")
	if !ok {
		return "", false
	}
	answer := strings.TrimSpace(text)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return "", false
	}
	return answer, true
}

// ResolveIdentifier asks the correction model to pick which live node an
// unresolved identifier string most likely refers to (spec §4.5 P5's
// "falling back to the C5 identifier-correction service").
func (s *Services) ResolveIdentifier(ctx context.Context, identifier string, candidates []string) (string, bool) {
	prompt := fmt.Sprintf(
		"The narrative referred to %q, which doesn't exactly match a map node. Candidates:\n%s\n\nReply with only the matching node's id, or NONE if none match.",
		identifier, strings.Join(candidates, "\n"),
	)
	text, ok := s.dispatch(ctx, "correction.resolveIdentifier", prompt, "")
	if !ok {
		return "", false
	}
	answer := strings.TrimSpace(text)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return "", false
	}
	return answer, true
}

// RenameDisambiguator asks the correction model to propose a unique
// placeName when an add would collide with a live node's name (spec §3's
// "a disambiguation pass assigns unique names").
func (s *Services) RenameDisambiguator(ctx context.Context, proposedName string, conflictingNames []string) (string, bool) {
	prompt := fmt.Sprintf(
		"The proposed location name %q collides with an existing name. Existing names: %s\n\nReply with only a short, distinct alternative name.",
		proposedName, strings.Join(conflictingNames, ", "),
	)
	text, ok := s.dispatch(ctx, "correction.renameDisambiguator", prompt, "")
	if !ok {
		return "", false
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		return "", false
	}
	return answer, true
}

// ChooseHierarchyResolution asks the correction model to pick among
// human-readable candidate "nets" for a hierarchy conflict (spec §4.5 P7:
// "consult a correction LLM to pick among the human-readable option
// descriptions; default to the first if the LLM is silent"). options is
// 1-indexed in the prompt per spec §6 ("numbered strings; the reply must be
// a single integer index"). Returns the 0-based index into options, or
// (0, false) if the reply is empty/unparseable — the caller then defaults
// to options[0] itself, matching the spec's explicit default rule.
func (s *Services) ChooseHierarchyResolution(ctx context.Context, options []string) (int, bool) {
	if len(options) == 0 {
		return 0, false
	}
	var b strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	prompt := fmt.Sprintf(
		"A hierarchy conflict has multiple legal resolutions. Choose one:\n%s\nReply with only the integer index of your choice.",
		b.String(),
	)
	text, ok := s.dispatch(ctx, "correction.chooseHierarchyResolution", prompt, "")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(options) {
		return 0, false
	}
	return n - 1, true
}

// RepairJSON asks the correction model to re-emit a prior reply as strict
// JSON (spec §4.5's "payload re-JSON-er"), used when envelope.Extract or
// schema validation fails on the first attempt. Returns ("", false) if the
// repaired text still doesn't parse as JSON.
func (s *Services) RepairJSON(ctx context.Context, brokenReply, schemaHint string) (string, bool) {
	prompt := fmt.Sprintf(
		"The following reply was supposed to be a single JSON object matching this shape:\n%s\n\nIt failed to parse:\n%s\n\nReply with only the corrected JSON object, no commentary.",
		schemaHint, brokenReply,
	)
	text, ok := s.dispatch(ctx, "correction.repairJSON", prompt, "")
	if !ok {
		return "", false
	}
	candidate, extracted := envelope.Extract(text)
	if !extracted {
		return "", false
	}
	var probe interface{}
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return "", false
	}
	return candidate, true
}
