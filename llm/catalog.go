package llm

// KnownCapabilities is the supplemented provider capability table (see
// SPEC_FULL.md's "Provider capability table" note): §4.1 requires the
// dispatcher to consult per-model capability flags without naming a source
// for them, so this package ships sane defaults for the models its bundled
// providers talk to. A deployment may override or extend this map when
// building its Registry.
var KnownCapabilities = map[string]Capabilities{
	"claude-3-5-sonnet-20241022": {SupportsSystemInstruction: true, SupportsThinking: false, SupportsJSONSchema: false},
	"claude-3-5-haiku-20241022":  {SupportsSystemInstruction: true, SupportsThinking: false, SupportsJSONSchema: false},
	"claude-3-7-sonnet-20250219": {SupportsSystemInstruction: true, SupportsThinking: true, SupportsJSONSchema: false},

	"gpt-4o":      {SupportsSystemInstruction: true, SupportsThinking: false, SupportsJSONSchema: true},
	"gpt-4o-mini": {SupportsSystemInstruction: true, SupportsThinking: false, SupportsJSONSchema: true},
	"o1":          {SupportsSystemInstruction: false, SupportsThinking: true, SupportsJSONSchema: true},

	"gemini-1.5-pro":   {SupportsSystemInstruction: true, SupportsThinking: false, SupportsJSONSchema: true},
	"gemini-1.5-flash": {SupportsSystemInstruction: true, SupportsThinking: false, SupportsJSONSchema: true},
}
