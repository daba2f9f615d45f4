package ai

import (
	"strings"

	"github.com/strrl/ticket-extract/internal/schema"
)

// Sentinel ends every prompt and marks where the answer begins. The
// extractor cuts completions at its last occurrence, so both sides must use
// this exact text.
const Sentinel = "[ASSISTANT]\n"

const systemPrompt = "You are a meticulous data engineer. Read the user's support message and extract the relevant fields to " +
	"populate the given Schema. Output ONLY a JSON object. Do not add extra text."

const instructionSuffix = "Extract fields from the message to populate the Schema. If unsure, make the best guess. Output strictly valid JSON."

type PromptBuilder struct {
	instruction string
}

func NewPromptBuilder(s *schema.Schema) *PromptBuilder {
	return &PromptBuilder{
		instruction: "Schema: " + s.Description() + "\n\n" + instructionSuffix,
	}
}

// Build is pure: the same message and schema always yield the same prompt.
// Empty messages are accepted.
func (b *PromptBuilder) Build(message string) string {
	var sb strings.Builder
	sb.Grow(len(systemPrompt) + len(b.instruction) + len(message) + 64)

	sb.WriteString("[SYSTEM]\n")
	sb.WriteString(systemPrompt)
	sb.WriteString("\n[INSTRUCTION]\n")
	sb.WriteString(b.instruction)
	sb.WriteString("\n[USER]\n")
	sb.WriteString(message)
	sb.WriteString("\n[/USER]\n")
	sb.WriteString(Sentinel)

	return sb.String()
}

var defaultBuilder = NewPromptBuilder(schema.Default)

func BuildPrompt(message string) string {
	return defaultBuilder.Build(message)
}
