// Package prompt assembles the chat prompt from named sections.
//
// The system prompt is made of the persona, the guidelines and the
// retrieved context, in that order. Prior conversation turns follow as
// messages, and the visitor's question is always the last message.
package prompt

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/folio/pkg/llm"
)

// NoContext replaces the context section when retrieval found nothing.
const NoContext = "No relevant project context is available."

const (
	DefaultPersona = "You are the assistant on a software developer's portfolio website. " +
		"You answer visitors' questions about the developer's projects, skills and experience."

	DefaultGuidelines = "- Base your answers on the project context below.\n" +
		"- If the context does not contain the answer, say so plainly instead of guessing.\n" +
		"- Keep answers short and friendly. Use markdown lists for multiple items.\n" +
		"- Mention project names so visitors can look them up."
)

// Section names, in the order they appear in the assembled prompt.
const (
	SectionPersona    = "persona"
	SectionGuidelines = "guidelines"
	SectionContext    = "context"
	SectionHistory    = "history"
	SectionQuestion   = "question"
)

// Turn is one prior message in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the assembled input for a chat completion.
type Prompt struct {
	System   string
	Messages []llm.Message
}

// Builder collects prompt sections. Use NewBuilder to start from the default
// persona and guidelines.
type Builder struct {
	persona    string
	guidelines string
	context    []string
	history    []Turn
	question   string

	// maxHistory caps the number of prior turns kept, newest first. Zero
	// keeps everything.
	maxHistory int
}

// OwnerPersona is DefaultPersona addressed to a named portfolio owner.
func OwnerPersona(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return DefaultPersona
	}
	return fmt.Sprintf("You are the assistant on %s's portfolio website. "+
		"You answer visitors' questions about %s's projects, skills and experience.", owner, owner)
}

// NewBuilder returns a Builder with the default persona and guidelines.
func NewBuilder() *Builder {
	return &Builder{persona: DefaultPersona, guidelines: DefaultGuidelines}
}

// Persona sets the persona section. An empty persona is omitted.
func (b *Builder) Persona(s string) *Builder {
	b.persona = strings.TrimSpace(s)
	return b
}

// Guidelines sets the guidelines section. Empty guidelines are omitted.
func (b *Builder) Guidelines(s string) *Builder {
	b.guidelines = strings.TrimSpace(s)
	return b
}

// Context appends retrieved documents, in rank order. Blank documents are
// skipped.
func (b *Builder) Context(docs ...string) *Builder {
	for _, d := range docs {
		if d = strings.TrimSpace(d); d != "" {
			b.context = append(b.context, d)
		}
	}
	return b
}

// History sets the prior conversation turns, oldest first.
func (b *Builder) History(turns []Turn) *Builder {
	b.history = turns
	return b
}

// MaxHistory keeps only the last n turns. Zero keeps all of them.
func (b *Builder) MaxHistory(n int) *Builder {
	b.maxHistory = n
	return b
}

// Question sets the visitor's question.
func (b *Builder) Question(q string) *Builder {
	b.question = strings.TrimSpace(q)
	return b
}

// ContextText returns the context section body: the documents joined by
// blank lines, or NoContext.
func (b *Builder) ContextText() string {
	if len(b.context) == 0 {
		return NoContext
	}
	return strings.Join(b.context, "\n\n")
}

// Build assembles the prompt. Turns with an unknown role or blank content
// are dropped.
func (b *Builder) Build() Prompt {
	var sections []string
	if b.persona != "" {
		sections = append(sections, b.persona)
	}
	if b.guidelines != "" {
		sections = append(sections, "Guidelines:\n"+b.guidelines)
	}
	sections = append(sections, "Context:\n"+b.ContextText())

	history := make([]llm.Message, 0, len(b.history)+1)
	for _, t := range b.history {
		content := strings.TrimSpace(t.Content)
		if !llm.ValidRole(t.Role) || content == "" {
			continue
		}
		history = append(history, llm.NewTextMessage(t.Role, content))
	}
	if b.maxHistory > 0 && len(history) > b.maxHistory {
		history = history[len(history)-b.maxHistory:]
	}

	return Prompt{
		System:   strings.Join(sections, "\n\n"),
		Messages: append(history, llm.NewTextMessage(llm.RoleUser, b.question)),
	}
}
