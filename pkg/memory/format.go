package memory

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/papercomputeco/folio/pkg/project"
)

const dateLayout = "2006-01-02"

var (
	// stripPolicy removes every tag from long-form HTML content.
	stripPolicy = bluemonday.StrictPolicy()

	blockTags  = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6]|/tr)\s*/?>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Format renders p as the canonical memory text. Present fields are emitted
// in a fixed order, one labelled block each, separated by blank lines.
// Empty fields are skipped. Identical input always yields identical output.
func Format(p *project.Project) string {
	var blocks []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			blocks = append(blocks, label+": "+value)
		}
	}
	addList := func(label string, items []string) {
		if list := bulletList(items); list != "" {
			blocks = append(blocks, label+":\n"+list)
		}
	}

	add("Project", p.Title)
	add("Slug", p.Slug)
	add("Summary", p.Summary)
	add("Role", p.Role)
	add("Problem", p.Problem)
	add("Solution", p.Solution)
	add("Key takeaway", p.KeyTakeaway)
	add("Architecture", p.Architecture)
	addList("Features", p.Features)
	add("Tech stack", joinNonEmpty(p.TechStack))
	add("Tags", joinNonEmpty(p.Tags))
	addList("Metrics", metricLines(p.Metrics))
	add("Status", p.Status)
	add("Visibility", string(p.Visibility))
	add("Schema type", p.SchemaType)
	add("Created", formatDate(p.CreatedAt))
	if p.PublishedAt != nil {
		add("Published", formatDate(*p.PublishedAt))
	}
	addList("Links", linkLines(p.Links))
	if content := PlainText(p.Content); content != "" {
		blocks = append(blocks, "Details:\n"+content)
	}

	return strings.Join(blocks, "\n\n")
}

// PlainText strips HTML markup from s, keeping paragraph breaks. Markdown
// passes through unchanged.
func PlainText(s string) string {
	s = blockTags.ReplaceAllString(s, "$0\n")
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ", ")
}

func metricLines(m *project.Metrics) []string {
	if m.IsZero() {
		return nil
	}
	var lines []string
	if m.Duration != "" {
		lines = append(lines, "Duration: "+m.Duration)
	}
	if m.TeamSize > 0 {
		lines = append(lines, "Team size: "+strconv.Itoa(m.TeamSize))
	}
	if m.Impact != "" {
		lines = append(lines, "Impact: "+m.Impact)
	}
	return lines
}

func linkLines(links []project.Link) []string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		line := fmt.Sprintf("%s: %s", l.Type, l.URL)
		if l.Label != "" {
			line += " (" + l.Label + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
