package project

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLen   = 200
	maxSlugLen    = 120
	maxSummaryLen = 2000
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidationError reports an invalid project field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Slugify derives a URL-safe slug from s. Accents are folded, runs of
// anything that is not a letter or digit collapse to a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range norm.NFKD.String(strings.ToLower(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// drop combining marks left over from NFKD
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			hyphen = false
		default:
			if b.Len() > 0 && !hyphen {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimSuffix(slug[:maxSlugLen], "-")
	}
	return slug
}

// Normalize trims whitespace, fills the slug from the title when empty, and
// defaults the visibility to public.
func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = strings.TrimSpace(p.Slug)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Status = strings.TrimSpace(p.Status)
	p.SchemaType = strings.TrimSpace(p.SchemaType)

	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}

	p.Features = compact(p.Features)
	p.TechStack = compact(p.TechStack)
	p.Tags = compact(p.Tags)

	if p.Metrics.IsZero() {
		p.Metrics = nil
	}
}

// Validate checks the fields a project must carry before it is stored.
func (p *Project) Validate() error {
	switch {
	case p.Title == "":
		return ValidationError{Field: "title", Reason: "is required"}
	case len(p.Title) > maxTitleLen:
		return ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	case p.Slug == "":
		return ValidationError{Field: "slug", Reason: "is required"}
	case len(p.Slug) > maxSlugLen || !slugPattern.MatchString(p.Slug):
		return ValidationError{Field: "slug", Reason: "must be lowercase letters, digits and single hyphens"}
	case p.Summary == "":
		return ValidationError{Field: "summary", Reason: "is required"}
	case len(p.Summary) > maxSummaryLen:
		return ValidationError{Field: "summary", Reason: fmt.Sprintf("must be at most %d characters", maxSummaryLen)}
	case !p.Visibility.Valid():
		return ValidationError{Field: "visibility", Reason: fmt.Sprintf("unknown visibility %q", p.Visibility)}
	}

	for i, l := range p.Links {
		if !l.Type.Valid() {
			return ValidationError{Field: fmt.Sprintf("links[%d].type", i), Reason: fmt.Sprintf("unknown link type %q", l.Type)}
		}
		if !validURL(l.URL) {
			return ValidationError{Field: fmt.Sprintf("links[%d].url", i), Reason: "must be an absolute http(s) URL"}
		}
	}

	for i, img := range p.Images {
		if img.URL == "" {
			return ValidationError{Field: fmt.Sprintf("images[%d].url", i), Reason: "is required"}
		}
		if strings.TrimSpace(img.Alt) == "" {
			return ValidationError{Field: fmt.Sprintf("images[%d].alt", i), Reason: "is required"}
		}
	}

	if p.Metrics != nil && p.Metrics.TeamSize < 0 {
		return ValidationError{Field: "metrics.teamSize", Reason: "must not be negative"}
	}

	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
