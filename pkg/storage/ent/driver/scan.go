package entdriver

import (
	stdsql "database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/folio/pkg/project"
)

// projectValues returns p's column values in projectsColumns order.
func projectValues(p *project.Project) ([]any, error) {
	features, err := jsonValue(p.Features)
	if err != nil {
		return nil, fmt.Errorf("marshaling features: %w", err)
	}
	techStack, err := jsonValue(p.TechStack)
	if err != nil {
		return nil, fmt.Errorf("marshaling tech stack: %w", err)
	}
	tags, err := jsonValue(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshaling tags: %w", err)
	}
	images, err := jsonValue(p.Images)
	if err != nil {
		return nil, fmt.Errorf("marshaling images: %w", err)
	}
	links, err := jsonValue(p.Links)
	if err != nil {
		return nil, fmt.Errorf("marshaling links: %w", err)
	}

	var metrics any
	if !p.Metrics.IsZero() {
		if metrics, err = jsonValue(p.Metrics); err != nil {
			return nil, fmt.Errorf("marshaling metrics: %w", err)
		}
	}

	var published any
	if p.PublishedAt != nil {
		published = p.PublishedAt.UTC()
	}

	return []any{
		p.ID,
		p.Title,
		p.Slug,
		p.Summary,
		nullString(p.Content),
		nullString(p.Role),
		nullString(p.Problem),
		nullString(p.Solution),
		nullString(p.KeyTakeaway),
		nullString(p.Architecture),
		features,
		techStack,
		tags,
		images,
		links,
		metrics,
		string(p.Visibility),
		p.Position,
		nullString(p.Status),
		nullString(p.SchemaType),
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
		published,
	}, nil
}

func scanProject(rows *entsql.Rows) (*project.Project, error) {
	var (
		p                                         project.Project
		content, role, problem, solution          stdsql.NullString
		takeaway, architecture, status, schemaTyp stdsql.NullString
		features, techStack, tags, images, links  stdsql.NullString
		metrics                                   stdsql.NullString
		visibility                                string
		published                                 stdsql.NullTime
	)

	err := rows.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Summary,
		&content,
		&role,
		&problem,
		&solution,
		&takeaway,
		&architecture,
		&features,
		&techStack,
		&tags,
		&images,
		&links,
		&metrics,
		&visibility,
		&p.Position,
		&status,
		&schemaTyp,
		&p.CreatedAt,
		&p.UpdatedAt,
		&published,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.Content = content.String
	p.Role = role.String
	p.Problem = problem.String
	p.Solution = solution.String
	p.KeyTakeaway = takeaway.String
	p.Architecture = architecture.String
	p.Status = status.String
	p.SchemaType = schemaTyp.String
	p.Visibility = project.Visibility(visibility)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if published.Valid {
		t := published.Time.UTC()
		p.PublishedAt = &t
	}

	for _, col := range []struct {
		name string
		raw  stdsql.NullString
		dst  any
	}{
		{"features", features, &p.Features},
		{"tech_stack", techStack, &p.TechStack},
		{"tags", tags, &p.Tags},
		{"images", images, &p.Images},
		{"links", links, &p.Links},
		{"metrics", metrics, &p.Metrics},
	} {
		if !col.raw.Valid || col.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw.String), col.dst); err != nil {
			return nil, fmt.Errorf("decoding %s for project %s: %w", col.name, p.ID, err)
		}
	}

	return &p, nil
}

// jsonValue marshals v, mapping empty slices and nil to SQL NULL.
func jsonValue[T any](v T) (any, error) {
	switch x := any(v).(type) {
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	case []project.Image:
		if len(x) == 0 {
			return nil, nil
		}
	case []project.Link:
		if len(x) == 0 {
			return nil, nil
		}
	case *project.Metrics:
		if x == nil {
			return nil, nil
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
