// Package seed imports projects from YAML files into the content store.
//
// A file holds one project, a list of projects, or a mapping with a
// "projects" key holding the list. Projects are matched to stored ones by
// slug (derived from the title when not set), so seeding the same files
// again updates rather than duplicates.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/folio/pkg/project"
)

// ErrNoFiles is returned when no pattern matched a file.
var ErrNoFiles = errors.New("no seed files matched")

// Entry is one project read from a seed file.
type Entry struct {
	File    string
	Project *project.Project
}

// Service is the subset of the project service seeding needs.
type Service interface {
	List(ctx context.Context) ([]*project.Project, error)
	Create(ctx context.Context, in *project.Project) (*project.Project, error)
	Update(ctx context.Context, id string, in *project.Project) (*project.Project, error)
}

// Result counts what a seed run did.
type Result struct {
	Created   int
	Updated   int
	Unchanged int

	// Errors maps "file: slug" to the error that stopped that project.
	Errors map[string]error
}

// Summary returns a one-line description of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d created, %d updated, %d unchanged, %d failed",
		r.Created, r.Updated, r.Unchanged, len(r.Errors))
}

// Files expands glob patterns (with ** support) into a sorted, de-duplicated
// file list.
func Files(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	slices.Sort(files)
	return files, nil
}

// Load reads every file matched by patterns.
func Load(patterns []string) ([]Entry, error) {
	files, err := Files(patterns)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		projects, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		for _, p := range projects {
			entries = append(entries, Entry{File: f, Project: p})
		}
	}
	return entries, nil
}

// Parse decodes the projects in one YAML document.
func Parse(data []byte) ([]*project.Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var out []*project.Project
		if err := root.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil

	case yaml.MappingNode:
		var wrapped struct {
			Projects []*project.Project `yaml:"projects"`
		}
		if isProjectList(root) {
			if err := root.Decode(&wrapped); err != nil {
				return nil, err
			}
			return wrapped.Projects, nil
		}
		var p project.Project
		if err := root.Decode(&p); err != nil {
			return nil, err
		}
		return []*project.Project{&p}, nil

	default:
		return nil, fmt.Errorf("expected a project or a list of projects, got %s", kindName(root.Kind))
	}
}

// Apply creates or updates every entry. Individual failures are collected
// in the result and do not stop the run.
func Apply(ctx context.Context, svc Service, entries []Entry) (*Result, error) {
	stored, err := svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	bySlug := make(map[string]*project.Project, len(stored))
	for _, p := range stored {
		bySlug[p.Slug] = p
	}

	res := &Result{Errors: make(map[string]error)}
	for _, e := range entries {
		in := e.Project.Clone()
		in.Normalize()

		existing, ok := bySlug[in.Slug]
		if !ok {
			created, err := svc.Create(ctx, in)
			if err != nil {
				res.Errors[e.File+": "+in.Slug] = err
				continue
			}
			bySlug[created.Slug] = created
			res.Created++
			continue
		}

		if sameContent(existing, in) {
			res.Unchanged++
			continue
		}

		updated, err := svc.Update(ctx, existing.ID, in)
		if err != nil {
			res.Errors[e.File+": "+in.Slug] = err
			continue
		}
		bySlug[updated.Slug] = updated
		res.Updated++
	}
	return res, nil
}

// sameContent compares the editable fields of two projects.
func sameContent(a, b *project.Project) bool {
	return bytes.Equal(editable(a), editable(b))
}

func editable(p *project.Project) []byte {
	c := p.Clone()
	c.ID = ""
	c.Position = 0
	c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
	if c.PublishedAt != nil {
		t := c.PublishedAt.UTC()
		c.PublishedAt = &t
	}
	b, _ := json.Marshal(c)
	return b
}

func isProjectList(n *yaml.Node) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "projects" && n.Content[i+1].Kind == yaml.SequenceNode {
			return true
		}
	}
	return false
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unknown node"
	}
}
