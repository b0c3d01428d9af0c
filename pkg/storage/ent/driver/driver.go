// Package entdriver implements storage.Driver on top of ent's SQL dialect
// layer. It is database-agnostic and embedded by the sqlite and postgres
// drivers, which open the connection and supply the dialect.
package entdriver

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
)

// EntDriver provides storage operations using an ent SQL driver.
type EntDriver struct {
	Driver *entsql.Driver

	// IsUniqueViolation reports whether err is a unique constraint failure
	// from the underlying database. Used to map slug races to
	// storage.ErrSlugConflict.
	IsUniqueViolation func(err error) bool
}

// New wraps drv and runs the schema migration.
func New(ctx context.Context, drv *entsql.Driver, isUnique func(error) bool) (*EntDriver, error) {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EntDriver{Driver: drv, IsUniqueViolation: isUnique}, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

// CreateProject stores a new project.
func (ed *EntDriver) CreateProject(ctx context.Context, p *project.Project) error {
	if p == nil {
		return errors.New("cannot store nil project")
	}

	return ed.withTx(ctx, func(tx dialect.Tx) error {
		taken, err := ed.slugTaken(ctx, tx, p.Slug, "")
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrSlugConflict
		}

		values, err := projectValues(p)
		if err != nil {
			return err
		}

		query, args := ed.builder().
			Insert(projectsTable).
			Columns(projectColumnNames()...).
			Values(values...).
			Query()

		var res stdsql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return ed.mapWriteErr("could not insert project", err)
		}
		return nil
	})
}

// GetProject retrieves a project by id.
func (ed *EntDriver) GetProject(ctx context.Context, id string) (*project.Project, error) {
	return ed.getProjectWhere(ctx, entsql.EQ("id", id), id)
}

// GetProjectBySlug retrieves a project by slug.
func (ed *EntDriver) GetProjectBySlug(ctx context.Context, slug string) (*project.Project, error) {
	return ed.getProjectWhere(ctx, entsql.EQ("slug", slug), slug)
}

func (ed *EntDriver) getProjectWhere(ctx context.Context, pred *entsql.Predicate, key string) (*project.Project, error) {
	b := ed.builder()
	query, args := b.Select(projectColumnNames()...).
		From(b.Table(projectsTable)).
		Where(pred).
		Limit(1).
		Query()

	projects, err := ed.queryProjects(ctx, ed.Driver, query, args)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, storage.NotFoundError{Key: key}
	}
	return projects[0], nil
}

// UpdateProject overwrites a stored project.
func (ed *EntDriver) UpdateProject(ctx context.Context, p *project.Project) error {
	if p == nil {
		return errors.New("cannot store nil project")
	}

	return ed.withTx(ctx, func(tx dialect.Tx) error {
		taken, err := ed.slugTaken(ctx, tx, p.Slug, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrSlugConflict
		}

		values, err := projectValues(p)
		if err != nil {
			return err
		}

		update := ed.builder().Update(projectsTable)
		for i, name := range projectColumnNames() {
			if name == "id" || name == "created_at" {
				continue
			}
			update.Set(name, values[i])
		}
		query, args := update.Where(entsql.EQ("id", p.ID)).Query()

		var res stdsql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return ed.mapWriteErr("could not update project", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading affected rows: %w", err)
		}
		if n == 0 {
			return storage.NotFoundError{Key: p.ID}
		}
		return nil
	})
}

// DeleteProject removes a project and its mappings.
func (ed *EntDriver) DeleteProject(ctx context.Context, id string) error {
	return ed.withTx(ctx, func(tx dialect.Tx) error {
		b := ed.builder()

		query, args := b.Delete(mappingsTable).Where(entsql.EQ("project_id", id)).Query()
		var res stdsql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return fmt.Errorf("deleting mappings: %w", err)
		}

		query, args = b.Delete(projectsTable).Where(entsql.EQ("id", id)).Query()
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading affected rows: %w", err)
		}
		if n == 0 {
			return storage.NotFoundError{Key: id}
		}
		return nil
	})
}

// ListProjects returns all projects in display order.
func (ed *EntDriver) ListProjects(ctx context.Context) ([]*project.Project, error) {
	b := ed.builder()
	query, args := b.Select(projectColumnNames()...).
		From(b.Table(projectsTable)).
		OrderBy("position", "created_at", "id").
		Query()

	projects, err := ed.queryProjects(ctx, ed.Driver, query, args)
	if err != nil {
		return nil, err
	}
	// Drivers disagree on sub-second time ordering, so settle ties in Go.
	project.SortByPosition(projects)
	return projects, nil
}

// ReorderProjects assigns position = index for each id in one transaction.
func (ed *EntDriver) ReorderProjects(ctx context.Context, ids []string) error {
	return ed.withTx(ctx, func(tx dialect.Tx) error {
		now := time.Now().UTC()
		for i, id := range ids {
			query, args := ed.builder().Update(projectsTable).
				Set("position", i).
				Set("updated_at", now).
				Where(entsql.EQ("id", id)).
				Query()

			var res stdsql.Result
			if err := tx.Exec(ctx, query, args, &res); err != nil {
				return fmt.Errorf("reordering project %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reading affected rows: %w", err)
			}
			if n == 0 {
				return storage.NotFoundError{Key: id}
			}
		}
		return nil
	})
}

// NextPosition returns one past the highest stored position.
func (ed *EntDriver) NextPosition(ctx context.Context) (int, error) {
	b := ed.builder()
	query, args := b.Select(entsql.Max("position")).From(b.Table(projectsTable)).Query()

	rows := &entsql.Rows{}
	if err := ed.Driver.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("querying max position: %w", err)
	}
	defer rows.Close()

	var maxPos stdsql.NullInt64
	if rows.Next() {
		if err := rows.Scan(&maxPos); err != nil {
			return 0, fmt.Errorf("scanning max position: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return int(maxPos.Int64) + 1, nil
}

// GetMapping retrieves a mapping.
func (ed *EntDriver) GetMapping(ctx context.Context, projectID, service string) (*project.Mapping, error) {
	b := ed.builder()
	query, args := b.Select("project_id", "service", "external_id", "synced_at", "last_error").
		From(b.Table(mappingsTable)).
		Where(entsql.And(entsql.EQ("project_id", projectID), entsql.EQ("service", service))).
		Query()

	rows := &entsql.Rows{}
	if err := ed.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying mapping: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, storage.NotFoundError{Kind: "mapping", Key: projectID + "/" + service}
	}

	m := &project.Mapping{}
	var lastErr stdsql.NullString
	if err := rows.Scan(&m.ProjectID, &m.Service, &m.ExternalID, &m.SyncedAt, &lastErr); err != nil {
		return nil, fmt.Errorf("scanning mapping: %w", err)
	}
	m.LastError = lastErr.String
	return m, nil
}

// UpsertMapping inserts or replaces a mapping.
func (ed *EntDriver) UpsertMapping(ctx context.Context, m *project.Mapping) error {
	if m == nil {
		return errors.New("cannot store nil mapping")
	}

	query, args := ed.builder().Insert(mappingsTable).
		Columns("project_id", "service", "external_id", "synced_at", "last_error").
		Values(m.ProjectID, m.Service, m.ExternalID, m.SyncedAt.UTC(), nullString(m.LastError)).
		OnConflict(
			entsql.ConflictColumns("project_id", "service"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	var res stdsql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("upserting mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes a mapping.
func (ed *EntDriver) DeleteMapping(ctx context.Context, projectID, service string) error {
	query, args := ed.builder().Delete(mappingsTable).
		Where(entsql.And(entsql.EQ("project_id", projectID), entsql.EQ("service", service))).
		Query()

	var res stdsql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

func (ed *EntDriver) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := ed.Driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return ed.mapWriteErr("committing transaction", err)
	}
	return nil
}

func (ed *EntDriver) slugTaken(ctx context.Context, q dialect.ExecQuerier, slug, exceptID string) (bool, error) {
	b := ed.builder()
	pred := entsql.EQ("slug", slug)
	if exceptID != "" {
		pred = entsql.And(pred, entsql.NEQ("id", exceptID))
	}
	query, args := b.Select("id").From(b.Table(projectsTable)).Where(pred).Limit(1).Query()

	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	defer rows.Close()

	taken := rows.Next()
	return taken, rows.Err()
}

func (ed *EntDriver) mapWriteErr(msg string, err error) error {
	if ed.IsUniqueViolation != nil && ed.IsUniqueViolation(err) {
		return storage.ErrSlugConflict
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (ed *EntDriver) queryProjects(ctx context.Context, q dialect.ExecQuerier, query string, args []any) ([]*project.Project, error) {
	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return out, nil
}
