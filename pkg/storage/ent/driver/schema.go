package entdriver

import (
	"math"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	projectsTable = "projects"
	mappingsTable = "integration_mappings"
)

var (
	projectsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "title", Type: field.TypeString, Size: 200},
		{Name: "slug", Type: field.TypeString, Size: 120},
		{Name: "summary", Type: field.TypeString, Size: math.MaxInt32},
		{Name: "content", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
		{Name: "role", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
		{Name: "problem", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
		{Name: "solution", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
		{Name: "key_takeaway", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
		{Name: "architecture", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
		{Name: "features", Type: field.TypeJSON, Nullable: true},
		{Name: "tech_stack", Type: field.TypeJSON, Nullable: true},
		{Name: "tags", Type: field.TypeJSON, Nullable: true},
		{Name: "images", Type: field.TypeJSON, Nullable: true},
		{Name: "links", Type: field.TypeJSON, Nullable: true},
		{Name: "metrics", Type: field.TypeJSON, Nullable: true},
		{Name: "visibility", Type: field.TypeString, Size: 16, Default: "public"},
		{Name: "position", Type: field.TypeInt, Default: 0},
		{Name: "status", Type: field.TypeString, Size: 64, Nullable: true},
		{Name: "schema_type", Type: field.TypeString, Size: 64, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "published_at", Type: field.TypeTime, Nullable: true},
	}

	// ProjectsTable holds the portfolio projects.
	ProjectsTable = &schema.Table{
		Name:       projectsTable,
		Columns:    projectsColumns,
		PrimaryKey: []*schema.Column{projectsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "project_slug", Unique: true, Columns: []*schema.Column{projectsColumns[2]}},
			{Name: "project_position_created_at", Columns: []*schema.Column{projectsColumns[17], projectsColumns[20]}},
		},
	}

	mappingsColumns = []*schema.Column{
		{Name: "project_id", Type: field.TypeString, Size: 64},
		{Name: "service", Type: field.TypeString, Size: 64},
		{Name: "external_id", Type: field.TypeString, Size: 255},
		{Name: "synced_at", Type: field.TypeTime},
		{Name: "last_error", Type: field.TypeString, Size: math.MaxInt32, Nullable: true},
	}

	// MappingsTable holds one row per (project, external service).
	MappingsTable = &schema.Table{
		Name:       mappingsTable,
		Columns:    mappingsColumns,
		PrimaryKey: []*schema.Column{mappingsColumns[0], mappingsColumns[1]},
	}

	// Tables lists every table the driver migrates.
	Tables = []*schema.Table{ProjectsTable, MappingsTable}
)

// projectColumnNames returns the projects column names in declaration order.
func projectColumnNames() []string {
	names := make([]string, len(projectsColumns))
	for i, c := range projectsColumns {
		names[i] = c.Name
	}
	return names
}
