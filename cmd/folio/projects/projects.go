// Package projectscmder provides read-only project commands that work
// directly against the content store.
package projectscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/cmd/folio/stack"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/portfolio"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/utils"
)

const projectsLongDesc string = `Inspect the projects in the content store.

  folio projects list             List every project in display order
  folio projects show <slug|id>   Show one project and the text indexed for it`

const projectsShortDesc string = "Inspect portfolio projects"

var storeFlagKeys = []string{
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgres,
}

type projectsCommander struct {
	jsonOut bool
	config  *config.Config
	logger  *slog.Logger
}

func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: projectsShortDesc,
		Long:  projectsLongDesc,
	}

	cmd.AddCommand(newSubCmd("list", "List every project", cobra.NoArgs,
		func(ctx context.Context, c *projectsCommander, svc *portfolio.Service, _ []string) error {
			projects, err := svc.List(ctx)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(os.Stdout, projects)
			}
			PrintList(os.Stdout, projects)
			return nil
		}))

	cmd.AddCommand(newSubCmd("show <slug|id>", "Show one project", cobra.ExactArgs(1),
		func(ctx context.Context, c *projectsCommander, svc *portfolio.Service, args []string) error {
			p, err := Lookup(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(os.Stdout, p)
			}
			return PrintProject(os.Stdout, p)
		}))

	return cmd
}

type runFunc func(ctx context.Context, c *projectsCommander, svc *portfolio.Service, args []string) error

func newSubCmd(use, short string, args cobra.PositionalArgs, run runFunc) *cobra.Command {
	cmder := &projectsCommander{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, config.ServerFlags, storeFlagKeys)
			if err != nil {
				return err
			}
			cmder.config = cfg
			cmder.logger = stack.NewLogger(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.withService(cmd, func(ctx context.Context, svc *portfolio.Service) error {
				return run(ctx, cmder, svc, args)
			})
		},
	}

	for _, key := range storeFlagKeys {
		config.AddStringFlag(cmd, config.ServerFlags, key, new(string))
	}
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print JSON")

	return cmd
}

func (c *projectsCommander) withService(cmd *cobra.Command, fn func(context.Context, *portfolio.Service) error) error {
	ctx := cmd.Context()
	st, err := stack.New(ctx, c.config, stack.Options{
		ConfigDir: stack.ConfigDir(cmd),
		Service:   "folio-cli",
		SkipIndex: true,
	}, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, st.Projects)
}

// ProjectGetter is the subset of the project service Lookup needs.
type ProjectGetter interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context) ([]*project.Project, error)
}

// Lookup finds a project by id, then by slug.
func Lookup(ctx context.Context, svc ProjectGetter, key string) (*project.Project, error) {
	p, err := svc.Get(ctx, key)
	if err == nil || !storage.IsNotFound(err) {
		return p, err
	}

	projects, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.Slug == key {
			return p, nil
		}
	}
	return nil, storage.NotFoundError{Key: key}
}

// PrintList writes one line per project.
func PrintList(w io.Writer, projects []*project.Project) {
	if len(projects) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No projects yet. Add some with \"folio seed\"."))
		return
	}

	fmt.Fprintln(w)
	for _, p := range projects {
		fmt.Fprintf(w, "  %s  %-10s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%3s", strconv.Itoa(p.Position))),
			cliui.VisibilityBadge(string(p.Visibility)),
			cliui.NameStyle.Render(p.Slug),
			cliui.DimStyle.Render(utils.Truncate(p.Summary, 60)),
		)
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d projects", len(projects))))
}

// PrintProject writes the project header and its indexed text as markdown.
func PrintProject(w io.Writer, p *project.Project) error {
	fmt.Fprintf(w, "\n  %s %s\n", cliui.NameStyle.Render(p.Title), cliui.VisibilityBadge(string(p.Visibility)))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("ID:"), cliui.IDStyle.Render(p.ID))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Slug:"), cliui.ValueStyle.Render(p.Slug))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Point:"), cliui.DimStyle.Render(memory.PointID(p.ID)))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Updated:"), cliui.DimStyle.Render(p.UpdatedAt.Format("2006-01-02 15:04")))

	rendered, err := cliui.RenderMarkdown(memory.Format(p))
	if err != nil {
		rendered = memory.Format(p)
	}
	fmt.Fprintln(w, rendered)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
