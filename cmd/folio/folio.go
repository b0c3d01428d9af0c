// Package foliocmder
package foliocmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/folio/cmd/folio/chat"
	configcmder "github.com/papercomputeco/folio/cmd/folio/config"
	initcmder "github.com/papercomputeco/folio/cmd/folio/init"
	projectscmder "github.com/papercomputeco/folio/cmd/folio/projects"
	searchcmder "github.com/papercomputeco/folio/cmd/folio/search"
	seedcmder "github.com/papercomputeco/folio/cmd/folio/seed"
	servecmder "github.com/papercomputeco/folio/cmd/folio/serve"
	synccmder "github.com/papercomputeco/folio/cmd/folio/sync"
	versioncmder "github.com/papercomputeco/folio/cmd/version"
)

const folioLongDesc string = `Folio is the backend for a portfolio website with a RAG chat assistant.

Projects live in a content store and are mirrored into a vector index so
visitors can ask questions about them.

Get started:
  folio init                 Create a local .folio/ directory
  folio seed projects.yaml   Import projects
  folio serve                Run the API server
  folio chat                 Talk to the assistant
  folio search "query"       Search project memories

Keep the index in step:
  folio sync all             Re-sync every project
  folio sync pending         Retry syncs left in the journal`

const folioShortDesc string = "Folio - portfolio content and chat"

func NewFolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "folio",
		Short:        folioShortDesc,
		Long:         folioLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .folio/ directory location")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(projectscmder.NewProjectsCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
