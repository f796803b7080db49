package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/blockshield/internal/app"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

var (
	exportOut string
	importIn  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the community list document",
	Long: `Render every community block into the community list JSON document.
Metadata already present in the target file is kept.

Defaults to COMMUNITY_LIST_PATH when --out is not given.`,
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		ctx := cmd.Context()
		path := exportOut
		if path == "" {
			path = a.Config.Sync.CommunityListPath
		}
		doc, err := a.Exports.WriteFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", len(doc.BlockedAccounts), path)
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a community list document into the catalog",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		ctx := cmd.Context()
		path := importIn
		if path == "" {
			path = a.Config.Sync.CommunityListPath
		}
		doc, err := services.ReadCommunityList(path)
		if err != nil {
			return err
		}
		added, err := a.Exports.Import(ctx, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d entries from %s\n", added, len(doc.BlockedAccounts), path)
		return nil
	}),
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path")
	importCmd.Flags().StringVarP(&importIn, "in", "i", "", "Input path")
}
