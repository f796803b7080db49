package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/blockshield/internal/app"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

var syncDID string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile one account with its Bluesky block list",
	Long: `Pull the account's remote blocks into the catalog and push community
blocks the account is missing, then print the sync summary as JSON.

Examples:
  blockshield sync --did did:plc:abc123`,
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		ctx := cmd.Context()
		account, err := a.Accounts.GetByDID(ctx, syncDID)
		if err != nil {
			return fmt.Errorf("looking up %s: %w", syncDID, err)
		}
		summary, err := a.Syncs.Sync(ctx, *account)
		if err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), summary)
	}),
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Reconcile every connected account in turn",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		ctx := cmd.Context()
		results, err := a.Syncs.SyncAll(ctx)
		printSyncResults(cmd.OutOrStdout(), results)
		return err
	}),
}

func init() {
	syncCmd.Flags().StringVar(&syncDID, "did", "", "DID of the account to sync")
	_ = syncCmd.MarkFlagRequired("did")
}

func printSyncResults(w io.Writer, results []services.SyncResult) {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(w, "%-40s FAILED  %s\n", r.Handle, r.Error)
			continue
		}
		fmt.Fprintf(w, "%-40s ok      %s\n", r.Handle, formatSummary(r.Summary))
	}
	fmt.Fprintf(w, "%d accounts, %d failed\n", len(results), failed)
}

func formatSummary(s *models.SyncSummary) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("fetched=%d added=%d existing=%d pushed=%d push_failed=%d",
		s.TotalFetched, s.NewlyAdded, s.Existing, s.AddedToBsky, s.FailedToAdd)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
