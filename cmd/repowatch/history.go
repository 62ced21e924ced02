package repowatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/repowatch/repowatch/internal/archive"
	"github.com/repowatch/repowatch/internal/sink"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/spf13/cobra"
)

var (
	flagHistoryServer string
	flagHistoryStore  string
	flagHistoryDSN    string
	flagHistoryJSON   bool
	flagHistoryLimit  int
	flagHistoryDelete string
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived scans from a server or a local store",
		Example: `  repowatch history --server http://localhost:8080
  repowatch history --store bolt --dsn ./repowatch.db --limit 5
  repowatch history --store jsonl --dsn scans.jsonl --delete 3f0c...`,
		RunE: runHistory,
	}
	cmd.Flags().StringVar(&flagHistoryServer, "server", "", "archive server URL")
	cmd.Flags().StringVar(&flagToken, "token", "", "bearer token sent to --server")
	cmd.Flags().StringVar(&flagHistoryStore, "store", "", "read a store directly: jsonl|bolt|redis|postgres")
	cmd.Flags().StringVar(&flagHistoryDSN, "dsn", "", "store location for --store")
	cmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "emit JSON")
	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "show at most this many scans (0 = all)")
	cmd.Flags().StringVar(&flagHistoryDelete, "delete", "", "delete the scan with this ID (local store only)")
	cmd.MarkFlagsMutuallyExclusive("server", "store")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	var (
		recs   []archive.Record
		totals archive.Totals
		err    error
	)
	switch {
	case flagHistoryStore != "":
		store, oerr := archive.Open(ctx, flagHistoryStore, flagHistoryDSN)
		if oerr != nil {
			return oerr
		}
		defer store.Close()
		if flagHistoryDelete != "" {
			if err := store.Delete(ctx, flagHistoryDelete); err != nil {
				if errors.Is(err, archive.ErrNotFound) {
					return fmt.Errorf("no scan with id %s", flagHistoryDelete)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", flagHistoryDelete)
			return nil
		}
		if recs, err = store.List(ctx); err != nil {
			return err
		}
		if totals, err = store.Totals(ctx); err != nil {
			return err
		}
	default:
		srv := flagHistoryServer
		if srv == "" {
			gcfg, lcfg := loadConfigs(".")
			srv = pickString("", lcfg.Server, gcfg.Server)
		}
		if srv == "" {
			return errors.New("history needs --server, a configured server, or --store")
		}
		if flagHistoryDelete != "" {
			return errors.New("--delete works on a local --store only")
		}
		client := sink.New(srv, flagToken)
		if recs, err = client.List(ctx); err != nil {
			return err
		}
		if totals, err = client.Totals(ctx); err != nil {
			return err
		}
	}

	if flagHistoryLimit > 0 && len(recs) > flagHistoryLimit {
		recs = recs[:flagHistoryLimit]
	}
	if flagHistoryJSON {
		if recs == nil {
			recs = []archive.Record{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Scans  []archive.Record `json:"scans"`
			Totals archive.Totals   `json:"totals"`
		}{recs, totals})
	}
	return printHistory(cmd.OutOrStdout(), recs, totals)
}

func printHistory(w io.Writer, recs []archive.Record, totals archive.Totals) error {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No archived scans.")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Time", "Repo", "Source", "Findings", "Critical", "High")
		for _, r := range recs {
			_ = table.Append(
				r.ID,
				r.Timestamp.Local().Format("2006-01-02 15:04"),
				r.Repo,
				string(r.Source),
				strconv.Itoa(len(r.Findings)),
				strconv.Itoa(r.SeverityCounts[types.SevCritical]),
				strconv.Itoa(r.SeverityCounts[types.SevHigh]),
			)
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "\nArchived scans: %d  Findings: %d (critical: %d, high: %d, medium: %d, low: %d)\n",
		totals.Scans, totals.Findings,
		totals.BySeverity[types.SevCritical], totals.BySeverity[types.SevHigh],
		totals.BySeverity[types.SevMed], totals.BySeverity[types.SevLow])
	return nil
}
