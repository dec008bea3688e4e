package commands

import (
	"fmt"
	"math/big"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/dvloznov/exchange-desk/internal/bigquery"
)

// parseDate accepts YYYY-MM-DD; empty means an open bound.
func parseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func ratString(r *big.Rat) string {
	if r == nil {
		return "-"
	}
	return r.FloatString(2)
}

func archiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Query the closed-ticket archive",
	}

	var from, to, status string
	var limit int

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDate(from)
			if err != nil {
				return err
			}
			t, err := parseDate(to)
			if err != nil {
				return err
			}
			ctx := ctxFor(cmd, a)
			repo, err := a.Archive(ctx)
			if err != nil {
				return err
			}
			rows, err := repo.ListClosedTickets(ctx, bigquery.ArchiveFilter{From: f, To: t, Status: status, Limit: limit})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CLOSED\tKEY\tSTATUS\tSEND\tRECEIVE\tAMOUNT\tCLOSED BY")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ClosedTS.Format(time.RFC3339), r.TicketKey, r.Status,
					r.SendMethod, r.ReceiveMethod, ratString(r.Amount), r.ClosedBy)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&from, "from", "", "first closing date (YYYY-MM-DD)")
	list.Flags().StringVar(&to, "to", "", "last closing date (YYYY-MM-DD)")
	list.Flags().StringVar(&status, "status", "", "completed or cancelled")
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows")

	var vFrom, vTo string
	volume := &cobra.Command{
		Use:   "volume",
		Short: "Completed volume per send method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDate(vFrom)
			if err != nil {
				return err
			}
			t, err := parseDate(vTo)
			if err != nil {
				return err
			}
			ctx := ctxFor(cmd, a)
			repo, err := a.Archive(ctx)
			if err != nil {
				return err
			}
			rows, err := repo.VolumeByMethod(ctx, f, t)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tTICKETS\tVOLUME")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", r.SendMethod, r.Tickets, ratString(r.Volume))
			}
			return tw.Flush()
		},
	}
	volume.Flags().StringVar(&vFrom, "from", "", "first closing date (YYYY-MM-DD)")
	volume.Flags().StringVar(&vTo, "to", "", "last closing date (YYYY-MM-DD)")

	cmd.AddCommand(list, volume)
	return cmd
}

func transcriptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Work with delivered transcripts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "fetch <gs://bucket/object>",
		Short: "Print a transcript stored in GCS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxFor(cmd, a)
			svc, err := a.Storage(ctx)
			if err != nil {
				return err
			}
			data, err := svc.FetchFromGCS(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = out(cmd).Write(data)
			return err
		},
	})
	return cmd
}
