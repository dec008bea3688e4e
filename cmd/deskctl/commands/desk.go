package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/exchange-desk/internal/access"
	"github.com/dvloznov/exchange-desk/internal/blacklist"
	"github.com/dvloznov/exchange-desk/internal/fees"
	"github.com/dvloznov/exchange-desk/internal/ledger"
	"github.com/dvloznov/exchange-desk/internal/ticket"
	"github.com/dvloznov/exchange-desk/internal/vouch"
)

func blacklistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage the blacklist",
	}

	registry := func(cmd *cobra.Command) (*blacklist.Registry, error) {
		s, err := a.Store(ctxFor(cmd, a))
		if err != nil {
			return nil, err
		}
		return blacklist.New(s), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <user-id>",
			Short: "Blacklist a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := registry(cmd)
				if err != nil {
					return err
				}
				if err := r.Add(ctxFor(cmd, a), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "%s has been blacklisted.\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <user-id>",
			Short: "Remove a user from the blacklist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := registry(cmd)
				if err != nil {
					return err
				}
				if err := r.Remove(ctxFor(cmd, a), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "%s removed from blacklist.\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "check <user-id>",
			Short: "Check whether a user is blacklisted",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := registry(cmd)
				if err != nil {
					return err
				}
				blocked, err := r.IsBlacklisted(ctxFor(cmd, a), args[0])
				if err != nil {
					return err
				}
				if blocked {
					fmt.Fprintf(out(cmd), "%s is blacklisted.\n", args[0])
				} else {
					fmt.Fprintf(out(cmd), "%s is not blacklisted.\n", args[0])
				}
				return nil
			},
		},
	)
	return cmd
}

func totalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print the total completed volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxFor(cmd, a)
			s, err := a.Store(ctx)
			if err != nil {
				return err
			}
			total, err := ledger.New(s).Total(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Total exchanged: %s\n", total.StringFixed(2))
			return nil
		},
	}
}

func feesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fees",
		Short: "Print the fee schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROUTE\tFEE")
			for _, row := range fees.Schedule() {
				fmt.Fprintf(tw, "%s\t%s\n", row.Route, row.Rate)
			}
			return tw.Flush()
		},
	}
}

func ticketsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tickets",
		Short: "List open tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxFor(cmd, a)
			s, err := a.Store(ctx)
			if err != nil {
				return err
			}
			// Listing needs no capabilities; an empty resolver grants none.
			list, err := ticket.New(s, access.NewDeskResolver(nil), ledger.New(s)).List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tCHANNEL\tREQUESTER\tSEND\tRECEIVE\tAMOUNT\tCLAIMED BY")
			for _, t := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.Key, t.ChannelName, t.RequesterID, t.SendLabel(), t.ReceiveLabel(),
					amountOf(t.Amount), t.ClaimedBy)
			}
			return tw.Flush()
		},
	}
}

func vouchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vouches <user-id>",
		Short: "Show a user's vouches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxFor(cmd, a)
			repo, err := a.Vouches(ctx)
			if err != nil {
				return err
			}
			sum, err := vouch.NewService(repo).Summary(ctx, args[0])
			if err != nil {
				return err
			}
			w := out(cmd)
			if sum.Count == 0 {
				fmt.Fprintf(w, "%s has no vouches yet.\n", args[0])
				return nil
			}
			fmt.Fprintf(w, "%d vouches, average %s/5\n", sum.Count, sum.Average.StringFixed(1))
			for _, v := range sum.Recent {
				fmt.Fprintf(w, "  %d/5 from %s on %s: %s\n", v.Rating, v.FromID, v.CreatedAt.Format("2006-01-02"), v.Comment)
			}
			return nil
		},
	}
}

func amountOf(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}
