package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
	"github.com/MIC-DKFZ/AVID-sub001/internal/settings"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and maintain session files",
	}
	cmd.AddCommand(newSessionShowCmd(opts))
	cmd.AddCommand(newSessionValidateCmd(opts))
	return cmd
}

func newSessionShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-file>",
		Short: "List the artifacts of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.Load(args[0], "", settings.Default())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCASE\tINSTANCE\tTIMEPOINT\tTAG\tTYPE\tFORMAT\tVALID\tURL")
			for _, a := range sess.Artifacts() {
				valid := "yes"
				if a.Invalid {
					valid = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ShortID(), a.Case, a.CaseInstance, a.Timepoint,
					a.ActionTag, a.Type, a.Format, valid, a.URL)
			}
			return w.Flush()
		},
	}
}

func newSessionValidateCmd(opts *rootOptions) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "validate <session-file>",
		Short: "Re-check artifact payloads against the filesystem",
		Long:  "validate stats every result artifact's payload file and reports artifacts\nwhose file is missing. With --write, missing payloads are flagged invalid\nand the session file is updated.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.Load(args[0], "", settings.Default())
			if err != nil {
				return err
			}

			missing := 0
			for _, a := range sess.Artifacts() {
				if a.Invalid || a.URL == "" {
					continue
				}
				if _, err := os.Stat(a.URL); err != nil {
					missing++
					fmt.Fprintf(cmd.OutOrStdout(), "missing payload: %s (%s)\n", a.URL, a.ShortID())
					if write {
						a.Invalid = true
					}
				} else if opts.verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", a.URL)
				}
			}

			if write && missing > 0 {
				if err := sess.Save(args[0]); err != nil {
					return err
				}
			}
			if missing > 0 {
				return fmt.Errorf("session: %d artifact(s) with missing payload", missing)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all payloads present")
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "flag missing payloads invalid and rewrite the session file")
	return cmd
}
