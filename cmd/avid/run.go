package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MIC-DKFZ/AVID-sub001/internal/action"
	"github.com/MIC-DKFZ/AVID-sub001/internal/journal"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
	"github.com/MIC-DKFZ/AVID-sub001/internal/settings"
	"github.com/MIC-DKFZ/AVID-sub001/internal/workflow"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		workflowPath string
		sessionPath  string
		rootDir      string
		label        string
		journalPath  string
		toolsPath    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a workflow file over a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := settings.Load(opts.configPath)
			if err != nil {
				return err
			}
			if toolsPath != "" {
				st.ToolsPath = toolsPath
			}

			wf, err := workflow.LoadFile(workflowPath)
			if err != nil {
				return err
			}
			if label == "" {
				label = wf.Label
			}

			var sess *session.Session
			if _, statErr := os.Stat(sessionPath); statErr == nil {
				sess, err = session.Load(sessionPath, rootDir, st)
				if err != nil {
					return err
				}
			} else {
				sess = session.New(label, rootDir, st)
				sess.SetFilePath(sessionPath)
			}

			if journalPath != "" {
				j, err := journal.Open(journalPath)
				if err != nil {
					return err
				}
				defer j.Close()
				sess.AddRecorder(j)
			}

			tokens, err := wf.Run(cmd.Context(), sess)
			if err != nil {
				return err
			}

			failed := false
			for _, tok := range tokens {
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				if opts.verbose {
					for _, a := range tok.Generated {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", a)
					}
				}
				if tok.State == action.StateFailure {
					failed = true
				}
			}
			if err := sess.Save(sessionPath); err != nil {
				return err
			}
			if failed {
				return fmt.Errorf("run: one or more steps failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "workflow file (yaml)")
	cmd.Flags().StringVarP(&sessionPath, "session", "s", "", "session file path")
	cmd.Flags().StringVarP(&rootDir, "root", "r", "", "content root for produced artifacts")
	cmd.Flags().StringVarP(&label, "label", "l", "", "session label for new sessions")
	cmd.Flags().StringVar(&journalPath, "journal", "", "sqlite run journal path")
	cmd.Flags().StringVar(&toolsPath, "toolspath", "", "search root for executables")
	_ = cmd.MarkFlagRequired("workflow")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("root")

	return cmd
}
