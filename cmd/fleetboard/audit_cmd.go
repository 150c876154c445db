package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show this agent's local audit trail",
	RunE:  runAudit,
}

var (
	auditLimit int
	auditTask  string
)

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Number of entries to show")
	auditCmd.Flags().StringVar(&auditTask, "task", "", "Show all entries for one task id")
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	trail, err := audit.Open(a.cfg.AuditPath())
	if err != nil {
		return err
	}
	defer trail.Close()

	var entries []audit.Entry
	if auditTask != "" {
		entries, err = trail.ForTask(auditTask)
	} else {
		entries, err = trail.Recent(auditLimit)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		if entries == nil {
			entries = []audit.Entry{}
		}
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tTASK\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.Timestamp), e.Action, e.Outcome, truncateID(e.TaskID), truncate(e.Details, 48))
	}
	return w.Flush()
}
