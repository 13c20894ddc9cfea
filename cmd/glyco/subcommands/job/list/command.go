package list

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/jobs/history"
	"github.com/glycoshape/glyco/pkg/utils/rfctime"
	"github.com/olekukonko/tablewriter"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Limit int  `flag:"limit" alias:"n" help:"number of jobs to be listed. 0 means all"`
	Json  bool `flag:"json" help:"print jobs as JSON"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"List jobs submitted from this machine.",
		Flags{Limit: 20},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Task(time.Now)),
		flarc.WithDescription(`
List jobs in the local job history, newest first.

The history is updated by "glyco reglyco submit", "glyco job watch" and
"glyco job show". It is not synchronized with the backend.
`),
	)
}

var ErrNoHistory = errors.New("job history is not available")

type entry struct {
	JobId       string          `json:"jobId"`
	Protein     string          `json:"protein"`
	SubmittedAt rfctime.RFC3339 `json:"submittedAt"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Output      string          `json:"output,omitempty"`
	Clash       bool            `json:"clash"`
	UpdatedAt   rfctime.RFC3339 `json:"updatedAt"`
}

// Task lists the history. now is used for relative times in the table.
func Task(now func() time.Time) common.TaskWithCommonFlag[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		flags := cl.Flags()
		if flags.Limit < 0 {
			return fmt.Errorf("%w: --limit should not be negative", flarc.ErrUsage)
		}

		h := common.Session{History: cf.History}.OpenHistory(logger)
		if h == nil {
			return ErrNoHistory
		}
		defer h.Close()

		found, err := h.List(ctx, flags.Limit)
		if err != nil {
			return err
		}

		if flags.Json {
			out := make([]entry, 0, len(found))
			for _, e := range found {
				out = append(out, entry{
					JobId: e.JobId, Protein: e.Protein, SubmittedAt: rfctime.RFC3339(e.SubmittedAt),
					Status: string(e.Status), Progress: e.Progress,
					Output: e.Output, Clash: e.Clash, UpdatedAt: rfctime.RFC3339(e.UpdatedAt),
				})
			}
			enc := json.NewEncoder(cl.Stdout())
			enc.SetIndent("", "    ")
			return enc.Encode(out)
		}
		return WriteTable(cl.Stdout(), found, now())
	}
}

func na(s string) string {
	if s == "" {
		return jobs.NotAvailable
	}
	return s
}

// WriteTable writes entries as a table.
func WriteTable(w io.Writer, entries []history.Entry, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Job Id", "Protein", "Submitted", "Status", "Progress", "Clash"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, e := range entries {
		clash := "no"
		if e.Clash {
			clash = "yes"
		}
		table.Append([]string{
			e.JobId,
			na(e.Protein),
			humanize.RelTime(e.SubmittedAt, now, "ago", "later"),
			na(string(e.Status)),
			strconv.Itoa(e.Progress) + "%",
			clash,
		})
	}
	table.Render()
	return nil
}
