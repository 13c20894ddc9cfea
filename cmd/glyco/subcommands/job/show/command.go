package show

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/output"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/watch"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/jobs/report"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Json bool   `flag:"json" help:"print the result as JSON"`
	Xlsx string `flag:"xlsx" metavar:"FILE" help:"also write residue summary and logs into an xlsx workbook. '-' writes it to stdout instead of the result."`
}

const ARG_JOB_ID = "JOB_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show the current state of a job.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_JOB_ID, Required: true,
				Help: "Id of the job to be shown",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Fetch progress of the job once, and print it with links to its outputs.

Links to outputs are known for jobs submitted from this machine, which are
recorded in the local job history.
`),
	)
}

func Task() common.Task[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		session common.Session,
		client rest.GlycoClient,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		jobId := strings.TrimSpace(cl.Args()[ARG_JOB_ID][0])
		flags := cl.Flags()

		doc, err := client.GetProgress(ctx, jobId)
		if err != nil {
			return err
		}
		if h := session.OpenHistory(logger); h != nil {
			if err := h.Update(ctx, jobId, doc); err != nil {
				logger.Printf("cannot record progress of %s: %s", jobId, err)
			}
			h.Close()
		}

		result := watch.Result(ctx, logger, session, jobId)
		view := jobs.NewPresenter(session.Config).Present(jobId, result, &doc)

		if flags.Xlsx != "" {
			if err := writeXlsx(flags.Xlsx, cl.Stdout(), view); err != nil {
				return fmt.Errorf("failed to write %s: %w", flags.Xlsx, err)
			}
			if flags.Xlsx == "-" {
				return nil
			}
			logger.Printf("report is written to %s", flags.Xlsx)
		}

		if flags.Json {
			return jobs.WriteJSON(cl.Stdout(), view)
		}
		return jobs.WriteText(cl.Stdout(), view)
	}
}

func writeXlsx(dest string, stdout io.Writer, view jobs.View) error {
	f, err := output.Create(dest, stdout)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteXLSX(f, view)
}
