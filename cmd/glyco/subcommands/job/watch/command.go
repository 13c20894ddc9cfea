package watch

import (
	"context"
	"log"
	"strings"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/watch"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Json bool `flag:"json" help:"print the result as JSON"`
}

const ARG_JOB_ID = "JOB_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Poll progress of a job until it ends.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_JOB_ID, Required: true,
				Help: "Id of the job to be watched",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Poll progress of the job at the interval of the profile (default: 3s), until
the job is finished or failed. Failed polls are retried on the next tick.

Log lines and progress are drawn on stderr. The result is printed on stdout.
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

		doc, err := watch.Watch(ctx, logger, session, client, jobId, cl.Stderr())
		if err != nil {
			return err
		}

		result := watch.Result(ctx, logger, session, jobId)
		view := jobs.NewPresenter(session.Config).Present(jobId, result, &doc)
		if cl.Flags().Json {
			return jobs.WriteJSON(cl.Stdout(), view)
		}
		return jobs.WriteText(cl.Stdout(), view)
	}
}
