package watch

import (
	"context"
	"fmt"
	"io"
	"log"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest"
)

const barTemplate pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{bar . }} {{percent . }}{{with string . "suffix"}} {{.}}{{end}}`

// Watch polls the job until it gets terminal, drawing progress into w.
//
// Fresh log entries are written into w as they arrive. When the history is
// available, progress is recorded there too.
func Watch(
	ctx context.Context,
	logger *log.Logger,
	session common.Session,
	client rest.GlycoClient,
	jobId string,
	w io.Writer,
	options ...jobs.PollerOption,
) (progress.Document, error) {
	bar := barTemplate.New(100)
	bar.SetWriter(w)
	// redrawn by observer only. no goroutine writes into w behind us.
	bar.Set(pb.Static, true)
	bar.Set("prefix", fmt.Sprintf("job %s:", jobId))
	bar.Start()

	options = append(options, jobs.WithObserver(func(u jobs.Update) {
		if u.Err != nil {
			logger.Printf("failed to fetch progress. retrying: %s", gerr.Report(nil, u.Err))
			return
		}
		for _, l := range u.Fresh() {
			fmt.Fprintf(w, "\n%s %s", l.Timestamp, l.Message)
		}
		if 0 < u.FreshLogs {
			fmt.Fprintln(w)
		}
		bar.SetCurrent(int64(u.Document.Progress))
		bar.Set("suffix", string(u.Document.Status))
		bar.Write()
	}))

	if h := session.OpenHistory(logger); h != nil {
		defer h.Close()
		options = append(options, jobs.WithObserver(h.Observer(ctx, logger)))
	}

	doc, err := jobs.NewPoller(client, session.Config, options...).Watch(ctx, jobId)
	bar.Finish()
	fmt.Fprintln(w)
	return doc, err
}

// Result recalls the result of a job submitted earlier from the history.
//
// Only the job id is set when the job is not recorded.
func Result(ctx context.Context, logger *log.Logger, session common.Session, jobId string) reglyco.JobResult {
	r := reglyco.JobResult{JobId: jobId}
	h := session.OpenHistory(logger)
	if h == nil {
		return r
	}
	defer h.Close()

	e, err := h.Get(ctx, jobId)
	if err != nil {
		return r
	}
	r.Output = e.Output
	r.Clash = e.Clash
	return r
}
