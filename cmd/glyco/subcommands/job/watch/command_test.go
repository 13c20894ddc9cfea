package watch_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/commandline"
	job_watch "github.com/glycoshape/glyco/cmd/glyco/subcommands/job/watch"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/logger"
	ctxutil "github.com/glycoshape/glyco/internal/testutils/context"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/glycoshape/glyco/pkg/config"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/jobs/history"
	"github.com/glycoshape/glyco/pkg/rest/mock"
	"github.com/glycoshape/glyco/pkg/utils/try"
)

func session(t *testing.T) common.Session {
	conf := config.Default()
	conf.APIBaseURL = "http://glyco.invalid"
	conf.PollInterval = time.Millisecond
	return common.Session{
		Config:  conf,
		Profile: common.DefaultProfile,
		History: filepath.Join(t.TempDir(), "history.db"),
	}
}

func TestWatchCommand(t *testing.T) {
	t.Run("it polls until the job ends, and presents the result", func(t *testing.T) {
		s := session(t)
		{
			h := try.To(history.Open(s.History)).OrFatal(t)
			sub := jobs.Submission{
				Handle: "job1",
				Result: reglyco.JobResult{JobId: "job1", Output: "job1/out.pdb", Clash: true},
			}
			if err := h.Record(context.Background(), "P27918", sub); err != nil {
				t.Fatal(err)
			}
			h.Close()
		}

		docs := []progress.Document{
			{Status: progress.InProgress, Progress: 50, Logs: []progress.Log{{Timestamp: "t1", Message: "half"}}},
			{Status: progress.Finished, Progress: 100, Logs: []progress.Log{
				{Timestamp: "t1", Message: "half"}, {Timestamp: "t2", Message: "done"},
			}},
		}
		client := mock.New(t)
		client.Impl.GetProgress = func(ctx context.Context, jobId string) (progress.Document, error) {
			d := docs[0]
			if 1 < len(docs) {
				docs = docs[1:]
			}
			return d, nil
		}

		cl, stdout, stderr := commandline.New(
			"glyco job watch", job_watch.Flags{Json: true},
			map[string][]string{job_watch.ARG_JOB_ID: {" job1 "}},
		)
		if err := job_watch.Task()(ctxutil.WithTest(t, 10*time.Second), logger.Null(), s, client, cl, nil); err != nil {
			t.Fatal(err)
		}

		for _, id := range client.Calls.GetProgress {
			if id != "job1" {
				t.Errorf("unexpected job id: %s", id)
			}
		}
		if len(client.Calls.GetProgress) != 2 {
			t.Errorf("polled %d times", len(client.Calls.GetProgress))
		}

		view := jobs.View{}
		if err := json.Unmarshal([]byte(stdout.String()), &view); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
		}
		if view.Handle != "job1" || view.Banner != jobs.BannerWarning || view.Status != progress.Finished {
			t.Errorf("unexpected view: %+v", view)
		}
		if len(view.Links) != 1 || view.Links[0].URL != "http://glyco.invalid/output/job1/out.pdb" {
			t.Errorf("unexpected links: %+v", view.Links)
		}
		if !strings.Contains(stderr.String(), "t2 done") {
			t.Errorf("logs are not shown:\n%s", stderr.String())
		}
	})

	t.Run("a failed job is presented with error banner", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.GetProgress = func(ctx context.Context, jobId string) (progress.Document, error) {
			return progress.Document{Status: progress.Error, Progress: 20}, nil
		}
		cl, stdout, _ := commandline.New(
			"glyco job watch", job_watch.Flags{},
			map[string][]string{job_watch.ARG_JOB_ID: {"job2"}},
		)
		if err := job_watch.Task()(ctxutil.WithTest(t, 10*time.Second), logger.Null(), session(t), client, cl, nil); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(stdout.String(), "[ERROR]") {
			t.Errorf("unexpected output:\n%s", stdout.String())
		}
	})

	t.Run("cancellation stops polling", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		client := mock.New(t)
		client.Impl.GetProgress = func(context.Context, string) (progress.Document, error) {
			cancel()
			return progress.Document{}, gerr.Transport(errors.New("unreachable"))
		}
		cl, stdout, _ := commandline.New(
			"glyco job watch", job_watch.Flags{},
			map[string][]string{job_watch.ARG_JOB_ID: {"job3"}},
		)
		err := job_watch.Task()(ctx, logger.Null(), session(t), client, cl, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("result is presented: %s", stdout.String())
		}
	})
}
