package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Artifact string `flag:"artifact" alias:"a" metavar:"RELPATH" help:"download only this file, by the path relative to {api}/output/ as linked by 'job show'"`
}

const (
	ARG_JOB_ID = "JOB_ID"
	ARG_DEST   = "DEST"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Download outputs of a job.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_JOB_ID, Required: true,
				Help: "Id of the job to be downloaded",
			},
			{
				Name: ARG_DEST, Required: false,
				Help: "file or directory to save into. '-' means stdout. (default: current directory)",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Download all outputs of the job as an archive, or one file of them with
--artifact.

When DEST is a directory, the file is saved there with the name given by the
server.
`),
	)
}

const noBar pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }}{{with string . "suffix"}} {{.}}{{end}}`

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
		dest := "."
		if d := cl.Args()[ARG_DEST]; 0 < len(d) {
			dest = d[0]
		}
		artifact := strings.Trim(cl.Flags().Artifact, "/ ")

		fallback := jobId + ".zip"
		if artifact != "" {
			fallback = path.Base(artifact)
		}

		saved := ""
		handler := func(d rest.Download) error {
			if dest == "-" {
				_, err := io.Copy(cl.Stdout(), d.Body)
				return err
			}

			name := d.Filename
			if name == "" {
				name = fallback
			}
			target := resolve(dest, name)
			if err := os.MkdirAll(filepath.Dir(target), os.FileMode(0o777)); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(0o666))
			if err != nil {
				return err
			}
			defer f.Close()

			total := d.Size
			if total <= 0 {
				total = -1
			}
			bar := noBar.New(0).SetTotal(total)
			bar.Set(pb.Bytes, true)
			bar.SetWriter(cl.Stderr())
			bar.Set("prefix", fmt.Sprintf("Downloading to %s:", ellipsis(target, 60)))
			bar.Start()
			w := bar.NewProxyWriter(f)
			_, err = io.Copy(w, d.Body)
			bar.Finish()
			if err != nil {
				return err
			}
			saved = target
			return nil
		}

		var err error
		if artifact != "" {
			err = client.DownloadOutput(ctx, artifact, handler)
		} else {
			err = client.DownloadJob(ctx, jobId, handler)
		}
		if err != nil {
			return err
		}
		if saved != "" {
			logger.Printf("saved to %s", saved)
		}
		return nil
	}
}

// resolve returns the path to be written.
//
// When dest is an existing directory, or ends with a separator, name is put in it.
func resolve(dest string, name string) string {
	if strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(filepath.Separator)) {
		return filepath.Join(dest, filepath.Base(name))
	}
	if s, err := os.Stat(dest); err == nil && s.IsDir() {
		return filepath.Join(dest, filepath.Base(name))
	}
	return dest
}

func ellipsis(s string, length int) string {
	if len(s) <= length {
		return s
	}
	l := len(s)
	return "[...]" + s[l-length+5:]
}
