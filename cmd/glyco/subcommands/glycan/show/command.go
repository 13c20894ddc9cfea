package show

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/output"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Svg  string `flag:"svg" metavar:"FILE" help:"save the SNFG drawing. '-' means stdout."`
	Csv  string `flag:"csv" metavar:"FILE" help:"save the data sheet of the glycan. '-' means stdout."`
	Json string `flag:"json" metavar:"FILE" help:"save the entry. '-' means stdout."`
}

const ARG_GLYCAN_ID = "GLYCAN_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show a glycan in the database.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_GLYCAN_ID, Required: true,
				Help: "GlyTouCan id or GlycoShape id of the glycan",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Print the database entry of the glycan as JSON.

With --svg, --csv or --json, artifacts are saved into the files instead.
Only one of them can be '-'.
`),
	)
}

// artifact is a file to be saved.
type artifact struct {
	dest  string
	fetch func(ctx context.Context, w io.Writer) error
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
		id := strings.TrimSpace(cl.Args()[ARG_GLYCAN_ID][0])
		if id == "" {
			return fmt.Errorf("%w: %s is empty", flarc.ErrUsage, ARG_GLYCAN_ID)
		}
		flags := cl.Flags()

		database := func(name string) func(context.Context, io.Writer) error {
			return func(ctx context.Context, w io.Writer) error {
				return client.DatabaseArtifact(ctx, id, name, func(d rest.Download) error {
					_, err := io.Copy(w, d.Body)
					return err
				})
			}
		}

		if flags.Svg == "" && flags.Csv == "" && flags.Json == "" {
			buf := new(strings.Builder)
			if err := database(id+".json")(ctx, buf); err != nil {
				return err
			}
			return output.Payload(cl.Stdout(), []byte(buf.String()), false)
		}

		artifacts := []artifact{}
		toStdout := 0
		for _, a := range []artifact{
			{
				dest: flags.Svg,
				fetch: func(ctx context.Context, w io.Writer) error {
					svg, err := client.GlycanSVG(ctx, id)
					if err != nil {
						return err
					}
					_, err = w.Write(svg)
					return err
				},
			},
			{dest: flags.Csv, fetch: database(id + ".csv")},
			{dest: flags.Json, fetch: database(id + ".json")},
		} {
			if a.dest == "" {
				continue
			}
			if a.dest == "-" {
				toStdout += 1
			}
			artifacts = append(artifacts, a)
		}
		if 1 < toStdout {
			return fmt.Errorf("%w: only one artifact can be written to stdout", flarc.ErrUsage)
		}

		for _, a := range artifacts {
			if err := save(ctx, a, cl.Stdout()); err != nil {
				return err
			}
			if a.dest != "-" {
				logger.Printf("saved to %s", a.dest)
			}
		}
		return nil
	}
}

// save fetches a, then writes it. Nothing is written when the fetch fails.
func save(ctx context.Context, a artifact, stdout io.Writer) error {
	buf := new(bytes.Buffer)
	if err := a.fetch(ctx, buf); err != nil {
		return err
	}
	w, err := output.Create(a.dest, stdout)
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = buf.WriteTo(w)
	return err
}
