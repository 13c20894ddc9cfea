package submit

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/watch"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/glycoshape/glyco/pkg/utils"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Glycan       []string `flag:"glycan" alias:"g" metavar:"SITE=GLYCAN" help:"glycan for a site, like 428_A=G00001. Repeatable."`
	File         bool     `flag:"file" alias:"f" help:"PROTEIN is a path to a .pdb or .cif file to be uploaded"`
	EnsembleSize int      `flag:"ensemble-size" help:"number of structures in the ensemble"`
	Wiggle       int      `flag:"wiggle" help:"wiggle angle in degree"`
	Effort       int      `flag:"effort" help:"effort level of clash resolution"`
	NoSteric     bool     `flag:"no-steric" help:"skip steric checks"`
	SASA         bool     `flag:"sasa" help:"calculate solvent accessible surface area"`
	OutputFormat string   `flag:"output-format" help:"format of the output structure. Other than PDB needs dev features."`
	Watch        bool     `flag:"watch" alias:"w" help:"poll progress of the job until it ends"`
	Json         bool     `flag:"json" help:"print the result as JSON"`
}

const ARG_PROTEIN = "PROTEIN"

// DefaultFlags has the same values with jobs.DefaultRequest.
func DefaultFlags() Flags {
	d := jobs.DefaultRequest()
	return Flags{
		EnsembleSize: d.EnsembleSize,
		Wiggle:       d.Wiggle,
		Effort:       d.EffortLevel,
		NoSteric:     !d.CheckSteric,
		SASA:         d.CalculateSASA,
		OutputFormat: d.OutputFormat,
	}
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Submit a Re-Glyco job.",
		DefaultFlags(),
		flarc.Args{
			{
				Name: ARG_PROTEIN, Required: true,
				Help: "UniProt id or PDB id. With --file, path to a structure file.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Submit a job glycosylating PROTEIN with glycans, and print its result.

Sites and glycans available for them are listed by "glyco reglyco scan".

    {{ .Command }} P27918 -g 428_A=G00001 -g 464_A=G00003 --watch

The job is posted once and never retried. With --watch, progress of the job
is polled until it is finished or failed.

Submitted jobs are recorded in the local job history ("glyco job list").
`),
	)
}

func parseGlycans(pairs []string) (map[string]string, error) {
	parsed, err := utils.MapUntilError(pairs, func(s string) ([2]string, error) {
		site, glycan, ok := strings.Cut(s, "=")
		site, glycan = strings.TrimSpace(site), strings.TrimSpace(glycan)
		if !ok || site == "" || glycan == "" {
			return [2]string{}, fmt.Errorf("invalid glycan: %s (expected SITE=GLYCAN)", s)
		}
		return [2]string{site, glycan}, nil
	})
	if err != nil {
		return nil, err
	}
	glycans := map[string]string{}
	for _, p := range parsed {
		glycans[p[0]] = p[1]
	}
	return glycans, nil
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
		protein := strings.TrimSpace(cl.Args()[ARG_PROTEIN][0])
		flags := cl.Flags()

		glycans, err := parseGlycans(flags.Glycan)
		if err != nil {
			return fmt.Errorf("%w: %w", flarc.ErrUsage, err)
		}
		format := strings.ToUpper(strings.TrimSpace(flags.OutputFormat))
		if format == "" {
			format = jobs.DefaultRequest().OutputFormat
		}
		if format != jobs.DefaultRequest().OutputFormat && !session.Config.DevFeaturesEnabled {
			return fmt.Errorf("%w: --output-format %s needs dev features", flarc.ErrUsage, format)
		}

		submitter := jobs.NewSubmitter(client, nil)

		req := jobs.DefaultRequest()
		req.ProtID = protein
		if flags.File {
			if err := jobs.ValidateUpload(protein); err != nil {
				return err
			}
			f, err := os.Open(protein)
			if err != nil {
				return err
			}
			defer f.Close()
			resp, err := submitter.Scan(ctx, jobs.Source{Filename: protein, Content: f})
			if err != nil {
				return err
			}
			req.ProtID = resp.Filename
			if req.ProtID == "" {
				req.ProtID = filepath.Base(protein)
			}
			req.IsUpload = true
		}
		req.Glycans = glycans
		req.EnsembleSize = flags.EnsembleSize
		req.Wiggle = flags.Wiggle
		req.EffortLevel = flags.Effort
		req.CheckSteric = !flags.NoSteric
		req.CalculateSASA = flags.SASA
		req.OutputFormat = format

		sub, err := submitter.Submit(ctx, req)
		if err != nil {
			return err
		}
		logger.Printf("job %s is submitted", sub.Handle)

		if h := session.OpenHistory(logger); h != nil {
			if err := h.Record(ctx, req.ProtID, sub); err != nil {
				logger.Printf("cannot record job %s into history: %s", sub.Handle, err)
			}
			h.Close()
		}

		var doc *progress.Document
		if flags.Watch {
			d, err := watch.Watch(ctx, logger, session, client, sub.Handle, cl.Stderr())
			if err != nil {
				return err
			}
			doc = &d
		}

		view := jobs.NewPresenter(session.Config).Present(sub.Handle, sub.Result, doc)
		if flags.Json {
			return jobs.WriteJSON(cl.Stdout(), view)
		}
		return jobs.WriteText(cl.Stdout(), view)
	}
}
