package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type Flags struct {
	File bool `flag:"file" alias:"f" help:"PROTEIN is a path to a .pdb or .cif file to be uploaded"`
	Json bool `flag:"json" help:"print the result as JSON"`
}

const ARG_PROTEIN = "PROTEIN"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"List glycosylation sites of a protein.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_PROTEIN, Required: true,
				Help: "UniProt id or PDB id. With --file, path to a structure file.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Initialize a protein on the backend, and list its glycosylation sites with
glycans available for each of them.

Uploaded structures should be .pdb or .cif files. Others are rejected
without any request.

Pass the site keys (like "428_A") to "glyco reglyco submit -g".
`),
	)
}

// Scan runs the scan of the source.
func Scan(ctx context.Context, client rest.GlycoClient, protein string, file bool) (reglyco.InitResponse, error) {
	submitter := jobs.NewSubmitter(client, nil)
	if !file {
		return submitter.Scan(ctx, jobs.Source{ProtID: protein})
	}

	if err := jobs.ValidateUpload(protein); err != nil {
		return reglyco.InitResponse{}, err
	}
	f, err := os.Open(protein)
	if err != nil {
		return reglyco.InitResponse{}, err
	}
	defer f.Close()
	return submitter.Scan(ctx, jobs.Source{Filename: protein, Content: f})
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
		protein := cl.Args()[ARG_PROTEIN][0]
		flags := cl.Flags()

		resp, err := Scan(ctx, client, protein, flags.File)
		if err != nil {
			return err
		}

		if flags.Json {
			enc := json.NewEncoder(cl.Stdout())
			enc.SetIndent("", "    ")
			return enc.Encode(resp)
		}
		return WriteSites(cl.Stdout(), resp)
	}
}

type siteLine struct {
	Key     string
	Residue string
	Glycans string
}

var sitesTemplate = template.Must(template.New("sites").Parse(`Protein: {{ .Protein }}
{{- with .Filename }}
Uploaded as: {{ . }}
{{- end }}
{{- with .Viewer }}
Viewer: {{ . }}
{{- end }}
Sites:
{{- range .Sites }}
  {{ .Key }} {{ .Residue }}: {{ .Glycans }}
{{- else }}
  (no glycosylation site found)
{{- end }}
`))

// WriteSites writes sites in resp, in order of chain and residue id.
func WriteSites(w io.Writer, resp reglyco.InitResponse) error {
	sites := append([]reglyco.Site{}, resp.Sites...)
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Chain != sites[j].Chain {
			return sites[i].Chain < sites[j].Chain
		}
		return sites[i].ResidueID < sites[j].ResidueID
	})

	lines := make([]siteLine, 0, len(sites))
	for _, s := range sites {
		glycans := strings.Join(resp.GlycansFor(s), ", ")
		if glycans == "" {
			glycans = jobs.NotAvailable
		}
		lines = append(lines, siteLine{Key: s.Key(), Residue: s.ResidueName, Glycans: glycans})
	}

	if err := sitesTemplate.Execute(w, map[string]any{
		"Protein":  resp.ProtID,
		"Filename": resp.Filename,
		"Viewer":   resp.RequestURL,
		"Sites":    lines,
	}); err != nil {
		return fmt.Errorf("failed to write sites: %w", err)
	}
	return nil
}
