package tool

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/output"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/glycoshape/glyco/pkg/utils"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Flags struct {
	File string `flag:"file" alias:"f" metavar:"FILE" help:"structure file (.pdb or .cif) for endpoints taking it"`
	Raw  bool   `flag:"raw" help:"print the response as is, without indentation"`
}

const (
	ARG_ENDPOINT = "ENDPOINT"
	ARG_FIELD    = "KEY=VALUE"
)

func New() (flarc.Command, error) {
	names := utils.Map(rest.Endpoints, func(e rest.Endpoint) string { return string(e) })
	return flarc.NewCommand(
		"Call a request/response tool endpoint.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_ENDPOINT, Required: true,
				Help: "one of: " + strings.Join(names, ", "),
			},
			{
				Name: ARG_FIELD, Required: false, Repeatable: true,
				Help: "field of the JSON payload. VALUE is read as a YAML scalar, so numbers and booleans are typed.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Post a payload to {api}/api/ENDPOINT and print the response.

    {{ .Command }} uniprot uniprot=P27918
    {{ .Command }} oneshot_pdb --file ./mine.pdb

Endpoints processing a structure file (upload_pdb, process_pdb,
process_pdb_sasa, oneshot_pdb and oneshot_sasa) need --file.
"scan" needs dev features.
`),
	)
}

// parseFields builds a payload from KEY=VALUE pairs.
func parseFields(pairs []string) (map[string]any, error) {
	payload := map[string]any{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field: %s (expected KEY=VALUE)", p)
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil || v == nil {
			v = value
		}
		switch v.(type) {
		case map[string]any, []any:
			v = value
		}
		payload[key] = v
	}
	return payload, nil
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
		endpoint, err := rest.ParseEndpoint(cl.Args()[ARG_ENDPOINT][0])
		if err != nil {
			return fmt.Errorf("%w: %w", flarc.ErrUsage, err)
		}
		if endpoint.DevOnly() && !session.Config.DevFeaturesEnabled {
			return fmt.Errorf("%w: %s needs dev features", flarc.ErrUsage, endpoint)
		}
		flags := cl.Flags()

		var resp []byte
		if endpoint.TakesFile() {
			if flags.File == "" {
				return fmt.Errorf("%w: %s needs --file", flarc.ErrUsage, endpoint)
			}
			if 0 < len(cl.Args()[ARG_FIELD]) {
				return fmt.Errorf("%w: %s takes no fields", flarc.ErrUsage, endpoint)
			}
			if err := jobs.ValidateUpload(flags.File); err != nil {
				return err
			}
			f, err := os.Open(flags.File)
			if err != nil {
				return err
			}
			defer f.Close()
			resp, err = client.OneShotUpload(ctx, endpoint, filepath.Base(flags.File), f)
			if err != nil {
				return err
			}
		} else {
			if flags.File != "" {
				return fmt.Errorf("%w: %s does not take --file", flarc.ErrUsage, endpoint)
			}
			payload, err := parseFields(cl.Args()[ARG_FIELD])
			if err != nil {
				return fmt.Errorf("%w: %w", flarc.ErrUsage, err)
			}
			resp, err = client.OneShot(ctx, endpoint, payload)
			if err != nil {
				return err
			}
		}

		return output.Payload(cl.Stdout(), resp, flags.Raw)
	}
}
