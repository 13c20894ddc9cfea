package search

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/output"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Type string `flag:"type" alias:"t" metavar:"text|wurcs|glycoct|iupac" help:"how QUERY is read"`
	Raw  bool   `flag:"raw" help:"print the response as is, without indentation"`
}

const ARG_QUERY = "QUERY"

var searchTypes = []string{"text", "wurcs", "glycoct", "iupac"}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Search glycans.",
		Flags{Type: "text"},
		flarc.Args{
			{
				Name: ARG_QUERY, Required: true, Repeatable: true,
				Help: "free text, GlyTouCan id or a sequence. Words are joined with a space.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Search the glycan database, and print matched entries as JSON.

    {{ .Command }} Man5
    {{ .Command }} --type iupac "Man(a1-3)[Man(a1-6)]Man(b1-4)GlcNAc(b1-4)GlcNAc(b1-"
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
		flags := cl.Flags()
		query := strings.TrimSpace(strings.Join(cl.Args()[ARG_QUERY], " "))
		if query == "" {
			return fmt.Errorf("%w: %s is empty", flarc.ErrUsage, ARG_QUERY)
		}
		typ := strings.ToLower(strings.TrimSpace(flags.Type))
		if typ != "" && !slices.Contains(searchTypes, typ) {
			return fmt.Errorf(
				"%w: --type should be one of %s", flarc.ErrUsage, strings.Join(searchTypes, ", "),
			)
		}

		resp, err := client.Search(ctx, rest.SearchQuery{Query: query, SearchType: typ})
		if err != nil {
			return err
		}
		return output.Payload(cl.Stdout(), resp, flags.Raw)
	}
}
