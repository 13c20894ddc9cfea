package glycan

import (
	glycan_search "github.com/glycoshape/glyco/cmd/glyco/subcommands/glycan/search"
	glycan_show "github.com/glycoshape/glyco/cmd/glyco/subcommands/glycan/show"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	search, err := glycan_search.New()
	if err != nil {
		return nil, err
	}
	show, err := glycan_show.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Look up the glycan database.",
		struct{}{},
		flarc.WithSubcommand("search", search),
		flarc.WithSubcommand("show", show),
	)
}
