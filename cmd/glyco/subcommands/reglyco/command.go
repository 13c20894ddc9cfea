package reglyco

import (
	reglyco_scan "github.com/glycoshape/glyco/cmd/glyco/subcommands/reglyco/scan"
	reglyco_submit "github.com/glycoshape/glyco/cmd/glyco/subcommands/reglyco/submit"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	scan, err := reglyco_scan.New()
	if err != nil {
		return nil, err
	}
	submit, err := reglyco_submit.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Glycosylate a protein with Re-Glyco.",
		struct{}{},
		flarc.WithSubcommand("scan", scan),
		flarc.WithSubcommand("submit", submit),
	)
}
