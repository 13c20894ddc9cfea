package job

import (
	job_download "github.com/glycoshape/glyco/cmd/glyco/subcommands/job/download"
	job_list "github.com/glycoshape/glyco/cmd/glyco/subcommands/job/list"
	job_show "github.com/glycoshape/glyco/cmd/glyco/subcommands/job/show"
	job_watch "github.com/glycoshape/glyco/cmd/glyco/subcommands/job/watch"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	watch, err := job_watch.New()
	if err != nil {
		return nil, err
	}
	show, err := job_show.New()
	if err != nil {
		return nil, err
	}
	download, err := job_download.New()
	if err != nil {
		return nil, err
	}
	list, err := job_list.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Track Re-Glyco jobs.",
		struct{}{},
		flarc.WithSubcommand("watch", watch),
		flarc.WithSubcommand("show", show),
		flarc.WithSubcommand("download", download),
		flarc.WithSubcommand("list", list),
	)
}
