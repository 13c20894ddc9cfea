package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	subauth "github.com/glycoshape/glyco/cmd/glyco/subcommands/auth"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	subglycan "github.com/glycoshape/glyco/cmd/glyco/subcommands/glycan"
	subinit "github.com/glycoshape/glyco/cmd/glyco/subcommands/init"
	subjob "github.com/glycoshape/glyco/cmd/glyco/subcommands/job"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/logger"
	subreglyco "github.com/glycoshape/glyco/cmd/glyco/subcommands/reglyco"
	subtool "github.com/glycoshape/glyco/cmd/glyco/subcommands/tool"
	subver "github.com/glycoshape/glyco/cmd/glyco/subcommands/version"
	"github.com/glycoshape/glyco/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Something went wrong: %v\n", r)
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	login := try.To(subauth.NewLogin()).OrFatal(logger)
	logout := try.To(subauth.NewLogout()).OrFatal(logger)
	register := try.To(subauth.NewRegister()).OrFatal(logger)
	reglyco := try.To(subreglyco.New()).OrFatal(logger)
	job := try.To(subjob.New()).OrFatal(logger)
	tool := try.To(subtool.New()).OrFatal(logger)
	glycan := try.To(subglycan.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	glyco := try.To(
		flarc.NewCommandGroup(
			"GlycoShape Commandline interface",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("login", login),
			flarc.WithSubcommand("logout", logout),
			flarc.WithSubcommand("register", register),
			flarc.WithSubcommand("reglyco", reglyco),
			flarc.WithSubcommand("job", job),
			flarc.WithSubcommand("tool", tool),
			flarc.WithSubcommand("glycan", glycan),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	code := flarc.Run(ctx, glyco, flarc.WithHelp(true))
	cancel()
	os.Exit(code)
}
