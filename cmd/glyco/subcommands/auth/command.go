package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	prof "github.com/glycoshape/glyco/cmd/glyco/config/profiles"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/youta-t/flarc"
	"golang.org/x/term"
)

type LoginFlags struct {
	Email    string `flag:"email" alias:"e" help:"email address of your account"`
	Password string `flag:"password" help:"password. When empty, it is read from stdin."`
}

type RegisterFlags struct {
	Email    string `flag:"email" alias:"e" help:"email address of your account"`
	Password string `flag:"password" help:"password. When empty, it is read from stdin."`
	Name     string `flag:"name" help:"your name"`
}

// readLine reads the first line of r, for passwords piped into the command.
//
// When r is a terminal, it prompts on stderr and reads without echo.
func readLine(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		p, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(p), nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func credentials(cl interface{ Stdin() io.Reader }, email, password string) (string, string, error) {
	if strings.TrimSpace(email) == "" {
		return "", "", fmt.Errorf("%w: --email is required", flarc.ErrUsage)
	}
	if password == "" {
		p, err := readLine(cl.Stdin())
		if err != nil {
			return "", "", err
		}
		password = p
	}
	if password == "" {
		return "", "", fmt.Errorf("%w: password is empty", flarc.ErrUsage)
	}
	return strings.TrimSpace(email), password, nil
}

func NewLogin() (flarc.Command, error) {
	return flarc.NewCommand(
		"Sign in, and save the session into the profile.",
		LoginFlags{},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Login()),
		flarc.WithDescription(`
Sign in to the backend of the profile.

When the profile is not in your profile store, it is added with the backend
given by --api (or glycoenv, or https://glycoshape.org).

Pass the password via stdin, like:

    echo "$PASSWORD" | {{ .Command }} --email you@example.com
`),
	)
}

func Login() common.TaskWithCommonFlag[LoginFlags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[LoginFlags],
		params []any,
	) error {
		flags := cl.Flags()
		email, password, err := credentials(cl, flags.Email, flags.Password)
		if err != nil {
			return err
		}

		session, err := common.EnsureProfile(cf)
		if err != nil {
			return err
		}
		client, err := session.Client()
		if err != nil {
			return err
		}

		tokens, err := client.Login(ctx, auth.LoginRequest{Email: email, Password: password})
		if err != nil {
			return err
		}
		logger.Printf("signed in as %s (profile: %s)", tokens.User.Email, session.Profile)
		return nil
	}
}

func NewRegister() (flarc.Command, error) {
	return flarc.NewCommand(
		"Create an account, and save the session into the profile.",
		RegisterFlags{},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Register()),
	)
}

func Register() common.TaskWithCommonFlag[RegisterFlags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[RegisterFlags],
		params []any,
	) error {
		flags := cl.Flags()
		email, password, err := credentials(cl, flags.Email, flags.Password)
		if err != nil {
			return err
		}

		session, err := common.EnsureProfile(cf)
		if err != nil {
			return err
		}
		client, err := session.Client()
		if err != nil {
			return err
		}

		tokens, err := client.Register(ctx, auth.RegisterRequest{
			Email: email, Password: password, Name: strings.TrimSpace(flags.Name),
		})
		if err != nil {
			return err
		}
		logger.Printf("registered and signed in as %s (profile: %s)", tokens.User.Email, session.Profile)
		return nil
	}
}

func NewLogout() (flarc.Command, error) {
	return flarc.NewCommand(
		"Forget the session saved in the profile.",
		struct{}{},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Logout()),
	)
}

func Logout() common.TaskWithCommonFlag[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[struct{}],
		params []any,
	) error {
		store, err := prof.LoadProfileStore(cf.ProfileStore)
		if errors.Is(err, prof.ErrProfileStoreNotFound) {
			logger.Printf("not signed in")
			return nil
		} else if err != nil {
			return err
		}
		p, ok := store[cf.Profile]
		if !ok || !p.Auth.SignedIn() {
			logger.Printf("not signed in")
			return nil
		}

		if err := prof.Tokens(cf.ProfileStore, cf.Profile, p.Auth).Clear(); err != nil {
			return err
		}
		logger.Printf("signed out (profile: %s)", cf.Profile)
		return nil
	}
}
