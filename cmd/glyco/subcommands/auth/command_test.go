package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	prof "github.com/glycoshape/glyco/cmd/glyco/config/profiles"
	subauth "github.com/glycoshape/glyco/cmd/glyco/subcommands/auth"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/commandline"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/logger"
	"github.com/glycoshape/glyco/internal/testutils/fakeglyco"
	"github.com/glycoshape/glyco/pkg/config"
	"github.com/glycoshape/glyco/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func commonFlags(t *testing.T, server *fakeglyco.Server) common.CommonFlags {
	t.Helper()
	for _, k := range []string{config.EnvAPIBaseURL, config.EnvDevFeatures, config.EnvPollInterval} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	return common.CommonFlags{
		Profile:      common.DefaultProfile,
		ProfileStore: filepath.Join(dir, "profile"),
		History:      filepath.Join(dir, "history.db"),
		Api:          server.URL,
	}
}

func TestLogin(t *testing.T) {
	type when struct {
		flags subauth.LoginFlags
		stdin string
	}
	type then struct {
		usageError bool
		signedIn   bool
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			server := fakeglyco.New(t)
			server.AddUser("someone@example.com", "s3cret", "Someone")
			cf := commonFlags(t, server)

			cl, _, _ := commandline.New("glyco login", when.flags, nil)
			cl.Stdin_ = strings.NewReader(when.stdin)

			err := subauth.Login()(context.Background(), logger.Null(), cf, cl, nil)
			if then.usageError {
				if !errors.Is(err, flarc.ErrUsage) {
					t.Errorf("expected usage error: %v", err)
				}
				return
			}
			if then.signedIn != (err == nil) {
				t.Fatalf("unexpected result: %v", err)
			}

			store, lerr := prof.LoadProfileStore(cf.ProfileStore)
			if !then.signedIn {
				if lerr == nil && store[cf.Profile].Auth.SignedIn() {
					t.Errorf("tokens are saved: %+v", store[cf.Profile].Auth)
				}
				return
			}
			if lerr != nil {
				t.Fatal(lerr)
			}
			p := store[cf.Profile]
			if p.ApiRoot != server.URL {
				t.Errorf("api root: %s", p.ApiRoot)
			}
			if p.Auth.Email != "someone@example.com" || p.Auth.AccessToken == "" || p.Auth.RefreshToken == "" {
				t.Errorf("saved auth: %+v", p.Auth)
			}
		}
	}

	t.Run("password from flag signs in", theory(
		when{flags: subauth.LoginFlags{Email: "someone@example.com", Password: "s3cret"}},
		then{signedIn: true},
	))
	t.Run("password from stdin signs in", theory(
		when{flags: subauth.LoginFlags{Email: "someone@example.com"}, stdin: "s3cret\n"},
		then{signedIn: true},
	))
	t.Run("wrong password does not sign in", theory(
		when{flags: subauth.LoginFlags{Email: "someone@example.com", Password: "wrong"}},
		then{signedIn: false},
	))
	t.Run("missing email is usage error", theory(
		when{flags: subauth.LoginFlags{Password: "s3cret"}},
		then{usageError: true},
	))
	t.Run("empty password is usage error", theory(
		when{flags: subauth.LoginFlags{Email: "someone@example.com"}},
		then{usageError: true},
	))
}

func TestRegisterAndLogout(t *testing.T) {
	server := fakeglyco.New(t)
	cf := commonFlags(t, server)
	ctx := context.Background()

	{
		cl, _, _ := commandline.New("glyco register", subauth.RegisterFlags{
			Email: "new@example.com", Password: "pw", Name: "New",
		}, nil)
		if err := subauth.Register()(ctx, logger.Null(), cf, cl, nil); err != nil {
			t.Fatal(err)
		}
	}
	store := try.To(prof.LoadProfileStore(cf.ProfileStore)).OrFatal(t)
	if a := store[cf.Profile].Auth; a.Email != "new@example.com" || !a.SignedIn() {
		t.Fatalf("not signed in: %+v", a)
	}

	{
		cl, _, _ := commandline.New("glyco logout", struct{}{}, nil)
		if err := subauth.Logout()(ctx, logger.Null(), cf, cl, nil); err != nil {
			t.Fatal(err)
		}
	}
	store = try.To(prof.LoadProfileStore(cf.ProfileStore)).OrFatal(t)
	if a := store[cf.Profile].Auth; a.SignedIn() {
		t.Errorf("still signed in: %+v", a)
	}
	if store[cf.Profile].ApiRoot != server.URL {
		t.Errorf("profile is broken: %+v", store[cf.Profile])
	}

	// logout twice is fine.
	cl, _, _ := commandline.New("glyco logout", struct{}{}, nil)
	if err := subauth.Logout()(ctx, logger.Null(), cf, cl, nil); err != nil {
		t.Fatal(err)
	}
}
