package profiles_test

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	prof "github.com/glycoshape/glyco/cmd/glyco/config/profiles"
	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/config"
	"github.com/glycoshape/glyco/pkg/utils/try"
)

const fakePEM = `-----BEGIN CERTIFICATE-----
AAAA
-----END CERTIFICATE-----
`

func TestUnmarshall(t *testing.T) {
	store, err := prof.Unmarshall([]byte(`
profname:
    apiRoot: "https://glyco.example.com"
    devFeatures: true
    pollInterval: 5s
    cert:
        ca: BASE64_ENCODED_CERT
    auth:
        email: someone@example.com
        accessToken: access
        refreshToken: refresh
`))
	if err != nil {
		t.Fatalf("failed to unmarshal: %+v", err)
	}
	p, ok := store["profname"]
	if !ok {
		t.Fatal("store has no profile")
	}

	expected := prof.Profile{
		ApiRoot:      "https://glyco.example.com",
		DevFeatures:  true,
		PollInterval: "5s",
		Cert:         prof.Cert{CA: "BASE64_ENCODED_CERT"},
		Auth: prof.Auth{
			Email: "someone@example.com", AccessToken: "access", RefreshToken: "refresh",
		},
	}
	if *p != expected {
		t.Errorf("profile unmatch:\n===actual===\n%+v\n===expected===\n%+v", *p, expected)
	}
}

func TestProfile_Verify(t *testing.T) {
	for name, testcase := range map[string]struct {
		prof      *prof.Profile
		toBeValid error
	}{
		"all value is valid, it is valid": {
			prof: &prof.Profile{
				ApiRoot:      "https://glyco.example.com",
				PollInterval: "1s",
				Cert:         prof.Cert{CA: base64.StdEncoding.EncodeToString([]byte(fakePEM))},
			},
		},
		"no CA and no poll interval is ok": {
			prof: &prof.Profile{ApiRoot: "https://glyco.example.com"},
		},
		"nil profile is not valid": {
			prof:      nil,
			toBeValid: prof.ErrProfileInvalid,
		},
		"when apiRoot is broken, it is not valid": {
			prof:      &prof.Profile{ApiRoot: "not url"},
			toBeValid: prof.ErrProfileInvalid,
		},
		"when poll interval is not duration, it is not valid": {
			prof:      &prof.Profile{ApiRoot: "https://glyco.example.com", PollInterval: "soon"},
			toBeValid: prof.ErrProfileInvalid,
		},
		"when poll interval is negative, it is not valid": {
			prof:      &prof.Profile{ApiRoot: "https://glyco.example.com", PollInterval: "-1s"},
			toBeValid: prof.ErrProfileInvalid,
		},
		"when CA is not base64, it is not valid": {
			prof: &prof.Profile{
				ApiRoot: "https://glyco.example.com",
				Cert:    prof.Cert{CA: "%%% not base64 %%%"},
			},
			toBeValid: prof.ErrProfileInvalid,
		},
		"when CA is not PEM, it is not valid": {
			prof: &prof.Profile{
				ApiRoot: "https://glyco.example.com",
				Cert:    prof.Cert{CA: base64.StdEncoding.EncodeToString([]byte("broken cert"))},
			},
			toBeValid: prof.ErrProfileInvalid,
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := testcase.prof.Verify()
			if testcase.toBeValid == nil {
				if err != nil {
					t.Errorf("unexpected error: %+v", err)
				}
				return
			}
			if !errors.Is(err, testcase.toBeValid) {
				t.Errorf("profile verification wrong: %v (content = %+v)", err, testcase.prof)
			}
		})
	}
}

func TestProfile_Options(t *testing.T) {
	p := &prof.Profile{
		ApiRoot:      "https://glyco.example.com",
		DevFeatures:  true,
		PollInterval: "7s",
	}
	conf := try.To(config.FromLookup(
		func(string) (string, bool) { return "", false },
		p.Options()...,
	)).OrFatal(t)

	if conf.APIBaseURL != p.ApiRoot {
		t.Errorf("api base url: %s", conf.APIBaseURL)
	}
	if !conf.DevFeaturesEnabled {
		t.Error("dev features are not enabled")
	}
	if conf.PollInterval != 7*time.Second {
		t.Errorf("poll interval: %s", conf.PollInterval)
	}
}

func TestLoadProfileStore(t *testing.T) {
	t.Run("missing file is ErrProfileStoreNotFound", func(t *testing.T) {
		_, err := prof.LoadProfileStore(filepath.Join(t.TempDir(), "profile"))
		if !errors.Is(err, prof.ErrProfileStoreNotFound) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("saved store can be loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "profile")
		store := prof.ProfileStore{
			"a": {ApiRoot: "https://a.example.com"},
			"b": {ApiRoot: "https://b.example.com", DevFeatures: true},
		}
		if err := store.Save(path); err != nil {
			t.Fatal(err)
		}
		// saved again over the existing file.
		store["c"] = &prof.Profile{ApiRoot: "https://c.example.com"}
		if err := store.Save(path); err != nil {
			t.Fatal(err)
		}

		loaded := try.To(prof.LoadProfileStore(path)).OrFatal(t)
		if len(loaded) != 3 {
			t.Fatalf("unexpected store: %+v", loaded)
		}
		for name, p := range store {
			if *loaded[name] != *p {
				t.Errorf("profile %s: (actual, expected) = (%+v, %+v)", name, loaded[name], p)
			}
		}

		if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("backup is left: %v", err)
		}

		if runtime.GOOS != "windows" {
			s := try.To(os.Stat(path)).OrFatal(t)
			if perm := s.Mode().Perm(); perm != 0o600 {
				t.Errorf("permission: %o", perm)
			}
		}
	})
}

func TestTokens(t *testing.T) {
	setup := func(t *testing.T) string {
		path := filepath.Join(t.TempDir(), "profile")
		store := prof.ProfileStore{
			"main": {
				ApiRoot: "https://glyco.example.com",
				Auth:    prof.Auth{Email: "old@example.com", AccessToken: "a0", RefreshToken: "r0"},
			},
			"other": {ApiRoot: "https://other.example.com"},
		}
		if err := store.Save(path); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("SetTokens writes through to the store", func(t *testing.T) {
		path := setup(t)
		testee := prof.Tokens(path, "main", prof.Auth{AccessToken: "a0", RefreshToken: "r0"})

		if err := testee.SetTokens(auth.Tokens{
			AccessToken: "a1",
			User:        auth.User{Email: "new@example.com"},
		}); err != nil {
			t.Fatal(err)
		}

		if a, r := testee.Tokens(); a != "a1" || r != "r0" {
			t.Errorf("tokens in memory: (%s, %s)", a, r)
		}

		loaded := try.To(prof.LoadProfileStore(path)).OrFatal(t)
		expected := prof.Auth{Email: "new@example.com", AccessToken: "a1", RefreshToken: "r0"}
		if loaded["main"].Auth != expected {
			t.Errorf("stored auth: (actual, expected) = (%+v, %+v)", loaded["main"].Auth, expected)
		}
		if loaded["other"].ApiRoot != "https://other.example.com" {
			t.Errorf("other profile is broken: %+v", loaded["other"])
		}
	})

	t.Run("Clear removes tokens from the store", func(t *testing.T) {
		path := setup(t)
		testee := prof.Tokens(path, "main", prof.Auth{AccessToken: "a0", RefreshToken: "r0"})

		if err := testee.Clear(); err != nil {
			t.Fatal(err)
		}
		if a, r := testee.Tokens(); a != "" || r != "" {
			t.Errorf("tokens in memory: (%s, %s)", a, r)
		}
		loaded := try.To(prof.LoadProfileStore(path)).OrFatal(t)
		if loaded["main"].Auth.SignedIn() {
			t.Errorf("stored auth is left: %+v", loaded["main"].Auth)
		}
	})

	t.Run("unknown profile cannot be written", func(t *testing.T) {
		path := setup(t)
		testee := prof.Tokens(path, "missing", prof.Auth{})
		if err := testee.SetTokens(auth.Tokens{AccessToken: "a1"}); err == nil {
			t.Error("no error")
		}
		if a, _ := testee.Tokens(); a != "" {
			t.Errorf("tokens are updated: %s", a)
		}
	})
}
