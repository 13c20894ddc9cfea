package profiles

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/glycoshape/glyco/pkg/config"
	"github.com/hectane/go-acl"
	"gopkg.in/yaml.v3"
)

var (
	ErrProfileStoreNotFound = errors.New("profile store is not found")
	ErrProfileInvalid       = errors.New("profile is not valid")
)

// ProfileStore is a set of named Profiles, saved as a yaml file.
type ProfileStore map[string]*Profile

// Profile tells how to reach a GlycoShape backend and who you are there.
type Profile struct {
	// base URL of the backend, like "https://glycoshape.org"
	ApiRoot string `yaml:"apiRoot"`

	// unlock tools for developers
	DevFeatures bool `yaml:"devFeatures,omitempty"`

	// interval between progress polls, in time.ParseDuration format
	PollInterval string `yaml:"pollInterval,omitempty"`

	Cert Cert `yaml:"cert,omitempty"`

	// session of the signed-in user. Written by "glyco login".
	Auth Auth `yaml:"auth,omitempty"`
}

type Cert struct {
	// base64 encoded CA certificate in PEM
	CA string `yaml:"ca,omitempty"`
}

type Auth struct {
	Email        string `yaml:"email,omitempty"`
	AccessToken  string `yaml:"accessToken,omitempty"`
	RefreshToken string `yaml:"refreshToken,omitempty"`
}

func (a Auth) SignedIn() bool {
	return a.AccessToken != "" || a.RefreshToken != ""
}

// Verify checks p can be used.
func (p *Profile) Verify() error {
	if p == nil {
		return fmt.Errorf("%w: profile is empty", ErrProfileInvalid)
	}
	if u, err := url.Parse(p.ApiRoot); err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: apiRoot should be absolute URL: %s", ErrProfileInvalid, p.ApiRoot)
	}
	if p.PollInterval != "" {
		d, err := time.ParseDuration(p.PollInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: pollInterval should be positive duration: %s", ErrProfileInvalid, p.PollInterval)
		}
	}
	if p.Cert.CA != "" {
		b, err := base64.StdEncoding.DecodeString(p.Cert.CA)
		if err != nil {
			return fmt.Errorf("%w: cert.ca is not base64 encoded: %w", ErrProfileInvalid, err)
		}
		if block, _ := pem.Decode(b); block == nil {
			return fmt.Errorf("%w: cert.ca is not PEM", ErrProfileInvalid)
		}
	}
	return nil
}

// Options converts p into config options.
//
// They are applied over what config.Load found in env.
func (p *Profile) Options() []config.Option {
	opts := []config.Option{config.WithAPIBaseURL(p.ApiRoot)}
	if p.DevFeatures {
		opts = append(opts, config.WithDevFeatures(true))
	}
	if d, err := time.ParseDuration(p.PollInterval); err == nil {
		opts = append(opts, config.WithPollInterval(d))
	}
	return opts
}

// LoadProfileStore reads a ProfileStore from path.
//
// When the file is missing, the error wraps ErrProfileStoreNotFound.
func LoadProfileStore(path string) (ProfileStore, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrProfileStoreNotFound, err)
		}
		return nil, err
	}
	return Unmarshall(content)
}

func Unmarshall(content []byte) (ProfileStore, error) {
	store := ProfileStore{}
	if err := yaml.Unmarshal(content, &store); err != nil {
		return nil, err
	}
	return store, nil
}

// Save writes the store into path.
//
// The file is readable only by the owner, since it can hold tokens.
// When path exists, it is kept as "path.bak" until the new content is written.
func (ps ProfileStore) Save(path string) error {
	content, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0o700)); err != nil {
		return err
	}

	backup := ""
	if _, err := os.Stat(path); err == nil {
		backup = path + ".bak"
		if err := os.Rename(path, backup); err != nil {
			return err
		}
	}

	if err := writePrivate(path, content); err != nil {
		if backup != "" {
			if rerr := os.Rename(backup, path); rerr != nil {
				return errors.Join(err, rerr)
			}
		}
		return err
	}

	if backup != "" {
		os.Remove(backup)
	}
	return nil
}

func writePrivate(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(0o600))
	if err != nil {
		return err
	}
	defer f.Close()

	// os.OpenFile ignores mode on windows. acl.Chmod sets ACL there.
	if err := acl.Chmod(path, os.FileMode(0o600)); err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		return err
	}
	return f.Sync()
}
