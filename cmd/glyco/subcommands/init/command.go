package init

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	prof "github.com/glycoshape/glyco/cmd/glyco/config/profiles"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

const ARG_PROFILE_FILE = "PROFILE_FILE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Register a profile into your profile store.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_PROFILE_FILE, Required: true,
				Help: "filepath to a profile file, which tells where the backend is.",
			},
		},
		common.NewTaskWithCommonFlag(Task(".")),
		flarc.WithDescription(`
Register a new profile into your profile store.

A profile file is a yaml like:

    apiRoot: https://glycoshape.org
    devFeatures: false
    pollInterval: 3s

"{{ .Command }}" registers the given profile with the name given by
"--profile" (default: "default"), and writes the name into .glycoprofile
in the current directory. Commands run under the directory use the profile.
`),
	)
}

// Task registers a profile, and writes .glycoprofile into workdir.
func Task(workdir string) common.TaskWithCommonFlag[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[struct{}],
		params []any,
	) error {
		profFile := cl.Args()[ARG_PROFILE_FILE][0]

		store, err := prof.LoadProfileStore(cf.ProfileStore)
		if errors.Is(err, prof.ErrProfileStoreNotFound) {
			store = prof.ProfileStore{}
		} else if err != nil {
			return fmt.Errorf("failed to load profile store (%s): %w", cf.ProfileStore, err)
		}

		newProf := new(prof.Profile)
		{
			content, err := os.ReadFile(profFile)
			if err != nil {
				return fmt.Errorf("failed to read profile file (%s): %w", profFile, err)
			}
			if err := yaml.Unmarshal(content, newProf); err != nil {
				return fmt.Errorf("failed to parse profile file (%s): %w", profFile, err)
			}
		}
		if err := newProf.Verify(); err != nil {
			return fmt.Errorf("%s: %w", profFile, err)
		}

		// the session belongs to the backend. keep it only when it is the same.
		if old, ok := store[cf.Profile]; ok && old.ApiRoot == newProf.ApiRoot && !newProf.Auth.SignedIn() {
			newProf.Auth = old.Auth
		}

		store[cf.Profile] = newProf
		if err := store.Save(cf.ProfileStore); err != nil {
			return fmt.Errorf("failed to save profile store (%s): %w", cf.ProfileStore, err)
		}
		logger.Printf("profile %s is saved to %s", cf.Profile, cf.ProfileStore)

		marker := filepath.Join(workdir, common.ProfileFile)
		if err := os.WriteFile(marker, []byte(cf.Profile+"\n"), os.FileMode(0o600)); err != nil {
			return fmt.Errorf("failed to write %s: %w", marker, err)
		}
		return nil
	}
}
