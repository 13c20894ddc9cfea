package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glycoshape/glyco/pkg/utils"
)

const (
	// name of the profile used when no .glycoprofile is found
	DefaultProfile = "default"

	ProfileFile = ".glycoprofile"
	EnvFile     = "glycoenv"
)

type CommonFlags struct {
	Profile      string `flag:"profile" help:"profile name to use"`
	ProfileStore string `flag:"profile-store" help:"path to profile store file"`
	Env          string `flag:"env" help:"path to glycoenv (dotenv) file"`
	History      string `flag:"history" help:"path to local job history database"`
	Api          string `flag:"api" help:"base URL of the backend. overrides profile and env"`
}

type commonFlagDetection struct {
	home string
}

type CommonFlagDetectionOption func(*commonFlagDetection) *commonFlagDetection

func WithHome(home string) CommonFlagDetectionOption {
	return func(opt *commonFlagDetection) *commonFlagDetection {
		opt.home = home
		return opt
	}
}

// Flags detects default values of CommonFlags.
//
// It walks up from the directory from, looking for .glycoprofile (its first
// line is the profile name) and glycoenv. The nearest ones win.
func Flags(from string, opt ...CommonFlagDetectionOption) (CommonFlags, error) {
	detparam := commonFlagDetection{}
	for _, o := range opt {
		detparam = *o(&detparam)
	}

	home := detparam.home
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	if abs, err := filepath.Abs(from); err == nil {
		from = abs
	}

	profile := DefaultProfile
	if found, err := utils.SearchFileUpward(from, ProfileFile); err == nil {
		content, err := os.ReadFile(found)
		if err != nil {
			return CommonFlags{}, err
		}
		if name := strings.TrimSpace(strings.SplitN(string(content), "\n", 2)[0]); name != "" {
			profile = name
		}
	}

	env := filepath.Join(from, EnvFile)
	if found, err := utils.SearchFileUpward(from, EnvFile); err == nil {
		env = found
	}

	return CommonFlags{
		Profile:      profile,
		ProfileStore: filepath.Join(home, ".glyco", "profile"),
		Env:          env,
		History:      filepath.Join(home, ".glyco", "history.db"),
	}, nil
}
