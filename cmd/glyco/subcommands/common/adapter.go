package common

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/glycoshape/glyco/cmd/glyco/config/profiles"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/logger"
	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/config"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/jobs/history"
	"github.com/glycoshape/glyco/pkg/rest"
	"github.com/youta-t/flarc"
)

type TaskWithCommonFlag[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
	params []any,
) error

func NewTaskWithCommonFlag[T any](task TaskWithCommonFlag[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		l := logger.For(cl.Stderr(), cl.Fullname())
		return report(l, task(ctx, l, commonFlag, cl, newpos))
	}
}

// report replaces boundary errors with messages for users.
//
// Details go to the logger.
func report(l *log.Logger, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, flarc.ErrUsage) {
		return err
	}
	be := new(gerr.BoundaryError)
	if !errors.As(err, &be) {
		return err
	}
	message := gerr.Report(l, err)
	if message == "" {
		return nil
	}
	return errors.New(message)
}

// Session is where a command works.
type Session struct {
	Config config.Config

	// name of the profile in use, and path to the profile store
	Profile      string
	ProfileStore string

	// nil when the profile is not in the store
	Current *profiles.Profile

	// path to the job history database
	History string
}

// OpenHistory opens the job history.
//
// History is optional. When it cannot be opened, it logs that and returns nil.
func (s Session) OpenHistory(l *log.Logger) *history.History {
	if s.History == "" {
		return nil
	}
	h, err := history.Open(s.History)
	if err != nil {
		l.Printf("job history is not available (%s): %s", s.History, err)
		return nil
	}
	return h
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	session Session,
	client rest.GlycoClient,
	cl flarc.Commandline[T],
	params []any,
) error

// LoadSession builds Session from the common flags.
//
// Config is built from defaults, then glycoenv, then the profile, then --api.
// When the profile store does not have the profile, only the default profile
// is allowed to be missing.
func LoadSession(commonFlag CommonFlags) (Session, error) {
	session := Session{
		Profile:      commonFlag.Profile,
		ProfileStore: commonFlag.ProfileStore,
		History:      commonFlag.History,
	}

	store, err := profiles.LoadProfileStore(commonFlag.ProfileStore)
	if err != nil && !errors.Is(err, profiles.ErrProfileStoreNotFound) {
		return Session{}, fmt.Errorf(
			"%w: failed to load profile store (%s)", err, commonFlag.ProfileStore,
		)
	}
	if prof, ok := store[commonFlag.Profile]; ok {
		if err := prof.Verify(); err != nil {
			return Session{}, fmt.Errorf(
				"%w: profile '%s' in %s is broken. try `glyco init` again",
				err, commonFlag.Profile, commonFlag.ProfileStore,
			)
		}
		session.Current = prof
	} else if commonFlag.Profile != DefaultProfile {
		return Session{}, fmt.Errorf(
			"profile '%s' not found in the profile store (%s). try `glyco init` first",
			commonFlag.Profile, commonFlag.ProfileStore,
		)
	}

	options := []config.Option{}
	if session.Current != nil {
		options = append(options, session.Current.Options()...)
	}
	options = append(options, config.WithAPIBaseURL(commonFlag.Api))

	dotenvs := []string{}
	if commonFlag.Env != "" {
		dotenvs = append(dotenvs, commonFlag.Env)
	}
	conf, err := config.Load(dotenvs, options...)
	if err != nil {
		return Session{}, err
	}
	session.Config = conf
	return session, nil
}

// EnsureProfile loads Session, adding the profile into the store when missing.
//
// A new profile points the backend chosen by --api or glycoenv.
func EnsureProfile(commonFlag CommonFlags) (Session, error) {
	store, err := profiles.LoadProfileStore(commonFlag.ProfileStore)
	if errors.Is(err, profiles.ErrProfileStoreNotFound) {
		store = profiles.ProfileStore{}
	} else if err != nil {
		return Session{}, fmt.Errorf(
			"%w: failed to load profile store (%s)", err, commonFlag.ProfileStore,
		)
	}

	if _, ok := store[commonFlag.Profile]; !ok {
		dotenvs := []string{}
		if commonFlag.Env != "" {
			dotenvs = append(dotenvs, commonFlag.Env)
		}
		conf, err := config.Load(dotenvs, config.WithAPIBaseURL(commonFlag.Api))
		if err != nil {
			return Session{}, err
		}
		store[commonFlag.Profile] = &profiles.Profile{ApiRoot: conf.APIRoot()}
		if err := store.Save(commonFlag.ProfileStore); err != nil {
			return Session{}, fmt.Errorf(
				"%w: failed to save profile store (%s)", err, commonFlag.ProfileStore,
			)
		}
	}
	return LoadSession(commonFlag)
}

// Client builds a client for the session.
//
// Tokens are written back into the profile store when the profile exists.
func (s Session) Client() (rest.GlycoClient, error) {
	options := []rest.Option{}
	if s.Current != nil {
		if s.Current.Cert.CA != "" {
			options = append(options, rest.WithCA(s.Current.Cert.CA))
		}
		options = append(options, rest.WithTokens(
			profiles.Tokens(s.ProfileStore, s.Profile, s.Current.Auth),
		))
	} else {
		options = append(options, rest.WithTokens(rest.NewMemoryTokens(auth.Tokens{})))
	}
	return rest.NewClient(s.Config, options...)
}

func NewTask[T any](task Task[T]) flarc.Task[T] {
	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		session, err := LoadSession(commonFlag)
		if err != nil {
			return err
		}
		client, err := session.Client()
		if err != nil {
			return fmt.Errorf(
				"%w: failed to create client. Your profile (%s in %s) can be broken",
				err, commonFlag.Profile, commonFlag.ProfileStore,
			)
		}
		return task(ctx, logger, session, client, cl, params)
	})
}
