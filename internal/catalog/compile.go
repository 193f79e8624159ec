package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kingrea/vimcat/internal/provision"
	"github.com/kingrea/vimcat/internal/step"
)

// Env supplies the values substituted into catalog placeholders and the
// executor used for commands.
type Env struct {
	Home              string
	ConfigsDir        string
	ConfigsRepository string
	Executor          provision.Executor
}

// Filter narrows which catalog steps are compiled.
type Filter struct {
	// Only keeps just these step names when non-empty.
	Only []string
	// Skip drops these step names.
	Skip []string
}

func (f Filter) keep(name string) bool {
	if contains(f.Skip, name) {
		return false
	}
	return len(f.Only) == 0 || contains(f.Only, name)
}

// Compile turns the definition into an ordered step registry.
func Compile(def Definition, env Env, filter Filter) (*step.Registry, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if env.Executor == nil {
		env.Executor = provision.Shell{}
	}
	for _, name := range filter.Only {
		if !contains(def.Names(), name) {
			return nil, fmt.Errorf("catalog: unknown step %q", name)
		}
	}
	steps := make([]step.Step, 0, len(def.Steps))
	for _, sd := range def.Steps {
		if !filter.keep(sd.Name) {
			continue
		}
		s := step.New(sd.Name, operation(sd, env)).WithOptions(step.Options{
			Attempts: sd.Attempts,
			Backoff:  sd.Backoff,
		})
		steps = append(steps, s)
	}
	return step.NewRegistry(steps...)
}

func operation(sd StepDef, env Env) step.Operation {
	return func(ctx context.Context) error {
		if sd.Check != "" && provision.Installed(ctx, env.Executor, env.expand(sd.Check)) {
			slog.Debug("step already satisfied", "step", sd.Name)
			return nil
		}
		for _, action := range sd.Actions {
			if err := env.apply(ctx, action); err != nil {
				return err
			}
		}
		return nil
	}
}

func (env Env) apply(ctx context.Context, a Action) error {
	switch a.Kind() {
	case "run":
		return provision.RunLine(ctx, env.Executor, env.expand(a.Run))
	case "clone":
		return provision.Clone(ctx, env.Executor, env.expand(a.Clone.Repository), env.expand(a.Clone.Dest), a.Clone.Depth)
	case "copy":
		to := env.expand(a.Copy.To)
		if a.Copy.CreateDest {
			if err := provision.EnsureDir(to); err != nil {
				return err
			}
		}
		return provision.CopyFile(env.expand(a.Copy.From), to, a.Copy.File)
	case "remove":
		return provision.RemoveAll(filepath.Clean(env.expand(a.Remove)))
	case "mkdir":
		return provision.EnsureDir(env.expand(a.Mkdir))
	default:
		return fmt.Errorf("catalog: unsupported action")
	}
}

// expand substitutes $HOME, $CONFIGS and $CONFIGS_REPO. Other variables are
// left untouched for the shell.
func (env Env) expand(s string) string {
	return os.Expand(s, func(name string) string {
		switch name {
		case "HOME":
			return env.Home
		case "CONFIGS":
			return env.ConfigsDir
		case "CONFIGS_REPO":
			return env.ConfigsRepository
		default:
			return "${" + name + "}"
		}
	})
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
