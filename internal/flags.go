// Package internal holds process-wide configuration shared by the apps.
// Every setting is a CLI flag bound to a TRIVIA_* environment variable;
// ValidateEnv snapshots and validates the resolved values once at startup.
package internal

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag describes one configuration flag and its environment binding.
type Flag struct {
	Name    string
	Env     string
	Default any
	Usage   string
}

// Flag definitions.
var (
	EnvFlag = Flag{
		Name:    "env",
		Env:     "TRIVIA_ENV",
		Default: "dev",
		Usage:   "deployment environment (dev|prod)",
	}
	LogLevelFlag = Flag{
		Name:    "log-level",
		Env:     "TRIVIA_LOG_LEVEL",
		Default: "info",
		Usage:   "log level (trace|debug|info|warn|error)",
	}
	PortFlag = Flag{
		Name:    "port",
		Env:     "TRIVIA_PORT",
		Default: 5678,
		Usage:   "TCP port the server listens on and the client dials",
	}
	IdleTimeoutMSFlag = Flag{
		Name:    "idle-timeout-ms",
		Env:     "TRIVIA_IDLE_TIMEOUT_MS",
		Default: 300000,
		Usage:   "idle connection timeout in milliseconds",
	}
	AccountsFileFlag = Flag{
		Name:    "accounts-file",
		Env:     "TRIVIA_ACCOUNTS_FILE",
		Default: "accounts.toml",
		Usage:   "path of the TOML account records file",
	}
	QuestionsFileFlag = Flag{
		Name:    "questions-file",
		Env:     "TRIVIA_QUESTIONS_FILE",
		Default: "",
		Usage:   "CSV questions file; when empty, questions are fetched from the trivia API",
	}
	TriviaURLFlag = Flag{
		Name:    "trivia-url",
		Env:     "TRIVIA_URL",
		Default: "https://opentdb.com/api.php",
		Usage:   "Open Trivia DB compatible endpoint",
	}
	TriviaAmountFlag = Flag{
		Name:    "trivia-amount",
		Env:     "TRIVIA_AMOUNT",
		Default: 50,
		Usage:   "number of questions to fetch from the trivia API",
	}
	ClientRoundsFlag = Flag{
		Name:    "rounds",
		Env:     "TRIVIA_CLIENT_ROUNDS",
		Default: 5,
		Usage:   "number of questions the demo client plays",
	}
)

// RegisterCommandFlags registers the given flags on the command and binds
// them to their environment variables.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	for _, f := range flags {
		switch def := f.Default.(type) {
		case string:
			cmd.PersistentFlags().String(f.Name, def, f.Usage)
		case int:
			cmd.PersistentFlags().Int(f.Name, def, f.Usage)
		default:
			return errors.Errorf("unsupported default type %T for flag %s", f.Default, f.Name)
		}
		if err := viper.BindPFlag(f.Name, cmd.PersistentFlags().Lookup(f.Name)); err != nil {
			return errors.Wrapf(err, "bind flag %s failed", f.Name)
		}
		if err := viper.BindEnv(f.Name, f.Env); err != nil {
			return errors.Wrapf(err, "bind env %s failed", f.Env)
		}
	}
	return nil
}
