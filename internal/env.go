package internal

import (
	"trivia/internal/pkg/validate"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Resolved configuration, populated by ValidateEnv.
var (
	Env           string
	LogLevel      string
	Port          int
	IdleTimeoutMS int
	AccountsFile  string
	QuestionsFile string
	TriviaURL     string
	TriviaAmount  int
	ClientRounds  int
)

type envConfig struct {
	Env           string `validate:"required,oneof=dev prod"`
	LogLevel      string `validate:"required,oneof=trace debug info warn error"`
	Port          int    `validate:"required,gt=0,lte=65535"`
	IdleTimeoutMS int    `validate:"gt=0"`
	AccountsFile  string `validate:"required"`
	QuestionsFile string
	TriviaURL     string `validate:"required,url"`
	TriviaAmount  int    `validate:"gt=0,lte=50"`
	ClientRounds  int    `validate:"gte=0"`
}

// ValidateEnv resolves all settings from flags and environment variables,
// validates them, and publishes them as package variables.
func ValidateEnv() error {
	cfg := envConfig{
		Env:           viper.GetString(EnvFlag.Name),
		LogLevel:      viper.GetString(LogLevelFlag.Name),
		Port:          viper.GetInt(PortFlag.Name),
		IdleTimeoutMS: viper.GetInt(IdleTimeoutMSFlag.Name),
		AccountsFile:  viper.GetString(AccountsFileFlag.Name),
		QuestionsFile: viper.GetString(QuestionsFileFlag.Name),
		TriviaURL:     viper.GetString(TriviaURLFlag.Name),
		TriviaAmount:  viper.GetInt(TriviaAmountFlag.Name),
		ClientRounds:  viper.GetInt(ClientRoundsFlag.Name),
	}
	if err := validate.Validate().Struct(cfg); err != nil {
		return errors.Wrap(err, "validate env failed")
	}
	Env = cfg.Env
	LogLevel = cfg.LogLevel
	Port = cfg.Port
	IdleTimeoutMS = cfg.IdleTimeoutMS
	AccountsFile = cfg.AccountsFile
	QuestionsFile = cfg.QuestionsFile
	TriviaURL = cfg.TriviaURL
	TriviaAmount = cfg.TriviaAmount
	ClientRounds = cfg.ClientRounds
	return nil
}
