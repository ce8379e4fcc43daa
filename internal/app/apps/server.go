package apps

import (
	"context"
	"time"

	"trivia/internal"
	"trivia/internal/pkg/account"
	"trivia/internal/pkg/question"
	"trivia/internal/pkg/server"
	"trivia/internal/pkg/validate"

	"github.com/pkg/errors"
)

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the trivia server application.
type ServerApp struct {
	Port uint16 `validate:"required"`
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if app.Port == 0 {
		app.Port = uint16(internal.Port)
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Run loads the account store and the question bank, then serves the trivia
// protocol until the context is cancelled.
func (app *ServerApp) Run(ctx context.Context, args []string) error {
	store, err := account.NewFileStore(internal.AccountsFile)
	if err != nil {
		return errors.Wrap(err, "load account store failed")
	}

	var questions []question.Question
	if internal.QuestionsFile != "" {
		questions, err = question.LoadFile(internal.QuestionsFile)
	} else {
		questions, err = question.Fetch(ctx, internal.TriviaURL, internal.TriviaAmount)
	}
	if err != nil {
		return errors.Wrap(err, "load questions failed")
	}
	bank, err := question.NewBank(questions)
	if err != nil {
		return errors.Wrap(err, "build question bank failed")
	}

	idleTimeout := server.DefaultIdleTimeout
	if internal.IdleTimeoutMS > 0 {
		idleTimeout = time.Duration(internal.IdleTimeoutMS) * time.Millisecond
	}
	srv, err := server.NewServer(
		server.WithPort(app.Port),
		server.WithQuestionBank(bank),
		server.WithAccountStore(store),
		server.WithIdleTimeout(idleTimeout),
	)
	if err != nil {
		return errors.Wrap(err, "create server failed")
	}
	return errors.Wrap(srv.ListenAndServe(ctx), "run server failed")
}
