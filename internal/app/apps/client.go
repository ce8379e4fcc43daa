package apps

import (
	"context"
	"math/rand"

	"trivia/internal"
	"trivia/internal/pkg/client"
	"trivia/internal/pkg/question"
	"trivia/internal/pkg/validate"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ClientAppCfg configures a ClientApp.
type ClientAppCfg interface {
	ApplyClientApp(*ClientApp) error
}

// ClientApp is the demo trivia client application: it logs in, answers a few
// questions at random and reports the resulting score.
type ClientApp struct {
	Port   uint16 `validate:"required"`
	Rounds int
}

// NewClientApp creates a new ClientApp.
func NewClientApp(cfgs ...ClientAppCfg) (*ClientApp, error) {
	app := &ClientApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyClientApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ClientApp cfg failed")
		}
	}
	if app.Port == 0 {
		app.Port = uint16(internal.Port)
	}
	if app.Rounds == 0 {
		app.Rounds = internal.ClientRounds
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ClientApp failed")
	}
	return app, nil
}

// Run plays one automated game. args holds the command name followed by an
// optional username and password; the default test account is used when they
// are omitted.
func (app *ClientApp) Run(ctx context.Context, args []string) error {
	username, password := "test", "test"
	if len(args) > 2 {
		username, password = args[1], args[2]
	}

	c, err := client.NewClient(client.WithServerPort(app.Port))
	if err != nil {
		return errors.Wrap(err, "create client failed")
	}
	if err := c.Connect(); err != nil {
		return errors.Wrap(err, "connect client failed")
	}
	defer c.Close()

	if err := c.Login(username, password); err != nil {
		return errors.Wrap(err, "login failed")
	}

	for i := 0; i < app.Rounds; i++ {
		q, err := c.GetQuestion()
		if errors.Is(err, client.ErrNoMoreQuestions) {
			logger.Info("question bank exhausted")
			break
		}
		if err != nil {
			return errors.Wrap(err, "get question failed")
		}
		choice := rand.Intn(question.NumChoices) // nolint: gosec // gameplay, not crypto
		correct, correctText, err := c.Answer(choice)
		if err != nil {
			return errors.Wrap(err, "answer failed")
		}
		logger.WithFields(logrus.Fields{
			"question": q.Text,
			"chose":    q.Choices[choice],
			"correct":  correct,
			"answer":   correctText,
		}).Info("answered question")
	}

	score, err := c.Score()
	if err != nil {
		return errors.Wrap(err, "get score failed")
	}
	logger.WithFields(logrus.Fields{
		"username": username,
		"score":    score,
	}).Info("client finished")
	return errors.Wrap(c.Logout(), "logout failed")
}
