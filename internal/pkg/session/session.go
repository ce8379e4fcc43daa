// Package session implements the per-connection state machine that drives a
// single player through login, question distribution, answer checking and
// scoring. A Session is exclusively owned by the goroutine serving its
// connection; the only shared state it touches is the account store and the
// live registry, both of which serialize access internally.
package session

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"trivia/internal/pkg/account"
	"trivia/internal/pkg/question"
	"trivia/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Gameplay policy constants.
const (
	// PointsPerCorrectAnswer is the score reward for a correct answer.
	PointsPerCorrectAnswer = 5
	// MaxAuthFailures is the number of failed logins before the session is
	// forcibly disconnected.
	MaxAuthFailures = 3
	// MaxProtocolFaults is the number of malformed or out-of-sequence
	// messages tolerated before the session is forcibly disconnected.
	MaxProtocolFaults = 3
)

// State is the connection lifecycle state of a session.
type State int

// Session states. Disconnected is terminal.
const (
	StateConnected State = iota
	StateAuthenticating
	StateInGame
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateInGame:
		return "in_game"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Registry tracks which usernames have a live session. Implemented by the
// server; sessions use it to enforce a single active login per username and
// to answer the LOGGED command.
type Registry interface {
	Login(username string, id uuid.UUID) bool
	Logout(username string, id uuid.UUID)
	Online() []string
}

// Session is the mutable per-connection game state.
type Session struct {
	id       uuid.UUID
	bank     *question.Bank
	accounts account.Store
	registry Registry
	rng      *rand.Rand

	state        State
	username     string
	served       map[int]struct{}
	pendingID    int
	hasPending   bool
	delta        int
	authFailures int
	faults       int

	closeOnce sync.Once
}

// Cfg configures a Session.
type Cfg func(*Session) error

// WithQuestionBank sets the question bank.
func WithQuestionBank(bank *question.Bank) Cfg {
	return func(s *Session) error {
		s.bank = bank
		return nil
	}
}

// WithAccountStore sets the account store.
func WithAccountStore(store account.Store) Cfg {
	return func(s *Session) error {
		s.accounts = store
		return nil
	}
}

// WithRegistry sets the live-session registry.
func WithRegistry(registry Registry) Cfg {
	return func(s *Session) error {
		s.registry = registry
		return nil
	}
}

// WithRandSeed seeds the question selection. Tests use this to make the
// uniform-random pick deterministic.
func WithRandSeed(seed int64) Cfg {
	return func(s *Session) error {
		s.rng = rand.New(rand.NewSource(seed))
		return nil
	}
}

// NewSession creates a new Session with the given configuration.
func NewSession(cfgs ...Cfg) (*Session, error) {
	sess := &Session{
		id:     uuid.New(),
		state:  StateConnected,
		served: make(map[int]struct{}),
	}
	for _, cfg := range cfgs {
		if err := cfg(sess); err != nil {
			return nil, errors.Wrap(err, "apply Session cfg failed")
		}
	}
	if sess.bank == nil {
		return nil, errors.New("session requires a question bank")
	}
	if sess.accounts == nil {
		return nil, errors.New("session requires an account store")
	}
	if sess.registry == nil {
		return nil, errors.New("session requires a registry")
	}
	if sess.rng == nil {
		sess.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return sess, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Username returns the authenticated username, or "" before login.
func (s *Session) Username() string {
	return s.username
}

// Handle advances the state machine with one decoded message and returns the
// replies to write back. An empty reply slice is valid (LOGOUT has none).
// After Handle returns, the caller must check State: Disconnected means the
// connection should be torn down once the replies are flushed.
func (s *Session) Handle(msg wire.Message) []wire.Message {
	switch s.state {
	case StateConnected, StateAuthenticating:
		return s.handleUnauthenticated(msg)
	case StateInGame:
		return s.handleInGame(msg)
	}
	return nil
}

func (s *Session) handleUnauthenticated(msg wire.Message) []wire.Message {
	switch msg.Cmd {
	case wire.CmdLogin:
		s.state = StateAuthenticating
		if len(msg.Fields) != 2 {
			return s.Fault("invalid login data")
		}
		return s.login(msg.Fields[0], msg.Fields[1])
	case wire.CmdLogout:
		s.state = StateDisconnected
		return nil
	default:
		return s.Fault("you must login first")
	}
}

func (s *Session) login(username, password string) []wire.Message {
	if !s.accounts.Authenticate(username, password) {
		reason := "incorrect password"
		if !s.accounts.Exists(username) {
			reason = "user does not exist"
		}
		return s.authFailure(username, reason)
	}
	if !s.registry.Login(username, s.id) {
		return s.authFailure(username, "user already logged in")
	}
	s.username = username
	s.state = StateInGame
	logger.WithFields(logrus.Fields{
		"session":  s.id.String(),
		"username": username,
	}).Info("user logged in")
	return []wire.Message{wire.NewMessage(wire.CmdLoginOK, username)}
}

func (s *Session) authFailure(username, reason string) []wire.Message {
	s.authFailures++
	fields := logrus.Fields{
		"session":  s.id.String(),
		"username": username,
		"failures": s.authFailures,
	}
	if s.authFailures >= MaxAuthFailures {
		s.state = StateDisconnected
		logger.WithFields(fields).Warning("too many failed logins, disconnecting")
	} else {
		logger.WithFields(fields).Info("login failed")
	}
	return []wire.Message{wire.NewMessage(wire.CmdLoginFailed, reason)}
}

func (s *Session) handleInGame(msg wire.Message) []wire.Message {
	switch msg.Cmd {
	case wire.CmdGetQuestion:
		if len(msg.Fields) != 0 {
			return s.Fault("unexpected fields")
		}
		return s.nextQuestion()
	case wire.CmdAnswer:
		if len(msg.Fields) != 1 {
			return s.Fault("invalid answer format")
		}
		return s.answer(msg.Fields[0])
	case wire.CmdMyScore:
		score, err := s.accounts.Score(s.username)
		if err != nil {
			return s.Fault("score unavailable")
		}
		return []wire.Message{wire.NewMessage(wire.CmdYourScore, strconv.Itoa(score))}
	case wire.CmdHighscore:
		return []wire.Message{wire.NewMessage(wire.CmdAllScore, s.highscores())}
	case wire.CmdLogged:
		online := s.registry.Online()
		sort.Strings(online)
		return []wire.Message{wire.NewMessage(wire.CmdLoggedAnswer, strings.Join(online, ", "))}
	case wire.CmdLogin:
		return s.Fault("already logged in")
	case wire.CmdLogout:
		s.state = StateDisconnected
		return nil
	default:
		return s.Fault("unsupported command")
	}
}

// nextQuestion picks one unserved question uniformly at random, records it as
// served and pending, and builds the QUESTION reply. An exhausted bank is not
// an error: it is the NO_MORE_QUESTIONS terminal game state.
func (s *Session) nextQuestion() []wire.Message {
	unserved := make([]int, 0, s.bank.Len()-len(s.served))
	for _, id := range s.bank.IDs() {
		if _, ok := s.served[id]; !ok {
			unserved = append(unserved, id)
		}
	}
	if len(unserved) == 0 {
		return []wire.Message{wire.NewMessage(wire.CmdNoMoreQuestions)}
	}
	id := unserved[s.rng.Intn(len(unserved))]
	q, err := s.bank.Get(id)
	if err != nil {
		// the bank never changes after load, so this cannot happen
		logger.WithField("session", s.id.String()).Error(errors.Wrap(err, "get question failed"))
		return s.Fault("question unavailable")
	}
	s.served[id] = struct{}{}
	s.pendingID = id
	s.hasPending = true
	return []wire.Message{wire.NewMessage(wire.CmdQuestion,
		strconv.Itoa(q.ID), q.Text, q.Choices[0], q.Choices[1], q.Choices[2], q.Choices[3])}
}

// answer validates and scores an ANSWER for the pending question.
func (s *Session) answer(field string) []wire.Message {
	if !s.hasPending {
		return s.Fault("no question pending")
	}
	choice, err := strconv.Atoi(field)
	if err != nil || choice < 0 || choice >= question.NumChoices {
		return s.Fault("answer index out of range")
	}
	id := s.pendingID
	s.hasPending = false

	correct, err := s.bank.Check(id, choice)
	if err != nil {
		return s.Fault("question unavailable")
	}
	correctText, err := s.bank.CorrectChoice(id)
	if err != nil {
		return s.Fault("question unavailable")
	}
	if !correct {
		return []wire.Message{wire.NewMessage(wire.CmdIncorrect, correctText)}
	}
	s.delta += PointsPerCorrectAnswer
	total, err := s.accounts.AddScore(s.username, PointsPerCorrectAnswer)
	if err != nil {
		logger.WithField("session", s.id.String()).Error(errors.Wrap(err, "add score failed"))
		return s.Fault("score update failed")
	}
	logger.WithFields(logrus.Fields{
		"session":  s.id.String(),
		"username": s.username,
		"question": id,
		"total":    total,
	}).Debug("correct answer")
	return []wire.Message{wire.NewMessage(wire.CmdCorrect, correctText)}
}

func (s *Session) highscores() string {
	entries := s.accounts.Highscores()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Username+": "+strconv.Itoa(e.Score))
	}
	return strings.Join(lines, "\n")
}

// Fault records a protocol violation and returns the ERROR reply. Once the
// fault budget is spent the session is driven to Disconnected, bounding what
// a misbehaving client can cost. The server also calls this for frames that
// fail to decode.
func (s *Session) Fault(reason string) []wire.Message {
	s.faults++
	if s.faults >= MaxProtocolFaults {
		s.state = StateDisconnected
		logger.WithFields(logrus.Fields{
			"session": s.id.String(),
			"faults":  s.faults,
		}).Warning("too many protocol faults, disconnecting")
	}
	return []wire.Message{wire.NewMessage(wire.CmdError, reason)}
}

// Close tears the session down: the registry slot is released and the account
// store is flushed. Safe to call more than once; only the first call acts.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state = StateDisconnected
		if s.username != "" {
			s.registry.Logout(s.username, s.id)
			if err := s.accounts.Persist(); err != nil {
				logger.WithField("session", s.id.String()).Error(errors.Wrap(err, "persist accounts failed"))
			}
		}
		logger.WithFields(logrus.Fields{
			"session":  s.id.String(),
			"username": s.username,
			"served":   len(s.served),
			"delta":    s.delta,
		}).Info("session closed")
	})
}
