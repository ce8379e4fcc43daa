package session

import (
	"path/filepath"
	"strconv"
	"testing"

	"trivia/internal/pkg/account"
	"trivia/internal/pkg/question"
	"trivia/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeRegistry implements Registry with single-login semantics.
type fakeRegistry struct {
	users map[string]uuid.UUID
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{users: make(map[string]uuid.UUID)}
}

func (r *fakeRegistry) Login(username string, id uuid.UUID) bool {
	if _, ok := r.users[username]; ok {
		return false
	}
	r.users[username] = id
	return true
}

func (r *fakeRegistry) Logout(username string, id uuid.UUID) {
	if owner, ok := r.users[username]; ok && owner == id {
		delete(r.users, username)
	}
}

func (r *fakeRegistry) Online() []string {
	online := make([]string, 0, len(r.users))
	for username := range r.users {
		online = append(online, username)
	}
	return online
}

func testBank(t *testing.T, n int) *question.Bank {
	t.Helper()
	questions := make([]question.Question, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, question.Question{
			ID:      i,
			Text:    "question " + strconv.Itoa(i),
			Choices: [4]string{"a", "b", "c", "d"},
			Correct: i % 4,
		})
	}
	bank, err := question.NewBank(questions)
	require.NoError(t, err)
	return bank
}

func testStore(t *testing.T) *account.FileStore {
	t.Helper()
	store, err := account.NewFileStore(filepath.Join(t.TempDir(), "accounts.toml"))
	require.NoError(t, err)
	return store
}

type fixture struct {
	sess     *Session
	store    *account.FileStore
	registry *fakeRegistry
}

func newFixture(t *testing.T, bank *question.Bank) *fixture {
	t.Helper()
	store := testStore(t)
	registry := newFakeRegistry()
	sess, err := NewSession(
		WithQuestionBank(bank),
		WithAccountStore(store),
		WithRegistry(registry),
		WithRandSeed(1),
	)
	require.NoError(t, err)
	return &fixture{sess: sess, store: store, registry: registry}
}

func login(t *testing.T, sess *Session, username, password string) {
	t.Helper()
	replies := sess.Handle(wire.NewMessage(wire.CmdLogin, username, password))
	require.Len(t, replies, 1)
	require.Equal(t, wire.CmdLoginOK, replies[0].Cmd)
	require.Equal(t, StateInGame, sess.State())
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")
	require.Equal(t, "test", f.sess.Username())
	require.Equal(t, []string{"test"}, f.registry.Online())
}

func TestLoginFailureBoundedRetries(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	for i := 0; i < MaxAuthFailures; i++ {
		replies := f.sess.Handle(wire.NewMessage(wire.CmdLogin, "test", "wrong"))
		require.Len(t, replies, 1)
		require.Equal(t, wire.CmdLoginFailed, replies[0].Cmd)
	}
	// third failure forces disconnect; further messages are ignored
	require.Equal(t, StateDisconnected, f.sess.State())
	require.Nil(t, f.sess.Handle(wire.NewMessage(wire.CmdLogin, "test", "test")))
}

func TestLoginRetryAfterFailure(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	replies := f.sess.Handle(wire.NewMessage(wire.CmdLogin, "test", "wrong"))
	require.Equal(t, wire.CmdLoginFailed, replies[0].Cmd)
	require.Equal(t, StateAuthenticating, f.sess.State())
	login(t, f.sess, "test", "test")
}

func TestSecondLoginForSameUsernameRefused(t *testing.T) {
	bank := testBank(t, 3)
	f := newFixture(t, bank)
	login(t, f.sess, "test", "test")

	other, err := NewSession(
		WithQuestionBank(bank),
		WithAccountStore(f.store),
		WithRegistry(f.registry),
	)
	require.NoError(t, err)
	replies := other.Handle(wire.NewMessage(wire.CmdLogin, "test", "test"))
	require.Equal(t, wire.CmdLoginFailed, replies[0].Cmd)
	require.Equal(t, StateAuthenticating, other.State())
}

func TestCommandsBeforeLoginRejected(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	replies := f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	require.Equal(t, wire.CmdError, replies[0].Cmd)
}

func TestQuestionsServedOnceUntilExhaustion(t *testing.T) {
	const n = 10
	f := newFixture(t, testBank(t, n))
	login(t, f.sess, "test", "test")

	seen := make(map[string]struct{})
	for i := 0; i < n; i++ {
		replies := f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
		require.Len(t, replies, 1)
		require.Equal(t, wire.CmdQuestion, replies[0].Cmd)
		require.Len(t, replies[0].Fields, 6)
		id := replies[0].Fields[0]
		_, dup := seen[id]
		require.False(t, dup, "question %s served twice", id)
		seen[id] = struct{}{}

		// answer so the next request is in sequence
		f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "0"))
	}
	require.Len(t, seen, n)

	replies := f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	require.Equal(t, wire.CmdNoMoreQuestions, replies[0].Cmd)
}

func TestEmptyBankImmediatelyExhausted(t *testing.T) {
	f := newFixture(t, testBank(t, 0))
	login(t, f.sess, "test", "test")
	replies := f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	require.Equal(t, wire.CmdNoMoreQuestions, replies[0].Cmd)
}

func TestCorrectAnswerScoresFivePoints(t *testing.T) {
	f := newFixture(t, testBank(t, 1))
	login(t, f.sess, "test", "test")

	replies := f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	require.Equal(t, wire.CmdQuestion, replies[0].Cmd)

	// bank of one: question 1, correct choice index 1
	replies = f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "1"))
	require.Equal(t, wire.CmdCorrect, replies[0].Cmd)
	require.Equal(t, []string{"b"}, replies[0].Fields)

	score, err := f.store.Score("test")
	require.NoError(t, err)
	require.Equal(t, PointsPerCorrectAnswer, score)
}

func TestIncorrectAnswerLeavesScoreUnchanged(t *testing.T) {
	f := newFixture(t, testBank(t, 1))
	login(t, f.sess, "test", "test")

	f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	replies := f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "0"))
	require.Equal(t, wire.CmdIncorrect, replies[0].Cmd)
	require.Equal(t, []string{"b"}, replies[0].Fields, "reply carries the correct choice text")

	score, err := f.store.Score("test")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestAnswerWithoutPendingQuestion(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")

	replies := f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "0"))
	require.Equal(t, wire.CmdError, replies[0].Cmd)

	score, err := f.store.Score("test")
	require.NoError(t, err)
	require.Zero(t, score, "out-of-sequence answer must not mutate score")
}

func TestAnswerIndexOutOfRange(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")
	f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))

	for _, bad := range []string{"-1", "4", "abc", ""} {
		replies := f.sess.Handle(wire.NewMessage(wire.CmdAnswer, bad))
		require.Equal(t, wire.CmdError, replies[0].Cmd, "answer %q", bad)
	}
	score, err := f.store.Score("test")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestAnsweredQuestionCannotBeAnsweredAgain(t *testing.T) {
	f := newFixture(t, testBank(t, 1))
	login(t, f.sess, "test", "test")
	f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))

	replies := f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "1"))
	require.Equal(t, wire.CmdCorrect, replies[0].Cmd)
	replies = f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "1"))
	require.Equal(t, wire.CmdError, replies[0].Cmd)

	score, err := f.store.Score("test")
	require.NoError(t, err)
	require.Equal(t, PointsPerCorrectAnswer, score)
}

func TestServedSetsArePerSession(t *testing.T) {
	bank := testBank(t, 1)
	f := newFixture(t, bank)
	login(t, f.sess, "test", "test")

	other, err := NewSession(
		WithQuestionBank(bank),
		WithAccountStore(f.store),
		WithRegistry(f.registry),
	)
	require.NoError(t, err)
	replies := other.Handle(wire.NewMessage(wire.CmdLogin, "yossi", "123"))
	require.Equal(t, wire.CmdLoginOK, replies[0].Cmd)

	first := f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	second := other.Handle(wire.NewMessage(wire.CmdGetQuestion))
	require.Equal(t, wire.CmdQuestion, first[0].Cmd)
	require.Equal(t, wire.CmdQuestion, second[0].Cmd)
	require.Equal(t, first[0].Fields[0], second[0].Fields[0], "both sessions get the bank's only question")
}

func TestProtocolFaultBudget(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")

	for i := 0; i < MaxProtocolFaults; i++ {
		replies := f.sess.Handle(wire.NewMessage("BOGUS"))
		require.Equal(t, wire.CmdError, replies[0].Cmd)
	}
	require.Equal(t, StateDisconnected, f.sess.State())
}

func TestMyScoreAndHighscore(t *testing.T) {
	f := newFixture(t, testBank(t, 1))
	login(t, f.sess, "test", "test")
	f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))
	f.sess.Handle(wire.NewMessage(wire.CmdAnswer, "1"))

	replies := f.sess.Handle(wire.NewMessage(wire.CmdMyScore))
	require.Equal(t, wire.CmdYourScore, replies[0].Cmd)
	require.Equal(t, []string{"5"}, replies[0].Fields)

	replies = f.sess.Handle(wire.NewMessage(wire.CmdHighscore))
	require.Equal(t, wire.CmdAllScore, replies[0].Cmd)
	require.Contains(t, replies[0].Fields[0], "master: 200")
	require.Contains(t, replies[0].Fields[0], "test: 5")
}

func TestLoggedListsOnlineUsers(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")

	replies := f.sess.Handle(wire.NewMessage(wire.CmdLogged))
	require.Equal(t, wire.CmdLoggedAnswer, replies[0].Cmd)
	require.Equal(t, []string{"test"}, replies[0].Fields)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")

	require.Nil(t, f.sess.Handle(wire.NewMessage(wire.CmdLogout)))
	require.Equal(t, StateDisconnected, f.sess.State())

	f.sess.Close()
	require.Empty(t, f.registry.Online())
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")
	f.sess.Close()
	f.sess.Close()
	require.Empty(t, f.registry.Online())
	require.Equal(t, StateDisconnected, f.sess.State())
}

func TestDisconnectMidQuestionFlushesNoPhantomScore(t *testing.T) {
	f := newFixture(t, testBank(t, 3))
	login(t, f.sess, "test", "test")
	f.sess.Handle(wire.NewMessage(wire.CmdGetQuestion))

	// connection drops before the answer arrives
	f.sess.Close()

	score, err := f.store.Score("test")
	require.NoError(t, err)
	require.Zero(t, score)
}
