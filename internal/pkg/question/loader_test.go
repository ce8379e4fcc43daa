package question

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.csv")
	content := `Capital of France?,Paris,Lyon,Nice,Lille,1
"2+2, roughly?",3,4,5,6,2
not enough fields,oops,1
Largest planet?,Mars,Venus,Jupiter,Saturn,9
Smallest prime?,1,2,3,4,2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	questions, err := LoadFile(path)
	require.NoError(t, err)
	// the short record and the out-of-range correct index are skipped
	require.Len(t, questions, 3)
	require.Equal(t, "Capital of France?", questions[0].Text)
	require.Equal(t, 0, questions[0].Correct)
	require.Equal(t, "2+2, roughly?", questions[1].Text)
	require.Equal(t, "2", questions[2].Choices[questions[2].Correct])
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.csv")
	require.NoError(t, os.WriteFile(path, []byte("bad line\n"), 0o600))
	_, err := LoadFile(path)
	require.ErrorIs(t, err, ErrNoQuestions)
}

const triviaFixture = `{
  "response_code": 0,
  "results": [
    {
      "question": "What does &quot;HTTP&quot; stand for?",
      "correct_answer": "HyperText Transfer Protocol",
      "incorrect_answers": ["High Tension Transfer Protocol", "Hyperlink Text Protocol", "Home Transfer Text Protocol"]
    },
    {
      "question": "Which language runs the gopher mascot?",
      "correct_answer": "Go",
      "incorrect_answers": ["Rust", "Python", "Zig"]
    }
  ]
}`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("amount"))
		require.Equal(t, "multiple", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(triviaFixture))
	}))
	defer srv.Close()

	questions, err := Fetch(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// html entities are unescaped and the correct index survives the shuffle
	require.Equal(t, `What does "HTTP" stand for?`, questions[0].Text)
	require.Equal(t, "HyperText Transfer Protocol", questions[0].Choices[questions[0].Correct])
	require.Equal(t, "Go", questions[1].Choices[questions[1].Correct])

	bank, err := NewBank(questions)
	require.NoError(t, err)
	ok, err := bank.Check(1, questions[0].Correct)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFetchAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response_code": 2, "results": []}`))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL, 50)
	require.ErrorIs(t, err, ErrTriviaAPI)
}
