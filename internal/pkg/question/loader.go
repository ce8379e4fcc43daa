package question

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultTriviaURL is the Open Trivia DB endpoint used when no other source
// is configured.
const DefaultTriviaURL = "https://opentdb.com/api.php"

// fetchTimeout bounds the remote question fetch.
const fetchTimeout = 30 * time.Second

// LoadFile reads questions from a CSV file with one question per record:
//
//	text,choice1,choice2,choice3,choice4,correct
//
// where correct is the 1-based index of the right choice. Invalid records are
// skipped with a warning so a single bad line cannot take the server down.
func LoadFile(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open questions file failed")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read questions file failed")
	}

	var questions []Question
	for i, record := range records {
		q, err := questionFromRecord(len(questions)+1, record)
		if err != nil {
			logger.WithField("line", i+1).Warning(errors.Wrap(err, "skipping invalid question record"))
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, errors.Wrapf(ErrNoQuestions, "from file %s", path)
	}
	logger.WithFields(logrus.Fields{
		"path":  path,
		"count": len(questions),
	}).Info("loaded questions from file")
	return questions, nil
}

func questionFromRecord(id int, record []string) (Question, error) {
	if len(record) != NumChoices+2 {
		return Question{}, errors.Errorf("want %d fields, got %d", NumChoices+2, len(record))
	}
	correct, err := strconv.Atoi(strings.TrimSpace(record[NumChoices+1]))
	if err != nil || correct < 1 || correct > NumChoices {
		return Question{}, errors.Errorf("correct index %q out of range 1-%d", record[NumChoices+1], NumChoices)
	}
	q := Question{
		ID:      id,
		Text:    sanitize(record[0]),
		Correct: correct - 1,
	}
	for i := 0; i < NumChoices; i++ {
		q.Choices[i] = sanitize(record[i+1])
	}
	return q, nil
}

// triviaResponse mirrors the Open Trivia DB payload.
type triviaResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// Fetch downloads amount multiple-choice questions from an Open Trivia DB
// compatible endpoint and normalizes them into the internal Question shape,
// shuffling the answer order of each question.
func Fetch(ctx context.Context, baseURL string, amount int) ([]Question, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse trivia URL failed")
	}
	query := u.Query()
	query.Set("amount", strconv.Itoa(amount))
	query.Set("type", "multiple")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build trivia request failed")
	}
	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch questions failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrTriviaAPI, "status %d", resp.StatusCode)
	}

	var payload triviaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode trivia response failed")
	}
	if payload.ResponseCode != 0 {
		return nil, errors.Wrapf(ErrTriviaAPI, "response code %d", payload.ResponseCode)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var questions []Question
	for _, item := range payload.Results {
		if len(item.IncorrectAnswers) != NumChoices-1 {
			continue
		}
		q := Question{
			ID:   len(questions) + 1,
			Text: sanitize(html.UnescapeString(item.Question)),
		}
		choices := make([]string, 0, NumChoices)
		for _, a := range item.IncorrectAnswers {
			choices = append(choices, sanitize(html.UnescapeString(a)))
		}
		correct := sanitize(html.UnescapeString(item.CorrectAnswer))
		choices = append(choices, correct)
		r.Shuffle(len(choices), func(i, j int) {
			choices[i], choices[j] = choices[j], choices[i]
		})
		for i, c := range choices {
			q.Choices[i] = c
			if c == correct {
				q.Correct = i
			}
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, errors.Wrap(ErrNoQuestions, "from trivia API")
	}
	logger.WithFields(logrus.Fields{
		"url":   baseURL,
		"count": len(questions),
	}).Info("loaded questions from trivia API")
	return questions, nil
}

// sanitize strips the protocol delimiters out of question text so every
// loaded question can be framed on the wire.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "#", " ")
	s = strings.ReplaceAll(s, "|", " ")
	return s
}
