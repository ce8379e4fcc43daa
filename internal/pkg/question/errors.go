package question

import "github.com/pkg/errors"

// ErrQuestionNotFound indicates a lookup for an id not present in the bank.
var ErrQuestionNotFound = errors.New("question not found")

// ErrInvalidQuestion indicates a question that fails bank validation.
var ErrInvalidQuestion = errors.New("invalid question")

// ErrNoQuestions indicates a loader produced an empty question set.
var ErrNoQuestions = errors.New("no questions loaded")

// ErrTriviaAPI indicates a failure response from the remote trivia API.
var ErrTriviaAPI = errors.New("trivia API request failed")
