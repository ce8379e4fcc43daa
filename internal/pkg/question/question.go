// Package question holds the in-memory trivia question bank and its loaders.
package question

import (
	"strings"

	"github.com/pkg/errors"
)

// NumChoices is the number of answer choices per question.
const NumChoices = 4

// Question is a single multiple-choice trivia question. Immutable once loaded.
type Question struct {
	ID      int
	Text    string
	Choices [NumChoices]string
	Correct int // index into Choices
}

// Bank is a read-mostly set of questions. It is never mutated after
// construction, so concurrent reads from any number of sessions are safe
// without synchronization.
type Bank struct {
	questions map[int]Question
	ids       []int
}

// NewBank builds a Bank from the given questions, validating each one.
func NewBank(questions []Question) (*Bank, error) {
	b := &Bank{questions: make(map[int]Question, len(questions))}
	for _, q := range questions {
		if q.Correct < 0 || q.Correct >= NumChoices {
			return nil, errors.Wrapf(ErrInvalidQuestion, "question %d: correct index %d", q.ID, q.Correct)
		}
		if strings.TrimSpace(q.Text) == "" {
			return nil, errors.Wrapf(ErrInvalidQuestion, "question %d: empty text", q.ID)
		}
		for _, c := range q.Choices {
			if strings.TrimSpace(c) == "" {
				return nil, errors.Wrapf(ErrInvalidQuestion, "question %d: empty choice", q.ID)
			}
		}
		if _, ok := b.questions[q.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidQuestion, "duplicate question id %d", q.ID)
		}
		b.questions[q.ID] = q
		b.ids = append(b.ids, q.ID)
	}
	return b, nil
}

// IDs returns the ids of all questions in the bank. The returned slice is a
// copy and may be modified by the caller.
func (b *Bank) IDs() []int {
	ids := make([]int, len(b.ids))
	copy(ids, b.ids)
	return ids
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.ids)
}

// Get returns the question with the given id.
func (b *Bank) Get(id int) (Question, error) {
	q, ok := b.questions[id]
	if !ok {
		return Question{}, errors.Wrapf(ErrQuestionNotFound, "id %d", id)
	}
	return q, nil
}

// Check reports whether choice is the correct answer to the question with the
// given id.
func (b *Bank) Check(id, choice int) (bool, error) {
	q, ok := b.questions[id]
	if !ok {
		return false, errors.Wrapf(ErrQuestionNotFound, "id %d", id)
	}
	return choice == q.Correct, nil
}

// CorrectChoice returns the text of the correct answer to the question with
// the given id.
func (b *Bank) CorrectChoice(id int) (string, error) {
	q, ok := b.questions[id]
	if !ok {
		return "", errors.Wrapf(ErrQuestionNotFound, "id %d", id)
	}
	return q.Choices[q.Correct], nil
}
