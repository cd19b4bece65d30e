package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned for a mode outside the supported set.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrSourceNotFound is returned when the requested test or topic does not exist.
	ErrSourceNotFound = errors.New("test or topic not found")

	// ErrInsufficientPool is returned when an exam cannot fill its sequence.
	ErrInsufficientPool = errors.New("not enough questions")

	// ErrNoValidQuestions is returned when every candidate id was filtered out.
	ErrNoValidQuestions = errors.New("no valid questions")

	// ErrSessionInvalid is returned for a session with missing or inconsistent fields.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrQuestionMissing is returned when a session question no longer resolves.
	ErrQuestionMissing = errors.New("question missing")

	// ErrSessionFinished is returned for mutations of a finished session.
	ErrSessionFinished = errors.New("session finished")

	// ErrTimeExpired is returned when answering past the time limit.
	ErrTimeExpired = errors.New("time limit exceeded")

	// ErrNoSession is returned when the user has no stored session.
	ErrNoSession = errors.New("no active session")

	// ErrInvalidChoice is returned for an option number outside the question's options.
	ErrInvalidChoice = errors.New("invalid choice")
)

// StartError carries the request and pool sizes behind a failed Start.
type StartError struct {
	Err      error
	Params   StartParams
	PoolSize int
	Need     int
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v (pool=%d, need=%d)", e.Params.Mode, e.Err, e.PoolSize, e.Need)
}

func (e *StartError) Unwrap() error { return e.Err }

// QuestionMissingError identifies the sequence entry that no longer resolves.
type QuestionMissingError struct {
	QuestionID int
	Index      int
}

func (e *QuestionMissingError) Error() string {
	return fmt.Sprintf("question %d at index %d: %v", e.QuestionID, e.Index, ErrQuestionMissing)
}

func (e *QuestionMissingError) Unwrap() error { return ErrQuestionMissing }
