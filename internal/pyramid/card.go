package pyramid

import (
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxQuestionLen = 80
	MaxOptionLen   = 30
)

var (
	ErrMissingQuestion = errors.New("card question is empty")
	ErrMissingOptionA  = errors.New("card optionA is empty")
	ErrMissingOptionB  = errors.New("card optionB is empty")
)

// Card is a single either/or question. ID is the node id once the card is
// placed in a pyramid and is meaningless in a pool.
type Card struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	OptionA  string `json:"optionA"`
	OptionB  string `json:"optionB"`
}

// Sanitize trims, NFC-normalizes and truncates every text field to its limit.
func (c Card) Sanitize() Card {
	return Card{
		ID:       c.ID,
		Question: SanitizeText(c.Question, MaxQuestionLen),
		OptionA:  SanitizeText(c.OptionA, MaxOptionLen),
		OptionB:  SanitizeText(c.OptionB, MaxOptionLen),
	}
}

// Validate reports every missing field at once.
func (c Card) Validate() error {
	var err error
	if c.Question == "" {
		err = multierr.Append(err, ErrMissingQuestion)
	}
	if c.OptionA == "" {
		err = multierr.Append(err, ErrMissingOptionA)
	}
	if c.OptionB == "" {
		err = multierr.Append(err, ErrMissingOptionB)
	}
	return err
}

// SanitizeText cuts s to at most max runes after trimming and normalization.
func SanitizeText(s string, max int) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
