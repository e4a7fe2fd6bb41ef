// Package batch builds and checks finished-goods batch codes.
//
// A code is decade letter, year letter, month letter, '-', two digit day and
// a one digit daily sequence: 2026-02-15 #1 is "CGB-151".
package batch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mes-staging/internal/storage"
)

const MaxSequence = 9

var codePattern = regexp.MustCompile(`^[A-Z]{3}-\d{3}$`)

// Generate returns the code for date and sequence (1..9).
func Generate(date time.Time, sequence int) (string, error) {
	const op = "batch.Generate"

	if sequence < 1 || sequence > MaxSequence {
		return "", fmt.Errorf("%s: sequence %d out of 1..%d: %w", op, sequence, MaxSequence, storage.ErrInvalidInput)
	}

	return Prefix(date) + strconv.Itoa(sequence), nil
}

// Prefix is the code without its sequence digit, e.g. "CGB-15".
func Prefix(date time.Time) string {
	year := date.Year()
	decade := byte('A')
	if year >= 2000 {
		decade += byte(((year - 2000) / 10) % 26)
	}
	yearLetter := byte('A' + year%10)
	month := byte('A' + int(date.Month()) - 1)

	return fmt.Sprintf("%c%c%c-%02d", decade, yearLetter, month, date.Day())
}

// Validate reports whether code has the batch code shape. Case is ignored.
func Validate(code string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

// NextSequence is one past the highest sequence among existing codes for the
// same day, capped at MaxSequence.
func NextSequence(date time.Time, existing []string) int {
	prefix := Prefix(date)

	highest := 0
	for _, code := range existing {
		code = strings.ToUpper(strings.TrimSpace(code))
		if !strings.HasPrefix(code, prefix) || !Validate(code) {
			continue
		}
		seq, err := strconv.Atoi(code[len(prefix):])
		if err == nil && seq > highest {
			highest = seq
		}
	}

	return min(highest+1, MaxSequence)
}

// NormalizeID replaces spaces in a scanned or typed batch id.
func NormalizeID(id, replacement string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), " ", replacement)
}

type CodeStore interface {
	BatchCodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Next generates the next free code for date.
func Next(ctx context.Context, store CodeStore, date time.Time) (string, error) {
	const op = "batch.Next"

	existing, err := store.BatchCodesWithPrefix(ctx, Prefix(date))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return Generate(date, NextSequence(date, existing))
}
