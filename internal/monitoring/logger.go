package monitoring

import (
	"log"
	"time"
)

// Logf is a diagnostic logger. Components receive one through their options.
type Logf func(format string, v ...interface{})

// Default returns a logger backed by log.Printf.
func Default() Logf {
	return log.Printf
}

// Discard is a logger that drops everything.
func Discard(string, ...interface{}) {}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l Logf) Logf {
	if l == nil {
		return Discard
	}
	return l
}

// Timed runs fn and logs how long it took under the given name.
func Timed(l Logf, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	OrDiscard(l)("%s took %s", name, time.Since(start))
	return err
}
