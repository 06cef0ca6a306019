package notify

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// WithSpinner shows an indeterminate spinner on w while fn runs. Nothing is
// drawn when w is not a terminal.
func WithSpinner(w io.Writer, label string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + label
	s.Start()
	defer s.Stop()
	return fn()
}
