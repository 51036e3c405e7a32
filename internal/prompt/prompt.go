// Package prompt asks the operator yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// affirmative answers, English and Italian.
var affirmative = map[string]struct{}{
	"y":   {},
	"yes": {},
	"s":   {},
	"si":  {},
}

// IsAffirmative returns true when the answer is one of the accepted yes-words.
func IsAffirmative(answer string) bool {
	_, ok := affirmative[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}

// Confirm writes the question and reads one line. Any answer that is not a
// yes-word, including an empty input, is a "no".
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N]\n", question); err != nil {
		return false, fmt.Errorf("could not write question: %w", err)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("could not read answer: %w", err)
	}

	return IsAffirmative(line), nil
}
