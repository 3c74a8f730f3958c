package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"csv-to-dynamodb/models"
)

// Prompter reads answers to interactive questions, one line each
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading from in and writing questions to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// ReadText asks a question and returns the trimmed answer
func (p *Prompter) ReadText(question string) (string, error) {
	fmt.Fprintf(p.out, "%s:", question)
	return p.readLine()
}

// ReadInt asks for an integer between min and max inclusive
func (p *Prompter) ReadInt(question, field string, min, max int) (int, error) {
	fmt.Fprintf(p.out, "%s (%d-%d):", question, min, max)
	answer, err := p.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, models.NewConfigError(field, fmt.Sprintf("%q is not a valid number", answer))
	}
	if n < min || n > max {
		return 0, models.NewConfigError(field, fmt.Sprintf("%d is not between %d and %d", n, min, max))
	}
	return n, nil
}

// ReadYesNo asks a yes/no question. An empty answer selects the default;
// otherwise any answer starting with "y" means yes.
func (p *Prompter) ReadYesNo(question string, defaultYes bool) (bool, error) {
	if defaultYes {
		fmt.Fprintf(p.out, "%s (Y/n):", question)
	} else {
		fmt.Fprintf(p.out, "%s (N/y):", question)
	}
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	if answer == "" {
		return defaultYes, nil
	}
	return strings.HasPrefix(strings.ToLower(answer), "y"), nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no answer given: %w", io.ErrUnexpectedEOF)
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
