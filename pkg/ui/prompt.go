package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when the input closes before an answer
var ErrNoInput = errors.New("no input")

// Prompter asks the operator questions. Answers are read line by line
// from one buffered reader so consecutive prompts do not lose input.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewPrompter reads answers from in and writes prompts to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// StdPrompter prompts on the process terminal
func StdPrompter() *Prompter {
	return NewPrompter(os.Stdin, Output)
}

// ReadLine prints prompt and reads one trimmed line
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", err
		}
		if line == "" {
			return "", ErrNoInput
		}
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Only "y" and "yes" confirm.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ReadSecret prompts for a value without echo when reading from a
// terminal and falls back to a plain line otherwise.
func (p *Prompter) ReadSecret(prompt string) (string, error) {
	if p.fd < 0 {
		return p.ReadLine(prompt)
	}

	fmt.Fprint(p.out, prompt)
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}
