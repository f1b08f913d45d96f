package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user for single-line answers.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. ok is false once input
// is exhausted.
func (p *Prompter) Ask(label string) (answer string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// Credentials asks for phone and PIN.
func (p *Prompter) Credentials() (phone, pin string, ok bool) {
	if phone, ok = p.Ask("Enter phone: "); !ok {
		return "", "", false
	}
	if pin, ok = p.Ask("Enter PIN: "); !ok {
		return "", "", false
	}
	return phone, pin, true
}
