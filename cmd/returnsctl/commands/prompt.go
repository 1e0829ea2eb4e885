package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	contextutils "returnsdesk/internal/utils"
)

// prompter asks for missing values one line at a time
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints label and returns the trimmed answer
func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", contextutils.WrapErrorf(err, "failed to read %s", label)
	}
	answer = strings.TrimSpace(answer)
	if errors.Is(err, io.EOF) && answer == "" {
		return "", contextutils.ErrorWithContextf("no input for %s", label)
	}
	return answer, nil
}

// choose lists options and accepts either a number or free text
func (p *prompter) choose(label string, options []string) (string, error) {
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, opt)
	}
	answer, err := p.line(label)
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(answer); convErr == nil {
		if n < 1 || n > len(options) {
			return "", contextutils.ErrorWithContextf("%s: choice %d is out of range 1-%d", label, n, len(options))
		}
		return options[n-1], nil
	}
	return answer, nil
}
