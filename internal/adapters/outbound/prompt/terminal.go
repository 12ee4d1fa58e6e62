package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D97706"))
	noteStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8B949E")).
			Padding(0, 1)
)

// Terminal implements domain.Prompter over a reader and writer, normally
// stdin and stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm asks a y/N question. End of input declines.
func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(t.out, "%s\n%s ", message, questionStyle.Render("Apply this migration? [y/N]"))

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("reading answer: %w", a.err)
		}
		input := strings.ToLower(strings.TrimSpace(a.line))
		return input == "y" || input == "yes", nil
	}
}

func (t *Terminal) Notify(message string) {
	fmt.Fprintln(t.out, noteStyle.Render(message))
}

// Silent never confirms and keeps notifications for later display. It is
// used where nobody can answer a prompt.
type Silent struct {
	mu    sync.Mutex
	notes []string
}

func NewSilent() *Silent { return &Silent{} }

func (s *Silent) Confirm(context.Context, string) (bool, error) { return false, nil }

func (s *Silent) Notify(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, message)
}

// Notes returns the notifications received so far.
func (s *Silent) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notes...)
}
