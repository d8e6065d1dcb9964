package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"

	"infometis/pkg/logging"
)

const subsystem = "Console"

// LineReader supplies input lines. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// Step is one numbered action of a section.
type Step struct {
	Title string
	Run   func(ctx context.Context) (string, error)
}

// Section groups related steps under one menu entry.
type Section struct {
	Name        string
	Description string
	Steps       []Step
}

// Console is the menu-driven interactive console.
type Console struct {
	sections []Section
	reader   LineReader
	out      io.Writer
	color    bool
}

// Option customises a Console.
type Option func(*Console)

// WithColor enables coloured step results.
func WithColor(enabled bool) Option {
	return func(c *Console) { c.color = enabled }
}

// New creates a console over reader.
func New(reader LineReader, out io.Writer, sections []Section, opts ...Option) *Console {
	c := &Console{sections: sections, reader: reader, out: out}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewReadline creates the terminal line reader with history in historyFile.
func NewReadline(historyFile string) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "infometis> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return rl, nil
}

// errQuit ends the console loop.
var errQuit = errors.New("quit")

// Run shows the main menu and dispatches until the user quits, input ends or
// ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		c.printMainMenu()
		c.reader.SetPrompt("infometis> ")

		input, err := c.readInput(ctx)
		if err != nil {
			return c.finish(err)
		}
		switch input {
		case "":
			continue
		case "q", "quit", "exit":
			return c.finish(errQuit)
		}

		idx, ok := c.choice(input, len(c.sections))
		if !ok {
			fmt.Fprintf(c.out, "Unknown choice %q\n", input)
			continue
		}
		if err := c.runSection(ctx, c.sections[idx]); err != nil {
			return c.finish(err)
		}
	}
}

// runSection loops over one section's menu. It returns nil on "b" and
// errQuit on "q".
func (c *Console) runSection(ctx context.Context, section Section) error {
	for {
		c.printSectionMenu(section)
		c.reader.SetPrompt(fmt.Sprintf("infometis/%s> ", strings.ToLower(section.Name)))

		input, err := c.readInput(ctx)
		if err != nil {
			return err
		}
		switch input {
		case "":
			continue
		case "b", "back":
			return nil
		case "q", "quit", "exit":
			return errQuit
		case "a", "all":
			c.runAll(ctx, section)
			continue
		}

		idx, ok := c.choice(input, len(section.Steps))
		if !ok {
			fmt.Fprintf(c.out, "Unknown choice %q\n", input)
			continue
		}
		c.runStep(ctx, idx, section.Steps[idx])
	}
}

// runAll runs every step of the section in order and stops at the first
// failure.
func (c *Console) runAll(ctx context.Context, section Section) bool {
	fmt.Fprintf(c.out, "Running all %d steps of %s\n", len(section.Steps), section.Name)
	for i, step := range section.Steps {
		if !c.runStep(ctx, i, step) {
			fmt.Fprintf(c.out, "%s stopped at step %d\n", section.Name, i+1)
			return false
		}
	}
	fmt.Fprintf(c.out, "%s complete\n", section.Name)
	return true
}

func (c *Console) runStep(ctx context.Context, idx int, step Step) bool {
	if err := ctx.Err(); err != nil {
		fmt.Fprintf(c.out, "%s %d. %s: %v\n", c.mark(false), idx+1, step.Title, err)
		return false
	}

	start := time.Now()
	fmt.Fprintf(c.out, "▶ %d. %s\n", idx+1, step.Title)
	detail, err := step.Run(ctx)
	elapsed := time.Since(start).Round(time.Second)
	if err != nil {
		logging.Error(subsystem, err, "Step %q failed", step.Title)
		fmt.Fprintf(c.out, "%s %d. %s failed: %v\n", c.mark(false), idx+1, step.Title, err)
		return false
	}
	fmt.Fprintf(c.out, "%s %d. %s (%s)\n", c.mark(true), idx+1, step.Title, elapsed)
	if detail != "" {
		fmt.Fprintln(c.out, indent(detail))
	}
	return true
}

func (c *Console) readInput(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := c.reader.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

func (c *Console) finish(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(c.out, "Goodbye!")
		return nil
	}
	return err
}

func (c *Console) choice(input string, n int) (int, bool) {
	i, err := strconv.Atoi(input)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func (c *Console) printMainMenu() {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.paint(text.FgHiBlue, "InfoMetis Console"))
	for i, s := range c.sections {
		fmt.Fprintf(c.out, "  %d. %-10s %s\n", i+1, s.Name, s.Description)
	}
	fmt.Fprintln(c.out, "  q. Quit")
}

func (c *Console) printSectionMenu(section Section) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.paint(text.FgHiBlue, section.Name))
	for i, step := range section.Steps {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, step.Title)
	}
	fmt.Fprintln(c.out, "  a. Run all steps")
	fmt.Fprintln(c.out, "  b. Back")
	fmt.Fprintln(c.out, "  q. Quit")
}

func (c *Console) mark(ok bool) string {
	if ok {
		return c.paint(text.FgGreen, "✓")
	}
	return c.paint(text.FgRed, "✗")
}

func (c *Console) paint(color text.Color, s string) string {
	if !c.color {
		return s
	}
	return color.Sprint(s)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
