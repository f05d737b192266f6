// Package cli provides the line-oriented debug console for the qdcore
// engine: terminal I/O, output formatting and command dispatch.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/qdcore/engine"
)

// CLI reads console lines and prints their results.
type CLI struct {
	Console
	In        io.Reader
	Out       io.Writer
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastLine  string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Console: Console{Engine: eng},
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the banner, then loops: prompt → input → dispatch → output,
// until /quit, end of input or ctx is done.
func (c *CLI) Run(ctx context.Context) {
	defs := c.Engine.Defs
	if defs.Author != "" {
		c.printLine(fmt.Sprintf("%s by %s", defs.Title, defs.Author))
	} else {
		c.printLine(defs.Title)
	}
	c.printSystem(fmt.Sprintf("scene %s. Type /help for commands.", sceneName(c.Engine)))

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(line, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(line)
		}

		lower := strings.ToLower(line)
		if lower == "again" || lower == "g" {
			if c.lastLine == "" {
				c.printSystem("Nothing to repeat.")
				continue
			}
			line = c.lastLine
		} else {
			c.lastLine = line
		}

		res := c.ExecLine(ctx, line)
		for _, l := range res.Lines {
			c.printLine(l)
		}
		if res.Err != nil {
			c.printSystem(res.Err.Error())
		}
		if res.Quit {
			c.printSystem("Goodbye.")
			return
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
