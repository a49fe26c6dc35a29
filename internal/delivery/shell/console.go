package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Dmitrij-bot/storefront/internal/usecase"
)

// Console is the terminal the shell reads commands from. It also answers
// store change prompts, which arrive on the goroutine running a command and
// therefore read the very next input line.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

var _ usecase.StorePrompter = (*Console)(nil)

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out}
}

func (c *Console) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// ReadLine returns false at end of input.
func (c *Console) ReadLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) Err() error {
	return c.in.Err()
}

func (c *Console) PromptStoreChange(req *usecase.ConflictRequest) {
	current := req.CurrentStoreName
	if current == "" {
		current = req.CurrentStoreID
	}

	c.Printf("Your cart has items from %s. Empty it and start a cart at %s? [y/N] ", current, req.TargetStoreID)

	answer, ok := c.ReadLine()
	if ok && (strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")) {
		req.Accept()
		return
	}
	req.Cancel()
}
