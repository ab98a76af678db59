package credential

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Credentials authorize image pulls from a container registry. Secret is
// held only until the single command that consumes it has run, then zeroed.
type Credentials struct {
	Username string
	Secret   []byte
}

// Zero overwrites the secret in place.
func (c *Credentials) Zero() {
	for i := range c.Secret {
		c.Secret[i] = 0
	}
	c.Secret = nil
}

// Provider obtains registry credentials on demand.
type Provider interface {
	Obtain() (Credentials, error)
}

// TerminalProvider prompts the operator interactively. The secret is read
// with terminal echo disabled.
type TerminalProvider struct {
	In  io.Reader
	Out io.Writer

	// fd of the terminal used for the masked read, normally stdin.
	Fd int
}

func NewTerminalProvider() *TerminalProvider {
	return &TerminalProvider{
		In:  os.Stdin,
		Out: os.Stderr,
		Fd:  int(os.Stdin.Fd()),
	}
}

func (p *TerminalProvider) Obtain() (creds Credentials, err error) {
	fmt.Fprint(p.Out, "Container registry username: ")
	reader := bufio.NewReader(p.In)

	var username string
	if username, err = reader.ReadString('\n'); err != nil {
		err = fmt.Errorf("failed to read registry username: %w", err)
		return
	}

	fmt.Fprint(p.Out, "Container registry password: ")
	var secret []byte
	if secret, err = term.ReadPassword(p.Fd); err != nil {
		err = fmt.Errorf("failed to read registry password: %w", err)
		return
	}
	fmt.Fprintln(p.Out)

	creds = Credentials{
		Username: strings.TrimSpace(username),
		Secret:   secret,
	}
	return
}

// Static returns fixed credentials. Used by tests and non-interactive runs.
type Static struct {
	Username string
	Secret   string
}

func (s Static) Obtain() (Credentials, error) {
	return Credentials{
		Username: s.Username,
		Secret:   []byte(s.Secret),
	}, nil
}
