package ports

import "github.com/archfirm/gatehouse/core"

// Tokenizer converts between sessions and signed tokens
type Tokenizer interface {
	// Issue creates a fresh session for identity and returns its token
	Issue(identity string) (string, *core.Session, error)
	// Verify checks the token and returns the session it carries
	Verify(token string) (*core.Session, error)
}
