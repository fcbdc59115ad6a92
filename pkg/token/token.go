// Package token generates, validates and persists worker tokens.
//
// A token identifies one worker and doubles as the partition key for every
// record stored on its behalf, so Validate must pass before a token is
// turned into a storage key.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

const (
	// MaxLength bounds accepted tokens. Generated tokens are 11 bytes.
	MaxLength = 64

	// MaxGroups and MaxMembers keep the zero-padded fields three digits wide.
	MaxGroups  = 999
	MaxMembers = 999

	// MaxAttempts is how many suffixes are tried per token before giving up.
	MaxAttempts = 64

	suffixLen = 3
	alphabet  = "abcdefghijklmnopqrstuvwxyz"
)

var pattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate returns a ConfigError unless token is non-empty, at most
// MaxLength bytes and made only of ASCII letters, digits and underscores.
func Validate(token string) error {
	if token == "" {
		return lherrors.NewConfigError("token is empty")
	}
	if len(token) > MaxLength {
		return lherrors.NewConfigError("token exceeds %d characters", MaxLength)
	}
	if !pattern.MatchString(token) {
		return lherrors.NewConfigError("token %q contains characters outside [A-Za-z0-9_]", token)
	}
	return nil
}

// Allocator issues tokens of the form GGG_MMM_xyz and never returns the same
// token twice, including tokens passed to Reserve.
type Allocator struct {
	seen   map[string]struct{}
	suffix func() (string, error)
}

// NewAllocator returns an Allocator drawing suffixes from crypto/rand.
func NewAllocator() *Allocator {
	return &Allocator{
		seen:   make(map[string]struct{}),
		suffix: randomSuffix,
	}
}

// Reserve marks existing tokens as taken so Generate will not reissue them.
func (a *Allocator) Reserve(tokens ...string) {
	for _, t := range tokens {
		a.seen[t] = struct{}{}
	}
}

// Generate returns groups*members tokens ordered by group, then member.
// Numbering starts at 1.
func (a *Allocator) Generate(groups, members int) ([]string, error) {
	if groups < 1 || groups > MaxGroups {
		return nil, lherrors.NewConfigError("group count must be between 1 and %d, got %d", MaxGroups, groups)
	}
	if members < 1 || members > MaxMembers {
		return nil, lherrors.NewConfigError("member count must be between 1 and %d, got %d", MaxMembers, members)
	}

	tokens := make([]string, 0, groups*members)
	for g := 1; g <= groups; g++ {
		for m := 1; m <= members; m++ {
			tok, err := a.next(g, m)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		}
	}
	return tokens, nil
}

func (a *Allocator) next(group, member int) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		s, err := a.suffix()
		if err != nil {
			return "", fmt.Errorf("failed to draw token suffix: %w", err)
		}
		tok := fmt.Sprintf("%03d_%03d_%s", group, member, s)
		if _, dup := a.seen[tok]; dup {
			continue
		}
		a.seen[tok] = struct{}{}
		return tok, nil
	}
	return "", lherrors.NewConfigError("could not allocate a unique token for group %d member %d after %d attempts",
		group, member, MaxAttempts)
}

func randomSuffix() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, suffixLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
