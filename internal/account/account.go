// Package account resolves crontab owners to account identities.
//
// An Account is a plain value: copying it never aliases the resolver's
// records, and Sanitized() drops the credential field before the value is
// attached to a parsed entry.
package account

import (
	"errors"
	"fmt"
	"os/user"
	"strings"
	"sync"
)

var ErrUnknownUser = errors.New("unknown user")

// Account is the identity of a crontab owner.
type Account struct {
	Name       string
	UID        string
	GID        string
	Gecos      string
	Home       string
	Shell      string
	Password   string
	Privileged bool
}

// Sanitized returns a copy with the password field scrubbed.
func (a Account) Sanitized() Account {
	a.Password = ""
	return a
}

// Resolver looks up accounts by user name.
// Implementations must be safe for concurrent use.
type Resolver interface {
	Resolve(username string) (Account, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(username string) (Account, error)

func (f ResolverFunc) Resolve(username string) (Account, error) { return f(username) }

// OS resolves accounts from the host user database.
type OS struct{}

func (OS) Resolve(username string) (Account, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return Account{}, ErrUnknownUser
	}
	u, err := user.Lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return Account{}, fmt.Errorf("%w: %s", ErrUnknownUser, name)
		}
		return Account{}, fmt.Errorf("lookup %s: %w", name, err)
	}
	return Account{
		Name:       u.Username,
		UID:        u.Uid,
		GID:        u.Gid,
		Gecos:      u.Name,
		Home:       u.HomeDir,
		Privileged: u.Uid == "0",
	}, nil
}

// Static is a fixed account table, typically filled from configuration.
type Static struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewStatic(accounts ...Account) *Static {
	s := &Static{accounts: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		s.Add(a)
	}
	return s
}

// Add inserts or replaces an account. A UID of "0" marks it privileged.
func (s *Static) Add(a Account) {
	if a.UID == "0" {
		a.Privileged = true
	}
	s.mu.Lock()
	s.accounts[a.Name] = a
	s.mu.Unlock()
}

func (s *Static) Resolve(username string) (Account, error) {
	s.mu.RLock()
	a, ok := s.accounts[strings.TrimSpace(username)]
	s.mu.RUnlock()
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return a, nil
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) Resolve(username string) (Account, error) {
	var lastErr error = fmt.Errorf("%w: %s", ErrUnknownUser, username)
	for _, r := range c {
		if r == nil {
			continue
		}
		a, err := r.Resolve(username)
		if err == nil {
			return a, nil
		}
		lastErr = err
	}
	return Account{}, lastErr
}
