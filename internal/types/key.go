package types

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidKey = errors.New("owner and repo are required")

// GenerationKey identifies one repository generation target.
type GenerationKey struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func NewKey(owner, repo string) GenerationKey {
	return GenerationKey{Owner: strings.TrimSpace(owner), Repo: strings.TrimSpace(repo)}
}

// ParseKey accepts "owner/repo".
func ParseKey(s string) (GenerationKey, error) {
	owner, repo, ok := strings.Cut(strings.Trim(strings.TrimSpace(s), "/"), "/")
	if !ok {
		return GenerationKey{}, fmt.Errorf("parse %q: %w", s, ErrInvalidKey)
	}
	k := NewKey(owner, repo)
	if err := k.Validate(); err != nil {
		return GenerationKey{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return k, nil
}

func (k GenerationKey) Validate() error {
	if strings.TrimSpace(k.Owner) == "" || strings.TrimSpace(k.Repo) == "" {
		return ErrInvalidKey
	}
	// String and the cache keys join the parts with "/".
	if strings.Contains(k.Owner, "/") || strings.Contains(k.Repo, "/") {
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidKey, k.String())
	}
	return nil
}

func (k GenerationKey) String() string {
	return k.Owner + "/" + k.Repo
}
