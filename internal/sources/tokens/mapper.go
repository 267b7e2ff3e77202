package tokens

import (
	"fmt"
	"strings"
)

// Mapper converts the token file into a token -> owner table
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapTokens flattens config into token -> owner.
// Blank tokens are skipped; a token claimed by two owners is an error.
func (m *Mapper) MapTokens(config FileConfig) (map[string]string, error) {
	table := make(map[string]string)

	for i, user := range config.Users {
		owner := strings.TrimSpace(user.ID)
		if owner == "" {
			return nil, fmt.Errorf("user #%d has no id", i+1)
		}

		for _, raw := range user.Tokens {
			token := strings.TrimSpace(raw)
			// Unset ${VAR} expands to ""
			if token == "" {
				continue
			}

			if prev, exists := table[token]; exists && prev != owner {
				return nil, fmt.Errorf("token of %q is also assigned to %q", owner, prev)
			}
			table[token] = owner
		}
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("no valid tokens found in token file")
	}

	return table, nil
}
