package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/j2o/internal/types"
)

// UserMap resolves Jira accounts to OpenProject users. Keys are Jira
// account IDs or email addresses.
type UserMap map[string]types.User

type usersFile struct {
	Users map[string]types.User `yaml:"users"`
}

// LoadUsers reads a YAML user map:
//
//	users:
//	  5b10ac8d82e05b22cc7d4ef5: {id: 4, login: alice}
//	  bob@example.com: {id: 5, login: bob}
//
// An empty path yields an empty map.
func LoadUsers(path string) (UserMap, error) {
	out := UserMap{}
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator's config
	if err != nil {
		return nil, fmt.Errorf("read users %s: %w", path, err)
	}
	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse users %s: %w", path, err)
	}
	for key, u := range f.Users {
		if u.ID <= 0 {
			return nil, fmt.Errorf("users %s: %q has no id", path, key)
		}
		out[normalizeKey(key)] = u
	}
	return out, nil
}

// MapIdentity looks the account up by ID, then by email.
func (m UserMap) MapIdentity(acct *types.Account) (types.User, bool) {
	if acct == nil {
		return types.User{}, false
	}
	for _, key := range []string{acct.AccountID, acct.Email} {
		if key == "" {
			continue
		}
		if u, ok := m[normalizeKey(key)]; ok {
			return u, true
		}
	}
	return types.User{}, false
}

// normalizeKey lowercases emails; account IDs are case-sensitive.
func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.Contains(key, "@") {
		return strings.ToLower(key)
	}
	return key
}
