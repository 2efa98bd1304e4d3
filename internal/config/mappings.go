package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/steveyegge/j2o/internal/tracker"
)

// LoadMappings reads a TOML mapping file and overlays it on the default
// tables. An empty path yields the defaults.
//
//	unknown_status = "New"
//
//	[types]
//	"Story" = "User story"
//
//	[links.Blocks]
//	type = "blocks"
func LoadMappings(path string) (*tracker.Tables, error) {
	defaults := tracker.DefaultTables()
	if path == "" {
		return defaults, nil
	}

	var over tracker.Tables
	md, err := toml.DecodeFile(path, &over)
	if err != nil {
		return nil, fmt.Errorf("read mappings %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("mappings %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	for name, rule := range over.Links {
		if !rule.Type.IsWellKnown() {
			return nil, fmt.Errorf("mappings %s: link %q: unknown relation type %q", path, name, rule.Type)
		}
	}
	return defaults.Merge(&over), nil
}
