package check

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/opsgate/unit-sentinel/internal/systemd"
)

// DefaultFilter matches service units, the usual sweep target.
const DefaultFilter = `^.*\.service$`

// Discovery lists unit names known to the manager. The full name list is
// fetched at most once per Discovery value, so repeated filter calls
// within one run all see the same universe of units.
type Discovery struct {
	client systemd.Client
	names  []string
	loaded bool
}

// NewDiscovery wraps a manager client for one evaluation run.
func NewDiscovery(client systemd.Client) *Discovery {
	return &Discovery{client: client}
}

// Units returns the unit names matching pattern, deduplicated and sorted.
// Matching is an unanchored search; anchor the pattern to force full-name
// matches. A nil pattern matches everything.
func (d *Discovery) Units(ctx context.Context, pattern *regexp.Regexp) ([]string, error) {
	if !d.loaded {
		names, err := d.client.ListUnitNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover units: %w", err)
		}
		d.names = names
		d.loaded = true
	}

	seen := make(map[string]struct{}, len(d.names))
	matched := make([]string, 0, len(d.names))
	for _, name := range d.names {
		if pattern != nil && !pattern.MatchString(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		matched = append(matched, name)
	}
	sort.Strings(matched)
	return matched, nil
}
