package members

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"certgate/internal/platform/config"
)

// enforcementList resolves which groups participate in single-role
// enforcement. The configured list is parsed once and cached; concurrent
// first readers collapse into a single parse. An empty configuration means
// every group participates, and that outcome is not cached so an operator
// can populate the key without a restart.
type enforcementList struct {
	cfg *config.Engine

	mu     sync.RWMutex
	groups []string
	group  singleflight.Group
}

func newEnforcementList(cfg *config.Engine) *enforcementList {
	return &enforcementList{cfg: cfg}
}

// participates reports whether groupID is subject to single-role
// enforcement. An empty groupID always participates.
func (l *enforcementList) participates(groupID string) bool {
	if groupID == "" {
		return true
	}
	groups := l.resolve()
	if len(groups) == 0 {
		return true
	}
	return slices.Contains(groups, groupID)
}

func (l *enforcementList) resolve() []string {
	l.mu.RLock()
	groups := l.groups
	l.mu.RUnlock()
	if groups != nil {
		return groups
	}

	resolved, _, _ := l.group.Do(PropEnforceGroupList, func() (any, error) {
		raw := l.cfg.GetString(PropEnforceGroupList, "")
		var parsed []string
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				parsed = append(parsed, entry)
			}
		}
		if parsed != nil {
			l.mu.Lock()
			l.groups = parsed
			l.mu.Unlock()
		}
		return parsed, nil
	})
	groups, _ = resolved.([]string)
	return groups
}
