package members

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"certgate/internal/platform/config"
)

func TestEnforcementList_EmptyMeansAllGroups(t *testing.T) {
	list := newEnforcementList(config.NewEngine(nil))

	assert.True(t, list.participates("Administrators"))
	assert.True(t, list.participates(""))
}

func TestEnforcementList_EmptyResultIsNotCached(t *testing.T) {
	cfg := config.NewEngine(nil)
	list := newEnforcementList(cfg)

	assert.True(t, list.participates("Trusted Managers"))

	cfg.Set(PropEnforceGroupList, "Administrators,Auditors")

	assert.False(t, list.participates("Trusted Managers"), "a later non-empty list takes effect without restart")
	assert.True(t, list.participates("Administrators"))
}

func TestEnforcementList_NonEmptyResultIsCached(t *testing.T) {
	cfg := config.NewEngine(map[string]string{PropEnforceGroupList: "Administrators"})
	list := newEnforcementList(cfg)

	assert.True(t, list.participates("Administrators"))

	cfg.Set(PropEnforceGroupList, "Auditors")

	assert.True(t, list.participates("Administrators"), "the first non-empty parse is pinned")
	assert.False(t, list.participates("Auditors"))
}
