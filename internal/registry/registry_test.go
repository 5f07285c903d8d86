package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"certgate/internal/platform/config"
	"certgate/internal/registry/models"
)

type RegistrySuite struct {
	suite.Suite
	ctx  context.Context
	path string
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "registry.cfg")
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) newRegistry() *Registry {
	r := New()
	s.Require().NoError(r.Init(s.ctx, config.NewEngine(nil), s.path))
	return r
}

// TestInitCreatesEmptyStore verifies a fresh registry with no file on disk.
func (s *RegistrySuite) TestInitCreatesEmptyStore() {
	r := s.newRegistry()

	s.Empty(r.TypeNames())

	_, err := os.Stat(s.path)
	s.Require().NoError(err, "init should create the backing file")
}

// TestInitPrefersConfiguredPath verifies the config key wins over the default.
func (s *RegistrySuite) TestInitPrefersConfiguredPath() {
	configured := filepath.Join(s.T().TempDir(), "other.cfg")
	cfg := config.NewEngine(map[string]string{PropFile: configured})

	r := New()
	s.Require().NoError(r.Init(s.ctx, cfg, s.path))

	_, err := os.Stat(configured)
	s.Require().NoError(err)
	_, err = os.Stat(s.path)
	s.Require().ErrorIs(err, os.ErrNotExist)
}

// TestRoundTrip registers a descriptor, persists, and reloads from disk.
func (s *RegistrySuite) TestRoundTrip() {
	r := s.newRegistry()
	info := &models.PluginInfo{
		Name:        "Group Evaluator",
		Description: "group membership evaluator",
		ClassName:   "evaluators.GroupAccessEvaluator",
	}
	r.AddPluginInfo(s.ctx, "evaluator", "group", info, true)

	reloaded := New()
	s.Require().NoError(reloaded.Init(s.ctx, config.NewEngine(nil), s.path))

	got, ok := reloaded.PluginInfo("evaluator", "group")
	s.Require().True(ok)
	s.Equal(info, got)

	ids, ok := reloaded.IDs("evaluator")
	s.Require().True(ok)
	s.ElementsMatch([]string{"group"}, ids)
}

// TestOverwrite verifies a later registration with the same key wins.
func (s *RegistrySuite) TestOverwrite() {
	r := s.newRegistry()
	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{Name: "old"}, true)
	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{Name: "new"}, true)

	got, ok := r.PluginInfo("evaluator", "group")
	s.Require().True(ok)
	s.Equal("new", got.Name)

	ids, _ := r.IDs("evaluator")
	s.Len(ids, 1)
}

// TestIDsDistinguishesUnknownType verifies the unknown/empty distinction.
func (s *RegistrySuite) TestIDsDistinguishesUnknownType() {
	r := s.newRegistry()
	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{}, false)
	r.RemovePluginInfo(s.ctx, "evaluator", "group")

	ids, ok := r.IDs("evaluator")
	s.True(ok, "type stays known after its last id is removed")
	s.Empty(ids)

	_, ok = r.IDs("crlExtension")
	s.False(ok)
}

// TestRemoveUnknownStillRewrites verifies the deliberate persistence
// asymmetry: removal always rewrites the store, even when nothing changed.
func (s *RegistrySuite) TestRemoveUnknownStillRewrites() {
	r := s.newRegistry()
	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{Name: "g"}, true)

	before, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(s.path, []byte("scribble\n"), 0o600))

	r.RemovePluginInfo(s.ctx, "evaluator", "nope")

	after, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(string(before), string(after), "no-op removal should still rebuild the store")

	ids, ok := r.IDs("evaluator")
	s.Require().True(ok)
	s.ElementsMatch([]string{"group"}, ids)
}

// TestPersistFlag verifies persist=false mutates memory only.
func (s *RegistrySuite) TestPersistFlag() {
	r := s.newRegistry()
	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{Name: "g"}, false)

	content, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Empty(content, "persist=false must not touch the store")

	_, ok := r.PluginInfo("evaluator", "group")
	s.True(ok)
}

// TestSkipsTypeWithoutIDs verifies graceful degradation on a bad store.
func (s *RegistrySuite) TestSkipsTypeWithoutIDs() {
	content := "types=evaluator,crlExtension\n" +
		"evaluator.ids=group\n" +
		"evaluator.group.name=Group Evaluator\n" +
		"evaluator.group.desc=group membership evaluator\n" +
		"evaluator.group.class=evaluators.GroupAccessEvaluator\n"
	s.Require().NoError(os.WriteFile(s.path, []byte(content), 0o600))

	r := New()
	s.Require().NoError(r.Init(s.ctx, config.NewEngine(nil), s.path))

	s.ElementsMatch([]string{"evaluator"}, r.TypeNames())
}

// TestPersistFailureIsAbsorbed verifies a failed write leaves memory intact
// and does not surface an error.
func (s *RegistrySuite) TestPersistFailureIsAbsorbed() {
	r := s.newRegistry()

	// Remove the store's directory so the rebuild write fails.
	s.Require().NoError(os.RemoveAll(filepath.Dir(s.path)))

	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{Name: "g"}, true)

	got, ok := r.PluginInfo("evaluator", "group")
	s.Require().True(ok)
	s.Equal("g", got.Name)
}

// TestShutdown clears memory but leaves the store alone.
func (s *RegistrySuite) TestShutdown() {
	r := s.newRegistry()
	r.AddPluginInfo(s.ctx, "evaluator", "group", &models.PluginInfo{Name: "g"}, true)

	r.Shutdown()

	s.Empty(r.TypeNames())
	content, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.NotEmpty(content, "shutdown must not truncate the store")
}
