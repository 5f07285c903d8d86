// Package registry manages descriptors of pluggable extension
// implementations under a (type, id) namespace, mirrored best-effort to a
// flat durable store. In-memory state is always the source of truth; the
// store may lag after a failed write but is never ahead of memory.
package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"certgate/internal/platform/config"
	"certgate/internal/registry/metrics"
	"certgate/internal/registry/models"
	"certgate/internal/registry/store"
)

const (
	propTypes = "types"
	propIDs   = "ids"
	propName  = "name"
	propDesc  = "desc"
	propClass = "class"

	// PropFile is the engine config key naming the registry store path.
	PropFile = "registry.file"
)

// Registry holds the in-memory descriptor map and its durable mirror.
// All access goes through one lock; mutation and the rebuild-and-write step
// are atomic with respect to other mutators.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]map[string]*models.PluginInfo
	store  *store.File
	logger *slog.Logger
	m      *metrics.Metrics
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.m = m
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		types:  make(map[string]map[string]*models.PluginInfo),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init resolves the store path from configuration (falling back to
// defaultPath), creates the backing file when absent, and bulk-loads all
// persisted descriptors. A store without a types entry is an empty registry,
// not an error. A type with a missing ids list is logged and skipped so one
// bad entry never aborts startup.
func (r *Registry) Init(ctx context.Context, cfg *config.Engine, defaultPath string) error {
	path := cfg.GetString(PropFile, defaultPath)
	r.logger.InfoContext(ctx, "loading plugin registry", "path", path)

	fileStore := store.NewFile(path)
	if err := fileStore.EnsureExists(); err != nil {
		return err
	}
	properties, err := fileStore.Load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.store = fileStore
	r.mu.Unlock()

	types, ok := properties[propTypes]
	if !ok || types == "" {
		return nil
	}

	for typ := range splitList(types) {
		r.loadPlugins(ctx, properties, typ)
	}
	return nil
}

// loadPlugins loads all descriptors of one type from the parsed store.
func (r *Registry) loadPlugins(ctx context.Context, properties map[string]string, typ string) {
	ids, ok := properties[typ+"."+propIDs]
	if !ok {
		r.logger.WarnContext(ctx, "registry type has no ids list, skipping",
			"type", typ,
		)
		return
	}
	for id := range splitList(ids) {
		info := &models.PluginInfo{
			Name:        properties[typ+"."+id+"."+propName],
			Description: properties[typ+"."+id+"."+propDesc],
			ClassName:   properties[typ+"."+id+"."+propClass],
		}
		// memory-only insert; one rebuild per mutation would amplify the
		// bulk load into O(n) full-store writes
		r.AddPluginInfo(ctx, typ, id, info, false)
	}
}

// TypeNames returns a snapshot of currently known types.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for typ := range r.types {
		names = append(names, typ)
	}
	return names
}

// IDs returns the ids registered under a type. The second return value
// distinguishes an unknown type (false) from a known type with zero entries.
func (r *Registry) IDs(typ string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugins, ok := r.types[typ]
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, len(plugins))
	for id := range plugins {
		ids = append(ids, id)
	}
	return ids, true
}

// PluginInfo retrieves one descriptor.
func (r *Registry) PluginInfo(typ, id string) (*models.PluginInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugins, ok := r.types[typ]
	if !ok {
		return nil, false
	}
	info, ok := plugins[id]
	if !ok {
		return nil, false
	}
	copied := *info
	return &copied, true
}

// AddPluginInfo inserts or overwrites the descriptor under (typ, id),
// creating the type on first use. When persist is true the durable store is
// rebuilt and rewritten before returning.
func (r *Registry) AddPluginInfo(ctx context.Context, typ, id string, info *models.PluginInfo, persist bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plugins, ok := r.types[typ]
	if !ok {
		plugins = make(map[string]*models.PluginInfo)
		r.types[typ] = plugins
	}
	copied := *info
	plugins[id] = &copied

	r.logger.DebugContext(ctx, "registered plugin",
		"type", typ,
		"id", id,
		"class", info.ClassName,
	)

	if persist {
		r.rebuildLocked(ctx)
	}
}

// RemovePluginInfo removes the descriptor under (typ, id). Removal of an
// unknown type or id is a no-op for memory, but the store is still rebuilt
// and rewritten: the original behaved this way and downstream tooling relies
// on remove as a "force flush" primitive.
func (r *Registry) RemovePluginInfo(ctx context.Context, typ, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if plugins, ok := r.types[typ]; ok {
		delete(plugins, id)
	}
	r.rebuildLocked(ctx)
}

// Shutdown clears all in-memory state. The durable store is left as the
// last successful rebuild wrote it.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]map[string]*models.PluginInfo)
}

// rebuildLocked serializes the whole descriptor map and overwrites the
// durable store. A write failure is logged and absorbed: in-memory state
// stays authoritative and only durability across a restart is at risk until
// the next successful rebuild. Callers must hold r.mu.
func (r *Registry) rebuildLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	if r.m != nil {
		r.m.IncrementRebuilds()
	}

	properties := make(map[string]string)
	typeNames := make([]string, 0, len(r.types))
	for typ, plugins := range r.types {
		typeNames = append(typeNames, typ)

		ids := make([]string, 0, len(plugins))
		for id, info := range plugins {
			ids = append(ids, id)
			properties[typ+"."+id+"."+propName] = info.Name
			properties[typ+"."+id+"."+propDesc] = info.Description
			properties[typ+"."+id+"."+propClass] = info.ClassName
		}
		properties[typ+"."+propIDs] = strings.Join(ids, ",")
	}
	properties[propTypes] = strings.Join(typeNames, ",")

	if err := r.store.Save(properties); err != nil {
		if r.m != nil {
			r.m.IncrementPersistFailures()
		}
		r.logger.WarnContext(ctx, "unable to update registry store",
			"path", r.store.Path(),
			"error", err,
		)
	}
}

// splitList iterates the non-empty trimmed entries of a comma-separated list.
func splitList(list string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		for _, entry := range strings.Split(list, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}
