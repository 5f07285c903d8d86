// Package models defines the plugin descriptor persisted by the registry.
package models

// PluginInfo describes a registered extension implementation: access
// evaluators, CRL extensions, profile rules, and the like. Descriptors are
// keyed by (type, id) in the registry; the struct itself carries only the
// display and implementation attributes.
type PluginInfo struct {
	Name        string
	Description string
	ClassName   string
}
