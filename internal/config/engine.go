package config

import (
	"github.com/gridlens/gridlens/internal/engine"
)

// EngineConfig builds the analysis engine configuration from the loaded
// application config, with an optional per-workbook policy layered on top.
func EngineConfig(cfg *Config, policy *Policy) engine.Config {
	ec := engine.Config{
		AllowedConstants:    cfg.Risk.AllowedConstants,
		CellCap:             cfg.Limits.CellCap,
		CycleCap:            cfg.Limits.CycleCap,
		CrossSheetThreshold: cfg.Risk.CrossSheetThreshold,
		RegionExpansionCap:  cfg.Limits.MergeExpansionCap,
		TimeBudget:          cfg.Limits.TimeBudget,
		Labeler:             engine.HeuristicLabeler(),
	}
	if policy != nil && len(policy.AllowedConstants) > 0 {
		ec.AllowedConstants = policy.AllowedConstants
	}
	return ec
}

// KeyColumns resolves the diff key columns: policy first, then the global
// configuration.
func KeyColumns(cfg *Config, policy *Policy) []string {
	if policy != nil && len(policy.KeyColumns) > 0 {
		return policy.KeyColumns
	}
	return cfg.Diff.KeyColumns
}
