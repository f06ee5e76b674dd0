package config

import (
	"github.com/xplshn/nlc/pkg/cli"
)

type Feature int

const (
	FeatConstFold Feature = iota
	FeatAllowUninitialized
	FeatAssignMain
	FeatModules
	FeatCount
)

type Warning int

const (
	WarnFloatTrunc Warning = iota
	WarnEmptyBody
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	// Triple and DataLayout override the IR backend's defaults when set.
	Triple     string
	DataLayout string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatConstFold:          {"const-fold", true, "Fold constant expressions before analysis."},
		FeatAllowUninitialized: {"allow-uninitialized", true, "Allow 'store' declarations without an initializer."},
		FeatAssignMain:         {"assign-main", true, "Allow the ASSIGN_MAIN directive to select the entry function."},
		FeatModules:            {"modules", true, "Allow 'import' and 'from' declarations."},
	}

	warnings := map[Warning]Info{
		WarnFloatTrunc: {"float-trunc", true, "Warn when the entry function returns a float, which is truncated to an exit code."},
		WarnEmptyBody:  {"empty-body", true, "Warn about functions with an empty body."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// WarningName returns the flag name of a warning, for diagnostics.
func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// SetupFlagGroups registers -W<warning>/-Wno-<warning> and
// -F<feature>/-Fno-<feature> toggles on the flag set. The returned entries
// are read back after parsing; a disable toggle wins over an enable toggle.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	warningFlags = make([]cli.FlagGroupEntry, WarnCount)
	for wt := Warning(0); wt < WarnCount; wt++ {
		info := c.Warnings[wt]
		enabled, disabled := info.Enabled, false
		warningFlags[wt] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Warnings", "warning", "Available warnings:", warningFlags)

	featureFlags = make([]cli.FlagGroupEntry, FeatCount)
	for ft := Feature(0); ft < FeatCount; ft++ {
		info := c.Features[ft]
		enabled, disabled := info.Enabled, false
		featureFlags[ft] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Features", "feature", "Available features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed toggle states back into the config.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
