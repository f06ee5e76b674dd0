package config

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	for ft := Feature(0); ft < FeatCount; ft++ {
		be.True(t, cfg.IsFeatureEnabled(ft))
	}
	for wt := Warning(0); wt < WarnCount; wt++ {
		be.True(t, cfg.IsWarningEnabled(wt))
	}
	be.Equal(t, cfg.WarningName(WarnFloatTrunc), "float-trunc")
	be.Equal(t, cfg.FeatureMap["modules"], FeatModules)
}

func TestSetFeature(t *testing.T) {
	cfg := NewConfig()
	cfg.SetFeature(FeatConstFold, false)
	be.True(t, !cfg.IsFeatureEnabled(FeatConstFold))
	be.True(t, cfg.IsFeatureEnabled(FeatModules))
}

func TestFlagGroupRoundTrip(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	be.Err(t, fs.Parse([]string{"-Fno-const-fold", "-Wno-empty-body"}), nil)
	cfg.ApplyFlagGroups(warningFlags, featureFlags)

	be.True(t, !cfg.IsFeatureEnabled(FeatConstFold))
	be.True(t, cfg.IsFeatureEnabled(FeatAssignMain))
	be.True(t, !cfg.IsWarningEnabled(WarnEmptyBody))
	be.True(t, cfg.IsWarningEnabled(WarnFloatTrunc))
}

func TestDisableWinsOverEnable(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	be.Err(t, fs.Parse([]string{"-Fmodules", "-Fno-modules"}), nil)
	cfg.ApplyFlagGroups(warningFlags, featureFlags)
	be.True(t, !cfg.IsFeatureEnabled(FeatModules))
}
