package cli

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseLongAndShortFlags(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	var run bool
	fs.String(&out, "output", "o", "", "Output file.", "file")
	fs.Bool(&run, "run", "r", false, "Run the program.")

	be.Err(t, fs.Parse([]string{"--output", "a.out", "-r", "prog.nlang"}), nil)
	be.Equal(t, out, "a.out")
	be.Equal(t, run, true)
	be.Equal(t, fs.Args(), []string{"prog.nlang"})
}

func TestParseEqualsForm(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "output", "o", "", "Output file.", "file")

	be.Err(t, fs.Parse([]string{"--output=b.out"}), nil)
	be.Equal(t, out, "b.out")
}

func TestParseShorthandWithAttachedValue(t *testing.T) {
	fs := NewFlagSet("test")
	var emit string
	fs.String(&emit, "emit", "e", "", "Emit target.", "c|ir")

	be.Err(t, fs.Parse([]string{"-eir"}), nil)
	be.Equal(t, emit, "ir")
}

func TestParseListFlag(t *testing.T) {
	fs := NewFlagSet("test")
	var args []string
	fs.List(&args, "linker-arg", "L", []string{}, "Linker argument.", "arg")

	be.Err(t, fs.Parse([]string{"-L", "-lm", "-L", "-static"}), nil)
	be.Equal(t, args, []string{"-lm", "-static"})
}

func TestParseDoubleDashTerminator(t *testing.T) {
	fs := NewFlagSet("test")
	var run bool
	fs.Bool(&run, "run", "r", false, "Run the program.")

	be.Err(t, fs.Parse([]string{"--", "-r", "file"}), nil)
	be.Equal(t, run, false)
	be.Equal(t, fs.Args(), []string{"-r", "file"})
}

func TestParseUnknownFlag(t *testing.T) {
	fs := NewFlagSet("test")
	err := fs.Parse([]string{"--bogus"})
	be.True(t, err != nil)
	be.Equal(t, err.Error(), "unknown flag: --bogus")
}

func TestParseMissingArgument(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "output", "o", "", "Output file.", "file")

	err := fs.Parse([]string{"--output"})
	be.True(t, err != nil)
	be.Equal(t, err.Error(), "flag needs an argument: -output")
}

func TestFlagGroupToggles(t *testing.T) {
	fs := NewFlagSet("test")
	enabled, disabled := true, false
	fs.AddFlagGroup("Warnings", "warning", "Available warnings:", []FlagGroupEntry{
		{Name: "float-trunc", Prefix: "W", Usage: "Warn on truncation.", Enabled: &enabled, Disabled: &disabled},
	})

	// Single-dash full names resolve before shorthand splitting.
	be.Err(t, fs.Parse([]string{"-Wno-float-trunc"}), nil)
	be.Equal(t, disabled, true)
}

func TestAppActionReceivesPositionalArgs(t *testing.T) {
	app := NewApp("test")
	var got []string
	app.Action = func(args []string) error {
		got = args
		return nil
	}
	be.Err(t, app.Run([]string{"one", "two"}), nil)
	be.Equal(t, got, []string{"one", "two"})
}

func TestWrapText(t *testing.T) {
	lines := wrapText("alpha beta gamma delta", 11)
	be.Equal(t, lines, []string{"alpha beta", "gamma delta"})

	be.Equal(t, len(wrapText("", 10)), 0)
	be.Equal(t, wrapText("unbreakable", 3), []string{"unbreakable"})
}
