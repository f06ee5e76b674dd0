// Package cli is a small flag and help-page framework. It exists so grouped
// toggle flags like -Wfloat-trunc and -Fno-const-fold can live next to
// ordinary options with a shared help layout.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	val, err := strconv.ParseBool(s)
	if err != nil && s != "" {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val || s == ""
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

// FlagGroupEntry is one toggle inside a flag group. Enabled and Disabled
// receive the states of the plain and the no- form respectively.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name      string
	GroupType string
	Header    string
	Flags     []FlagGroupEntry
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

// AddFlagGroup registers the enable and disable forms of each entry and
// records the group for help output.
func (f *FlagSet) AddFlagGroup(name, groupType, header string, entries []FlagGroupEntry) {
	for i := range entries {
		if entries[i].Enabled != nil {
			f.Bool(entries[i].Enabled, entries[i].Prefix+entries[i].Name, "", *entries[i].Enabled, entries[i].Usage)
		}
		if entries[i].Disabled != nil {
			disableUsage := "Disable '" + entries[i].Name + "'"
			f.Bool(entries[i].Disabled, entries[i].Prefix+"no-"+entries[i].Name, "", *entries[i].Disabled, disableUsage)
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:      name,
		GroupType: groupType,
		Header:    header,
		Flags:     entries,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "--") {
			if err := f.parseLongFlag(arg, arguments, &i); err != nil {
				return err
			}
			continue
		}

		name := arg[1:]
		if eq := strings.Index(name, "="); eq >= 0 {
			name = name[:eq]
		}
		if flag, ok := f.flags[name]; ok {
			if err := f.setFlag(flag, arg[1:], arguments, &i); err != nil {
				return err
			}
			continue
		}
		if err := f.parseShortFlag(arg, arguments, &i); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) setFlag(flag *Flag, spec string, arguments []string, i *int) error {
	if _, value, ok := strings.Cut(spec, "="); ok {
		return flag.Value.Set(value)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: -%s", flag.Name)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseLongFlag(arg string, arguments []string, i *int) error {
	spec := arg[2:]
	name := spec
	if eq := strings.Index(name, "="); eq >= 0 {
		name = name[:eq]
	}
	if name == "" {
		return fmt.Errorf("empty flag name")
	}
	flag, ok := f.flags[name]
	if !ok {
		return fmt.Errorf("unknown flag: --%s", name)
	}
	return f.setFlag(flag, spec, arguments, i)
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Usage: %s %s\nRun '%s --help' for available options.\n", a.Name, a.Synopsis, a.Name)
		return err
	}
	if help {
		a.writeHelpPage(os.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) writeHelpPage(w *os.File) {
	var sb strings.Builder
	termWidth := terminalWidth()

	fmt.Fprintf(&sb, "\n    Copyright (c) %d: %s and contributors\n", time.Now().Year(), strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&sb, "    For more details refer to %s\n", a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n    Synopsis\n        %s %s\n", a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n    Description\n        %s\n", a.Description)
	}

	leftWidth := a.maxLeftWidth()

	optionFlags := a.optionFlags()
	if len(optionFlags) > 0 {
		sb.WriteString("\n    Options\n")
		sort.Slice(optionFlags, func(i, j int) bool { return optionFlags[i].Name < optionFlags[j].Name })
		for _, flag := range optionFlags {
			left := formatFlagString(flag)
			right := ""
			if flag.DefValue != "" && flag.DefValue != "false" && flag.DefValue != "[]" {
				if _, isBool := flag.Value.(*boolValue); !isBool {
					right = fmt.Sprintf("|%s|", flag.DefValue)
				}
			}
			writeEntry(&sb, left, flag.Usage, right, leftWidth, termWidth)
		}
	}

	for _, group := range a.FlagSet.flagGroups {
		fmt.Fprintf(&sb, "\n    %s\n", group.Name)
		prefix := group.Flags[0].Prefix
		fmt.Fprintf(&sb, "        %-*s Enable a specific %s\n", leftWidth, fmt.Sprintf("-%s<%s>", prefix, group.GroupType), group.GroupType)
		fmt.Fprintf(&sb, "        %-*s Disable a specific %s\n", leftWidth, fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType), group.GroupType)
		if group.Header != "" {
			fmt.Fprintf(&sb, "    %s\n", group.Header)
		}

		entries := make([]FlagGroupEntry, len(group.Flags))
		copy(entries, group.Flags)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, entry := range entries {
			mark := "|-|"
			if entry.Enabled != nil && *entry.Enabled && (entry.Disabled == nil || !*entry.Disabled) {
				mark = "|x|"
			}
			writeEntry(&sb, entry.Name, entry.Usage, mark, leftWidth, termWidth)
		}
	}
	fmt.Fprint(w, sb.String())
}

func (a *App) optionFlags() []*Flag {
	var flags []*Flag
	for _, flag := range a.FlagSet.flags {
		if a.isGroupFlag(flag.Name) {
			continue
		}
		flags = append(flags, flag)
	}
	return flags
}

func (a *App) isGroupFlag(flagName string) bool {
	for _, group := range a.FlagSet.flagGroups {
		for _, entry := range group.Flags {
			if flagName == entry.Prefix+entry.Name || flagName == entry.Prefix+"no-"+entry.Name {
				return true
			}
		}
	}
	return false
}

func (a *App) maxLeftWidth() int {
	maxWidth := 0
	check := func(s string) {
		if len(s) > maxWidth {
			maxWidth = len(s)
		}
	}
	for _, flag := range a.optionFlags() {
		check(formatFlagString(flag))
	}
	for _, group := range a.FlagSet.flagGroups {
		prefix := group.Flags[0].Prefix
		check(fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType))
		for _, entry := range group.Flags {
			check(entry.Name)
		}
	}
	return maxWidth
}

func formatFlagString(flag *Flag) string {
	var b strings.Builder
	_, isBool := flag.Value.(*boolValue)

	if flag.Shorthand != "" {
		fmt.Fprintf(&b, "-%s", flag.Shorthand)
		if !isBool {
			fmt.Fprintf(&b, " <%s>", flag.ExpectedType)
		}
		fmt.Fprintf(&b, ", --%s", flag.Name)
		if !isBool {
			fmt.Fprintf(&b, " <%s>", flag.ExpectedType)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "--%s", flag.Name)
	if !isBool && flag.ExpectedType != "" {
		fmt.Fprintf(&b, "=%s", flag.ExpectedType)
	}
	return b.String()
}

func writeEntry(sb *strings.Builder, left, usage, right string, leftWidth, termWidth int) {
	const indent = "        "
	avail := termWidth - len(indent) - leftWidth - 1 - 2 - len(right)
	if avail < 10 {
		avail = 10
	}
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, leftWidth, left, avail, first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, leftWidth, left, first)
	}
	cont := strings.Repeat(" ", leftWidth+1)
	for i := 1; i < len(lines); i++ {
		fmt.Fprintf(sb, "%s%s%s\n", indent, cont, lines[i])
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	if width < 20 {
		return 20
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var line strings.Builder
	lineLen := 0

	for _, word := range words {
		if lineLen+len(word)+1 > maxWidth && lineLen > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
		if lineLen > 0 {
			line.WriteString(" ")
			lineLen++
		}
		line.WriteString(word)
		lineLen += len(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
