package testutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// UUIDMask replaces every UUID in masked output. It has the length of a UUID so table columns stay aligned.
const UUIDMask = "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// TestingT is the part of testing.T the asserter reports through
type TestingT interface {
	Errorf(format string, args ...interface{})
}

// OutputOptions controls how command output is normalized before comparison.
type OutputOptions struct {
	StripANSI                bool `default:"true"`
	MaskUUIDs                bool `default:"false"`
	IgnoreTrailingWhitespace bool `default:"true"`
	IgnoreEmptyLines         bool `default:"false"`
	TrimSpace                bool `default:"true"`
	ColorDiff                bool `default:"false"`
}

// OutputOption is a functional option for OutputAsserter
type OutputOption func(*OutputOptions)

// OutputAsserter compares captured command output against an expected transcript
// and reports mismatches as a unified diff.
type OutputAsserter struct {
	t       TestingT
	options OutputOptions
}

// NewOutputAsserter creates an asserter with default options.
func NewOutputAsserter(t TestingT, opts ...OutputOption) *OutputAsserter {
	a := &OutputAsserter{t: t}
	defaults.SetDefaults(&a.options)
	for _, opt := range opts {
		opt(&a.options)
	}
	return a
}

// Options returns a copy of the current options
func (a *OutputAsserter) Options() OutputOptions {
	return a.options
}

// Assert reports a diff when actual and expected differ after normalization.
// It returns true on a match.
func (a *OutputAsserter) Assert(actual, expected string) bool {
	diff := a.Diff(actual, expected)
	if diff == "" {
		return true
	}
	a.t.Errorf("Output assertion failed - unified diff:\n%s", diff)
	return false
}

// AssertLines reports every expected line missing from actual, in any order.
func (a *OutputAsserter) AssertLines(actual string, lines ...string) bool {
	got := make(map[string]bool)
	for _, l := range strings.Split(a.Normalize(actual), "\n") {
		got[l] = true
	}

	var missing []string
	for _, l := range lines {
		if !got[a.Normalize(l)] {
			missing = append(missing, l)
		}
	}
	if len(missing) == 0 {
		return true
	}
	a.t.Errorf("Output is missing %d line(s):\n  %s\noutput:\n%s",
		len(missing), strings.Join(missing, "\n  "), a.Normalize(actual))
	return false
}

// Diff returns the unified diff between the normalized texts, or "" when they match.
func (a *OutputAsserter) Diff(actual, expected string) string {
	normalizedActual := a.Normalize(actual)
	normalizedExpected := a.Normalize(expected)
	if normalizedActual == normalizedExpected {
		return ""
	}

	edits := myers.ComputeEdits("", normalizedExpected, normalizedActual)
	unified := fmt.Sprint(gotextdiff.ToUnified("expected", "actual", normalizedExpected, edits))
	if !a.options.ColorDiff {
		return unified
	}
	return colorize(unified)
}

// Normalize applies the configured transformations to text.
func (a *OutputAsserter) Normalize(text string) string {
	if a.options.StripANSI {
		text = ansiPattern.ReplaceAllString(text, "")
	}
	if a.options.MaskUUIDs {
		text = uuidPattern.ReplaceAllString(text, UUIDMask)
	}
	if a.options.TrimSpace {
		text = strings.TrimSpace(text)
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if a.options.IgnoreTrailingWhitespace {
			line = strings.TrimRight(line, " \t\r")
		}
		if a.options.IgnoreEmptyLines && strings.TrimSpace(line) == "" {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

func colorize(diff string) string {
	red := color.New(color.FgRed)
	red.EnableColor()
	green := color.New(color.FgGreen)
	green.EnableColor()
	cyan := color.New(color.FgCyan)
	cyan.EnableColor()

	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "@@"):
			lines[i] = cyan.Sprint(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = red.Sprint(visibleWhitespace(line))
		case strings.HasPrefix(line, "+"):
			lines[i] = green.Sprint(visibleWhitespace(line))
		}
	}
	return strings.Join(lines, "\n")
}

// visibleWhitespace shows spaces as '·' and tabs as '→'
func visibleWhitespace(line string) string {
	return strings.NewReplacer(" ", "·", "\t", "→").Replace(line)
}

// WithMaskUUIDs replaces UUIDs with UUIDMask before comparing
func WithMaskUUIDs(mask bool) OutputOption {
	return func(o *OutputOptions) { o.MaskUUIDs = mask }
}

// WithStripANSI removes terminal color sequences before comparing
func WithStripANSI(strip bool) OutputOption {
	return func(o *OutputOptions) { o.StripANSI = strip }
}

// WithIgnoreEmptyLines drops blank lines before comparing
func WithIgnoreEmptyLines(ignore bool) OutputOption {
	return func(o *OutputOptions) { o.IgnoreEmptyLines = ignore }
}

// WithTrimSpace trims the whole text before comparing
func WithTrimSpace(trim bool) OutputOption {
	return func(o *OutputOptions) { o.TrimSpace = trim }
}

// WithColorDiff colors the reported diff
func WithColorDiff(enable bool) OutputOption {
	return func(o *OutputOptions) { o.ColorDiff = enable }
}
