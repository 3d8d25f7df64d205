// Package report renders a run as human-facing console output: a title
// banner, numbered section headings, one line per probe, and a closing banner.
// Nothing here is meant to be parsed.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const ruleWidth = 40

// Reporter writes a run's report to an io.Writer.
type Reporter struct {
	out io.Writer

	pass    *color.Color
	fail    *color.Color
	note    *color.Color
	heading *color.Color
	banner  *color.Color

	sections int
}

// New creates a Reporter. mode is "always", "never", or "auto"; auto colors
// only when out is a terminal and NO_COLOR is not set.
func New(out io.Writer, mode string) *Reporter {
	r := &Reporter{
		out:     out,
		pass:    color.New(color.FgHiGreen),
		fail:    color.New(color.FgHiRed),
		note:    color.New(color.FgHiYellow),
		heading: color.New(color.FgHiYellow),
		banner:  color.New(color.FgHiBlue),
	}

	enabled := false
	switch mode {
	case "always":
		enabled = true
	case "never":
	default:
		enabled = !color.NoColor && isTerminal(out)
	}
	for _, c := range []*color.Color{r.pass, r.fail, r.note, r.heading, r.banner} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Title prints the opening banner naming the backend under test and restarts
// section numbering.
func (r *Reporter) Title(baseURL string) {
	r.sections = 0
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.banner.Sprint("🚀 EmotionAI Backend Test Suite"))
	fmt.Fprintln(r.out, r.banner.Sprint(strings.Repeat("=", ruleWidth)))
	fmt.Fprintf(r.out, "Testing backend at: %s\n", baseURL)
}

// Section prints the next numbered section heading.
func (r *Reporter) Section(title string) {
	r.sections++
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.heading.Sprintf("%d. %s:", r.sections, title))
}

// Result prints one probe outcome. The message is shown only for failures.
func (r *Reporter) Result(name string, passed bool, message string) {
	if passed {
		fmt.Fprintf(r.out, "%s - %s\n", r.pass.Sprint("✓ PASSED"), name)
		return
	}
	fmt.Fprintf(r.out, "%s - %s\n", r.fail.Sprint("✗ FAILED"), name)
	if message != "" {
		fmt.Fprintf(r.out, "  %s\n", r.note.Sprint("→ "+message))
	}
}

// Abort prints the banner shown when the backend is not reachable.
func (r *Reporter) Abort() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.fail.Sprint("❌ Backend is not responding. Please ensure it's running."))
}

// Completed prints the closing banner with the run's totals.
func (r *Reporter) Completed(passed, failed int) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.banner.Sprint(strings.Repeat("=", ruleWidth)))
	fmt.Fprintln(r.out, r.pass.Sprint("✅ Test suite completed!"))

	counts := fmt.Sprintf("Passed: %d  Failed: %d", passed, failed)
	if failed > 0 {
		fmt.Fprintln(r.out, r.fail.Sprint(counts))
	} else {
		fmt.Fprintln(r.out, r.pass.Sprint(counts))
	}
	fmt.Fprintln(r.out)
}
