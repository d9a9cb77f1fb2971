// Package render turns an assignment result into a markdown document.
//
// Rendering is pure: the document is a function of the result, the options,
// and the supplied timestamp. No clocks, no I/O.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/qorder/internal/engine"
)

// Options configure document rendering.
type Options struct {
	// PostURL links to the post the questions were submitted under.
	PostURL string

	// RepoURL links to the project that regenerates the list.
	RepoURL string

	// Now is the "last updated" timestamp. Injected rather than read from
	// a clock so rendering stays deterministic.
	Now time.Time
}

// Title returns the document title for the given randomness source.
// Also used as the gist description when publishing.
func Title(quantum bool) string {
	source := "Pseudo"
	if quantum {
		source = "Quantum"
	}
	return fmt.Sprintf("AMA Questions in %s Random Order", source)
}

// Document renders the sorted result as a markdown table document.
//
// Every key is rendered as a zero-padded binary string of exactly
// res.BitWidth digits, in backticks, in a column sized to the wider of the
// header and the keys. Question text is flattened to one line with pipes
// escaped so it cannot break the table.
func Document(res *engine.Result, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title(res.Quantum))

	fmt.Fprintf(&b, "The table below lists [all %d questions submitted for this AMA](%s),\n", len(res.Items), opts.PostURL)
	b.WriteString("sorted by the random number drawn for each question. A question keeps its\n")
	b.WriteString("number across updates, so the ordering only ever interleaves new arrivals.\n\n")
	fmt.Fprintf(&b, "This list is [regenerated](%s) periodically as new questions are posted.\n", opts.RepoURL)
	fmt.Fprintf(&b, "Last updated on %s.\n\n", opts.Now.Format("2006-01-02 at 15:04 MST"))

	if !res.Quantum {
		b.WriteString("Note: this ordering was generated with pseudo-random numbers for testing.\n\n")
	}

	header := fmt.Sprintf("%s Random Number (Binary)", sourceWord(res.Quantum))
	// Binary keys render as bitWidth digits plus two backticks.
	col1 := len(header)
	if w := res.BitWidth + 2; w > col1 {
		col1 = w
	}

	fmt.Fprintf(&b, "| %-*s | Question |\n", col1, header)
	fmt.Fprintf(&b, "|%s|----------|\n", strings.Repeat("-", col1+2))

	for _, ai := range res.Items {
		binary := fmt.Sprintf("`%0*b`", res.BitWidth, ai.Key)
		fmt.Fprintf(&b, "| %-*s | %s |\n", col1, binary, row(ai.Item))
	}

	return b.String()
}

func sourceWord(quantum bool) string {
	if quantum {
		return "Quantum"
	}
	return "Pseudo"
}

// row formats one question cell: attributed text, flattened to a single
// line, with table pipes escaped.
func row(item engine.Item) string {
	author := strings.TrimSpace(item.Author)
	if author == "" {
		author = "Unknown User"
	}
	text := fmt.Sprintf("**%s** says: %s", author, item.Text)
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "|", "\\|")
	return text
}
