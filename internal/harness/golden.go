package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the rendered document
// against a golden file at testdata/golden/{scenario.Name}.golden.
//
// Only useful for scenarios that succeed; failing scenarios have no
// document to compare.
func RunWithGolden(t *testing.T, sc *Scenario) *RunResult {
	t.Helper()

	rr, err := Run(sc)
	Verify(t, sc, rr, err)
	if err != nil {
		return nil
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, []byte(rr.Document))

	return rr
}
