package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			if sc.ExpectError != "" || sc.Pseudo {
				// No deterministic document to compare.
				rr, err := Run(sc)
				Verify(t, sc, rr, err)
				return
			}
			RunWithGolden(t, sc)
		})
	}
}

func TestRun_RerunSharesCacheState(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/first_seen_order.yaml")
	require.NoError(t, err)

	rr, runErr := Run(sc)
	Verify(t, sc, rr, runErr)
	require.NotNil(t, rr.Second)
	require.Equal(t, 3, rr.Cache.Len(rr.First.BitWidth))
}
