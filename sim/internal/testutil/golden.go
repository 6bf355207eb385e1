// Package testutil holds fixtures shared by the sim test packages.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GrantCase is one per-subordinate grant computation with its expected
// result, as recorded in testdata/golden_grants.json.
type GrantCase struct {
	Name       string  `json:"name"`
	Policy     string  `json:"policy"`
	Occupancy2 float64 `json:"occupancy2"`
	Occupancy3 float64 `json:"occupancy3"`
	MaxGrant   float64 `json:"max_grant"`
	Grant2     float64 `json:"grant2"`
	Grant3     float64 `json:"grant3"`
}

// GrantCases loads the golden grant cases. It fails the test if the file is
// missing, malformed or empty.
func GrantCases(t testing.TB) []GrantCase {
	t.Helper()
	data, err := os.ReadFile(repoPath(t, "testdata", "golden_grants.json"))
	require.NoError(t, err, "reading golden grants")

	var doc struct {
		Tests []GrantCase `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(data, &doc), "parsing golden grants")
	require.NotEmpty(t, doc.Tests, "golden grants file has no cases")
	return doc.Tests
}

// repoPath resolves elem against the repository root, three levels above
// this file.
func repoPath(t testing.TB, elem ...string) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "locating testutil source")
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")
	return filepath.Join(append([]string{root}, elem...)...)
}

// AssertBytesEqual compares byte counts with a relative tolerance; an
// expected 0 must match within relTol absolutely.
func AssertBytesEqual(t testing.TB, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 {
		assert.InDelta(t, 0, got, relTol, name)
		return
	}
	assert.InEpsilon(t, want, got, relTol, name)
}
