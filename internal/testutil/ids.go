package testutil

import "fmt"

// RunIDs returns n predictable run ids: run-0001, run-0002, ...
// Pair with journal.NewFixedGenerator for golden output.
func RunIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%04d", i+1)
	}
	return ids
}
