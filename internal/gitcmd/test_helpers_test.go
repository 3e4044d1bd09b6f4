package gitcmd

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// commandExpectation defines an expected git command call and its result.
type commandExpectation struct {
	args   []string
	output string
	err    error
}

// setupExpectations sets the package Runner to a mock that verifies calls
// against a sequence of expectations. The returned teardown restores the
// original runner and reports unmet expectations.
func setupExpectations(t *testing.T, expectations []commandExpectation) func() {
	t.Helper()

	originalRunner := Runner
	next := 0
	var mu sync.Mutex

	Runner = func(_ context.Context, args ...string) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		if next >= len(expectations) {
			t.Errorf("Unexpected git command call: %v. No more expectations.", args)
			return "", errors.New("unexpected call")
		}
		expected := expectations[next]
		if diff := cmp.Diff(expected.args, args); diff != "" {
			t.Errorf("Unexpected git command arguments (-want +got):\n%s", diff)
			return "", errors.New("unexpected arguments")
		}
		next++
		return expected.output, expected.err
	}

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if next < len(expectations) {
			t.Errorf("Not all expected git commands were called. Expected %d more.", len(expectations)-next)
			for i := next; i < len(expectations); i++ {
				t.Logf("Remaining expectation %d: args=%v", i, expectations[i].args)
			}
		}
		Runner = originalRunner
	}
}
