package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	cases := map[string]error{
		"ok":                nil,
		"self_target":       domain.ErrSelfTarget,
		"not_found":         fmt.Errorf("lookup: %w", domain.ErrNotFound),
		"duplicate_request": domain.ErrDuplicateRequest,
		"conflict":          domain.ErrConflict,
		"invalid_kind":      domain.ErrInvalidKind,
		"empty_content":     domain.ErrEmptyContent,
		"validation":        domain.NewValidationError(map[string]string{"x": "y"}),
		"error":             errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Result(err), "err=%v", err)
	}
}

func TestObserveLedgerCountsByResult(t *testing.T) {
	before := testutil.ToFloat64(ledgerOperations.WithLabelValues("test_op", "conflict"))
	ObserveLedger("test_op", time.Now(), domain.ErrConflict)
	after := testutil.ToFloat64(ledgerOperations.WithLabelValues("test_op", "conflict"))
	assert.Equal(t, before+1, after)
}

func TestObserveHTTPFallsBackToUnmatched(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	ObserveHTTP("GET", "", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")))
}
