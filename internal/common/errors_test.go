package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	for _, e := range []error{ErrorNotFound, ErrorInternal, ErrorUnauthorized, ErrValidation, ErrInvalidToken, ErrTokenExpired, ErrSyncInProgress} {
		wrapped := fmt.Errorf("ctx: %w", e)
		if !errors.Is(wrapped, e) {
			t.Fatalf("errors.Is failed for %v", e)
		}
	}
}
