package appointments

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestOverlapViolationMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"exclusion violation", &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"}, true},
		{"wrapped exclusion violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", fmt.Errorf("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := overlapViolation(tc.err); got != tc.want {
				t.Errorf("overlapViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
