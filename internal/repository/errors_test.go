package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

// TestIsUniqueViolation はラップされたpqエラーからも一意制約違反を検出できることを検証する。
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"一意制約違反", &pq.Error{Code: "23505"}, true},
		{"ラップされた一意制約違反", fmt.Errorf("insert failed: %w", &pq.Error{Code: "23505"}), true},
		{"別のSQLSTATE", &pq.Error{Code: "23503"}, false},
		{"pq以外のエラー", errors.New("db down"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
