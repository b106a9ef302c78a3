//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_SeededTables(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	tests := []struct {
		table    string
		expected int
	}{
		{"energy_bids_dam", 4},
		{"energy_bids_rtm", 1},
	}

	for _, tt := range tests {
		var count int
		err := testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+tt.table).Scan(&count)
		if err != nil {
			t.Errorf("failed to count %s: %v", tt.table, err)
			continue
		}
		if count != tt.expected {
			t.Errorf("%s: expected %d rows, got %d", tt.table, tt.expected, count)
		}
	}
}
