//go:build integration

package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	var one int
	if err := pool.QueryRow(context.Background(), `SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("expected working connection, got error: %v", err)
	}
	if one != 1 {
		t.Fatalf("SELECT 1 = %d", one)
	}
}

func TestTableNames_Unique(t *testing.T) {
	pool := SetupTestDB(t)

	s1, l1 := TableNames(t, pool)
	s2, l2 := TableNames(t, pool)

	if s1 == s2 || l1 == l2 {
		t.Fatalf("expected unique names, got %s/%s and %s/%s", s1, l1, s2, l2)
	}
	if s1 == l1 {
		t.Fatalf("staging and live must differ: %s", s1)
	}
}
