package main

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	assert.Equal(t,
		"mysql://u:p@tcp(db:3306)/bizdesk?multiStatements=true",
		migrationURL("u:p@tcp(db:3306)/bizdesk"))
	assert.Equal(t,
		"mysql://u:p@tcp(db:3306)/bizdesk?parseTime=True&multiStatements=true",
		migrationURL("u:p@tcp(db:3306)/bizdesk?parseTime=True"))
	assert.Equal(t,
		"mysql://u:p@tcp(db:3306)/bizdesk?multiStatements=true",
		migrationURL("mysql://u:p@tcp(db:3306)/bizdesk?multiStatements=true"))
}

// Billing periods can end after 2038, past the range of MySQL TIMESTAMP.
func TestEntitlementPeriodsUseDatetime(t *testing.T) {
	raw, err := os.ReadFile("../../migrations/000002_create_entitlement_records.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	for _, col := range []string{"period_start", "period_end"} {
		assert.Regexp(t, regexp.MustCompile(`(?m)^\s*`+col+`\s+DATETIME\b`), sql, col)
	}
}
