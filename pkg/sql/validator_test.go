package sql

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
)

func TestCheckReadOnly_Accepts(t *testing.T) {
	accepted := []string{
		"SELECT 1;",
		"SELECT 1",
		"select Segment from energy_bids_dam;",
		"SeLeCt 1;",
		"  \n\tSELECT 1;",
		"SELECT\n1;",
		"SELECT(1);",
		"SELECT ';' AS semi;",
		"SELECT 1; -- trailing comment",
		"SELECT 1 -- ; DROP TABLE t",
		"SELECT * FROM t WHERE action = 'DELETE';",
		`SELECT "Create", [Update] FROM t;`,
		`SELECT "Set", [Kill], 'WAITFOR' FROM t;`,
		"SELECT * FROM t ORDER BY id OFFSET 10;",
		"SELECT Reset_Count, Used_MW FROM t;",
		"SELECT Created_At, Updated_By FROM audit;",
		"SELECT Segment, AVG(MCP_Rs_MWh) FROM energy_bids_dam GROUP BY Segment;",
		"SELECT TOP (5) * FROM energy_bids_dam ORDER BY MCP_Rs_MWh DESC;",
		"SELECT * FROM energy_bids_dam WHERE Record_Date = CURRENT_DATE;",
	}

	for _, stmt := range accepted {
		t.Run(stmt, func(t *testing.T) {
			assert.NoError(t, CheckReadOnly(stmt))
			assert.True(t, IsReadOnlyStatement(stmt))
		})
	}
}

func TestCheckReadOnly_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		stmt   string
		reason error
	}{
		{"empty", "", ErrNotSelect},
		{"whitespace only", " \n ", ErrNotSelect},
		{"delete", "DELETE FROM energy_bids_dam;", ErrNotSelect},
		{"lowercase drop", "drop table energy_bids_dam;", ErrNotSelect},
		{"with clause", "WITH x AS (SELECT 1) SELECT * FROM x;", ErrNotSelect},
		{"leading block comment", "/* hi */ SELECT 1;", ErrNotSelect},
		{"leading line comment", "-- hi\nSELECT 1;", ErrNotSelect},
		{"keyword prefix", "SELECTX 1;", ErrNotSelect},
		{"select in literal", "'SELECT' ;", ErrNotSelect},
		{"stacked delete", "SELECT 1; DELETE FROM energy_bids_dam;", ErrMultipleStatements},
		{"stacked select", "SELECT 1; SELECT 2", ErrMultipleStatements},
		{"double terminator", "SELECT 1;;", ErrMultipleStatements},
		{"select into", "SELECT * INTO backup FROM energy_bids_dam;", nil},
		{"lowercase into", "select * into backup from t;", nil},
		{"for update", "SELECT * FROM t FOR UPDATE;", nil},
		{"exec in subexpression", "SELECT 1 WHERE EXISTS (EXEC sp_who);", nil},
		{"unterminated literal", "SELECT 'abc;", nil},
		{"unterminated identifier", `SELECT "abc FROM t;`, nil},
		{"unterminated block comment", "SELECT 1 /* ;", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReadOnly(tt.stmt)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUnsafeStatement)
			if tt.reason != nil {
				assert.True(t, errors.Is(err, tt.reason), "expected %v, got %v", tt.reason, err)
			}
			assert.False(t, IsReadOnlyStatement(tt.stmt))
		})
	}
}

func TestCheckReadOnly_RejectsUndelimitedBatchCommands(t *testing.T) {
	rejected := []string{
		"SELECT 1 SHUTDOWN WITH NOWAIT;",
		"SELECT 1 KILL 52;",
		"SELECT 1 DENY SELECT ON t TO public;",
		"SELECT 1 BACKUP DATABASE x TO DISK = 'c:/x.bak';",
		"SELECT 1 RESTORE DATABASE x FROM DISK = 'c:/x.bak';",
		"SELECT 1 DBCC CHECKDB;",
		"SELECT 1 WAITFOR DELAY '01:00:00';",
		"SELECT 1 RECONFIGURE;",
		"SELECT 1 USE master;",
		"SELECT 1 DECLARE @x INT;",
		"SELECT 1 SET NOCOUNT ON;",
		"SELECT * FROM OPENROWSET('SQLNCLI', 'Server=x;', 'SELECT 1');",
		"SELECT * FROM OPENQUERY(remote, 'SELECT 1');",
		"SELECT * FROM OPENDATASOURCE('SQLNCLI', 'Data Source=x').db.dbo.t;",
		"SELECT * FROM OPENROWSET(BULK 'c:/x.csv', SINGLE_CLOB) AS f;",
		"select 1 shutdown;",
	}

	for _, stmt := range rejected {
		t.Run(stmt, func(t *testing.T) {
			err := CheckReadOnly(stmt)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUnsafeStatement)
		})
	}
}

func TestCheckReadOnly_KeywordCaseVariants(t *testing.T) {
	// Every casing of the keyword is accepted; every casing of a write verb is not.
	for _, kw := range caseVariants("select") {
		assert.True(t, IsReadOnlyStatement(kw+" 1;"), kw)
	}
	for _, kw := range caseVariants("delete") {
		assert.False(t, IsReadOnlyStatement(kw+" FROM t;"), kw)
	}
}

func caseVariants(word string) []string {
	n := len(word)
	variants := make([]string, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		var b strings.Builder
		for i := 0; i < n; i++ {
			c := word[i : i+1]
			if mask&(1<<i) != 0 {
				c = strings.ToUpper(c)
			}
			b.WriteString(c)
		}
		variants = append(variants, b.String())
	}
	return variants
}

func TestMaskNonCode(t *testing.T) {
	masked, ok := maskNonCode("SELECT 'a;b' -- c\nFROM t /* x */;")
	require.True(t, ok)
	assert.Equal(t, "SELECT "+strings.Repeat(" ", 5)+" "+strings.Repeat(" ", 4)+"\nFROM t "+strings.Repeat(" ", 7)+";", masked)

	_, ok = maskNonCode("SELECT 'open")
	assert.False(t, ok)

	masked, ok = maskNonCode("SELECT 1 -- open line comment")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1 "+strings.Repeat(" ", 20), masked)
}
