package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, "it''s", Escape("it's"))
	assert.Equal(t, "''''", Escape("''"))
	assert.Equal(t, "", Escape(""))
}

func TestFirstValue(t *testing.T) {
	assert.Equal(t, "", FirstValue(nil))
	assert.Equal(t, "", FirstValue([][]string{{"", "  "}}))
	assert.Equal(t, "42", FirstValue([][]string{{"", " 42 "}, {"99"}}))
	assert.Equal(t, "1", FirstValue([][]string{{"1"}}))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE SCHEMA a; CREATE TABLE b (x INT);")
	assert.Len(t, stmts, 2)
	assert.Equal(t, "CREATE SCHEMA a", stmts[0])
	assert.Equal(t, " CREATE TABLE b (x INT)", stmts[1])

	// semicolons inside string literals do not split
	stmts = splitStatements("INSERT INTO t VALUES ('a;b'); SELECT 1")
	assert.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "'a;b'")
}
