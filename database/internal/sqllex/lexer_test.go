package sqllex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanPositional(t *testing.T) {
	sql := "SELECT * FROM users WHERE id = ? AND status IN (?)"
	got := Scan(sql)

	assert.Len(t, got, 2)
	assert.Equal(t, Positional, got[0].Kind)
	assert.Equal(t, "?", sql[got[0].Offset:got[0].Offset+got[0].Length])
	assert.Equal(t, 48, got[1].Offset)
}

func TestScanSkipsLiteralsAndComments(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected int
	}{
		{"single quoted", "SELECT '?' FROM t WHERE a = ?", 1},
		{"escaped quote", `SELECT 'it''s ?', 'a\'?' FROM t WHERE a = ?`, 1},
		{"double quoted identifier", `SELECT "col?" FROM t`, 0},
		{"backtick identifier", "SELECT `col?` FROM t WHERE b = ?", 1},
		{"line comment", "SELECT 1 -- where ?\nFROM t WHERE c = ?", 1},
		{"block comment", "SELECT /* ? */ 1 FROM t WHERE d = ?", 1},
		{"unterminated literal", "SELECT '?", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountPositional(tt.sql))
		})
	}
}

func TestScanNamed(t *testing.T) {
	sql := "SELECT x::int, @@IDENTITY FROM t WHERE a = :first AND b = @second_2 AND c = ?"
	got := Scan(sql)

	assert.Len(t, got, 3)
	assert.Equal(t, Named, got[0].Kind)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, ":first", sql[got[0].Offset:got[0].Offset+got[0].Length])
	assert.Equal(t, "second_2", got[1].Name)
	assert.Equal(t, Positional, got[2].Kind)
}

func TestScanIgnoresEmailLikeTokens(t *testing.T) {
	assert.Empty(t, Scan("SELECT user@host"))
}
