package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDSN(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	tests := []struct {
		name     string
		dsn      string
		expected string
		masked   bool
	}{
		{"url", "postgres://app:s3cret@db:5432/app?sslmode=disable", "postgres://app:***@db:5432/app?sslmode=disable", true},
		{"url without password", "sqlserver://sa@db:1433", "sqlserver://sa@db:1433", false},
		{"mysql", "root:pw@tcp(127.0.0.1:3306)/app?parseTime=true", "root:***@tcp(127.0.0.1:3306)/app?parseTime=true", true},
		{"key value", "host=db user=app password=s3cret dbname=app", "host=db user=app password=*** dbname=app", true},
		{"quoted key value", "host=db password='a b' dbname=app", "host=db password=*** dbname=app", true},
		{"sqlite path", "/var/lib/app.db", "/var/lib/app.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.MaskDSN(tt.dsn)
			assert.Equal(t, tt.masked, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFilterString(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	assert.Equal(t, "***", f.FilterString("password", "hunter2"))
	assert.Equal(t, "***", f.FilterString("DB_PASSWORD", "hunter2"))
	assert.Equal(t, "", f.FilterString("password", ""))
	assert.Equal(t, "users", f.FilterString("table", "users"))
	assert.Equal(t, "***", f.FilterString("connection", "/var/lib/app.db"))
}

func TestFilterValueNested(t *testing.T) {
	f := NewSensitiveDataFilter(&FilterConfig{SensitiveFields: []string{"secret"}})

	out := f.FilterValue("config", map[string]any{
		"secret_key": 42,
		"name":       "primary",
		"nested":     map[string]any{"client_secret": "x"},
	})

	assert.Equal(t, map[string]any{
		"secret_key": "***",
		"name":       "primary",
		"nested":     map[string]any{"client_secret": "***"},
	}, out)
}
