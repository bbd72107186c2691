package logger

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultMaskValue replaces sensitive values in log output.
const DefaultMaskValue = "***"

// FilterConfig lists the field name fragments treated as sensitive.
type FilterConfig struct {
	SensitiveFields []string
	MaskValue       string
}

// DefaultFilterConfig masks credentials and connection strings.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "pwd",
			"secret", "token", "credential",
			"dsn", "connection",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks values of sensitive fields. Connection strings keep their
// structure with only the password replaced.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter; a nil config uses DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f == nil || value == "" || !f.isSensitive(key) {
		return value
	}
	if masked, ok := f.MaskDSN(value); ok {
		return masked
	}
	return f.config.MaskValue
}

// FilterValue masks value when key is sensitive; nested maps are filtered per key.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	if f == nil {
		return value
	}
	switch v := value.(type) {
	case string:
		return f.FilterString(key, v)
	case map[string]any:
		return f.FilterFields(v)
	}
	if f.isSensitive(key) && value != nil {
		return f.config.MaskValue
	}
	return value
}

// FilterFields filters every entry of fields into a new map.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	if f == nil {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = f.FilterValue(k, v)
	}
	return out
}

var (
	dsnUserPassword = regexp.MustCompile(`^([^:@/()]+):([^@]*)@`)
	dsnKeyPassword  = regexp.MustCompile(`(?i)\b(password|pwd)=('[^']*'|[^\s;&]*)`)
)

// MaskDSN replaces the password of a connection string: URL form
// ("postgres://u:p@host/db"), MySQL form ("u:p@tcp(host)/db") and key/value form
// ("host=h password=p"). It reports false when no password was found.
func (f *SensitiveDataFilter) MaskDSN(dsn string) (string, bool) {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil && u.User != nil {
			if _, has := u.User.Password(); has {
				masked := *u
				masked.User = url.UserPassword(u.User.Username(), "MASKED")
				return strings.Replace(masked.String(), "MASKED", f.config.MaskValue, 1), true
			}
			return dsn, false
		}
	}
	if dsnUserPassword.MatchString(dsn) {
		return dsnUserPassword.ReplaceAllString(dsn, "${1}:"+f.config.MaskValue+"@"), true
	}
	if dsnKeyPassword.MatchString(dsn) {
		return dsnKeyPassword.ReplaceAllString(dsn, "${1}="+f.config.MaskValue), true
	}
	return dsn, false
}

func (f *SensitiveDataFilter) isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, field := range f.config.SensitiveFields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}
