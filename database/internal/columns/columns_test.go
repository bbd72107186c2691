package columns

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	CreatedAt string `db:"created_at"`
}

type User struct {
	Audit
	ID         int64  `db:"id"`
	Email      string `db:"Email"`
	unexported string `db:"hidden"` //nolint:unused // ignored
	NoTag      string
	Skipped    string `db:"-"`
}

type NoTags struct {
	ID int64
}

type Dangerous struct {
	ID int64 `db:"id; DROP TABLE users--"`
}

type Quoted struct {
	ID int64 `db:"\"id\""`
}

type Duplicate struct {
	A string `db:"x"`
	B string `db:"x"`
}

func TestParseCollectsTaggedFields(t *testing.T) {
	m, err := parse(reflect.TypeOf(User{}))
	require.NoError(t, err)

	assert.Equal(t, "User", m.TypeName)
	assert.Equal(t, []string{"created_at", "id", "Email"}, m.Names())

	c, ok := m.Lookup("created_at")
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, c.Index)

	c, ok = m.Lookup("email")
	require.True(t, ok)
	assert.Equal(t, "Email", c.Field)

	_, ok = m.Lookup("hidden")
	assert.False(t, ok)
	_, ok = m.Lookup("NoTag")
	assert.False(t, ok)
}

func TestParseRejectsInvalidStructs(t *testing.T) {
	tests := []struct {
		name     string
		typ      reflect.Type
		expected string
	}{
		{"not a struct", reflect.TypeOf(42), "expected a struct"},
		{"no tags", reflect.TypeOf(NoTags{}), "no fields with `db` tags"},
		{"dangerous", reflect.TypeOf(Dangerous{}), "dangerous SQL characters"},
		{"quoted", reflect.TypeOf(Quoted{}), "contains quotes"},
		{"duplicate", reflect.TypeOf(Duplicate{}), "duplicate db tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.typ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestRegistryDereferencesAndCaches(t *testing.T) {
	r := &Registry{}

	var users []*User
	a, err := r.Get(reflect.TypeOf(&users))
	require.NoError(t, err)
	b, err := r.Get(reflect.TypeOf(&User{}))
	require.NoError(t, err)
	assert.Same(t, a, b)

	r.Clear()
	c, err := r.Get(reflect.TypeOf(User{}))
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	_, err = r.Get(nil)
	assert.Error(t, err)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := &Registry{}
	var wg sync.WaitGroup
	results := make([]*Metadata, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Get(reflect.TypeOf(User{}))
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}
