package db

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	type CustomInt int
	type S struct {
		I   int        `db:"i"`
		PI  *int       `db:"pi"`
		CI  CustomInt  `db:"ci"`
		PCI *CustomInt `db:"pci"`
		B   bool       `db:"b"`
		PB  *bool      `db:"pb"`

		NoTag int
	}
	type Nested struct {
		S  S  `db:"s"`
		PS *S `db:"ps"`

		NoTag S
	}

	names, paths := getColumnNamesAndPaths(reflect.TypeOf(Nested{}), nil, nil)
	assert.Equal(t, []columnName{
		{"s", "i"}, {"s", "pi"},
		{"s", "ci"}, {"s", "pci"},
		{"s", "b"}, {"s", "pb"},
		{"ps", "i"}, {"ps", "pi"},
		{"ps", "ci"}, {"ps", "pci"},
		{"ps", "b"}, {"ps", "pb"},
	}, names)
	assert.Equal(t, []fieldPath{
		{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5},
		{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}, {1, 5},
	}, paths)
	assert.True(t, len(names) == len(paths))

	testStruct := Nested{}
	for i, path := range paths {
		val, field := followPathThroughStructs(reflect.ValueOf(&testStruct), path)
		assert.True(t, val.IsValid())
		assert.True(t, strings.EqualFold(names[i][len(names[i])-1], field.Name))
	}
}

func TestCompileQuery(t *testing.T) {
	t.Run("simple struct", func(t *testing.T) {
		type Dest struct {
			Foo  int    `db:"foo"`
			Bar  bool   `db:"bar"`
			Nope string // no tag
		}

		compiled := compileQuery("SELECT $columns FROM greeblies", reflect.TypeOf(Dest{}))
		assert.Equal(t, "SELECT foo, bar FROM greeblies", compiled.query)
	})
	t.Run("struct with prefix", func(t *testing.T) {
		type Dest struct {
			Foo int  `db:"foo"`
			Bar bool `db:"bar"`
		}

		compiled := compileQuery("SELECT $columns{g} FROM greeblies AS g", reflect.TypeOf(Dest{}))
		assert.Equal(t, "SELECT g.foo, g.bar FROM greeblies AS g", compiled.query)
	})
	t.Run("nested structs", func(t *testing.T) {
		type Inner struct {
			Foo int `db:"foo"`
		}
		type Dest struct {
			Inner Inner  `db:"inner"`
			Baz   string `db:"baz"`
		}

		compiled := compileQuery("SELECT $columns FROM greeblies", reflect.TypeOf(Dest{}))
		assert.Equal(t, "SELECT inner.foo, baz FROM greeblies", compiled.query)
	})
}

func TestQueryBuilder(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		var qb QueryBuilder
		qb.Add("SELECT stuff FROM thing WHERE foo = $? AND bar = $?", 3, "hello")
		qb.Add("AND (baz = $?)", true)

		assert.Equal(t, "SELECT stuff FROM thing WHERE foo = $1 AND bar = $2\nAND (baz = $3)\n", qb.String())
		assert.Equal(t, []interface{}{3, "hello", true}, qb.Args())
	})
	t.Run("too few arguments", func(t *testing.T) {
		var qb QueryBuilder
		assert.Panics(t, func() {
			qb.Add("HELLO $? $? $?", 1, 2)
		})
	})
	t.Run("too many arguments", func(t *testing.T) {
		var qb QueryBuilder
		assert.Panics(t, func() {
			qb.Add("HELLO $? $? $?", 1, 2, 3, 4)
		})
	})
}
