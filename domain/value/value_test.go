package value

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logica-lang/logica/domain/expression"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"none", nil, "none"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"string unquoted", "hi", "hi"},
		{"int", 42, "42"},
		{"float", 2.5, "2.5"},
		{"status", expression.StatusActive, "active"},
		{"map", map[string]interface{}{"b": 2, "a": "x"}, `{a: "x", b: 2}`},
		{"list", []interface{}{1, "two"}, `[1, "two"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestRepr(t *testing.T) {
	assert.Equal(t, `"hi"`, Repr("hi"))
	assert.Equal(t, "42", Repr(42))
	assert.Equal(t, "none", Repr(nil))
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want bool
	}{
		{"none", nil, false},
		{"false", false, false},
		{"zero", 0, false},
		{"zero float", 0.0, false},
		{"empty string", "", false},
		{"nonzero", 3, true},
		{"string", "x", true},
		{"active", expression.StatusActive, true},
		{"inactive", expression.StatusInactive, false},
		{"broken", expression.StatusBroken, false},
		{"empty map", map[string]interface{}{}, false},
		{"full list", []interface{}{1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.in))
		})
	}
}

func TestBinaryArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   string
		a, b interface{}
		want interface{}
	}{
		{"int add", "+", 2, 3, 5},
		{"float add", "+", 2.5, 1, 3.5},
		{"string concat", "+", "a", "b", "ab"},
		{"string plus int", "+", "a", 1, nil},
		{"subtract", "-", 7, 2, 5},
		{"multiply", "*", 3, 4, 12},
		{"divide is float", "/", 10, 4, 2.5},
		{"divide by zero", "/", 1, 0, nil},
		{"modulo", "%", 7, 3, 1},
		{"modulo by zero", "%", 7, 0, nil},
		{"modulo floats", "%", 7.5, 2, nil},
		{"unknown op", "**", 2, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Binary(tt.op, tt.a, tt.b))
		})
	}
}

func TestBinaryComparison(t *testing.T) {
	assert.Equal(t, true, Binary("==", 2, 2.0))
	assert.Equal(t, false, Binary("==", 2, "2"))
	assert.Equal(t, true, Binary("!=", 1, 2))
	assert.Equal(t, true, Binary("<", 1, 2))
	assert.Equal(t, true, Binary(">=", 2, 2))
	assert.Equal(t, true, Binary("<", "a", "b"))
	assert.Nil(t, Binary("<", 1, "b"), "mixed comparison yields none")
}

func TestBinaryLogic(t *testing.T) {
	// and/or return an operand, like the source language.
	assert.Equal(t, 0, Binary("and", 0, 5))
	assert.Equal(t, 5, Binary("and", 1, 5))
	assert.Equal(t, 1, Binary("or", 1, 5))
	assert.Equal(t, 5, Binary("or", 0, 5))
}

func TestNegate(t *testing.T) {
	assert.Equal(t, -3, Negate(3))
	assert.Equal(t, -1.5, Negate(1.5))
	assert.Nil(t, Negate("x"))
}

func TestIndexAndMember(t *testing.T) {
	m := map[string]interface{}{"k": 1}
	l := []interface{}{"a", "b"}

	assert.Equal(t, 1, Index(m, "k"))
	assert.Nil(t, Index(m, 0))
	assert.Equal(t, "b", Index(l, 1))
	assert.Nil(t, Index(l, 5))
	assert.Nil(t, Index(42, 0))

	assert.Equal(t, 1, Member(m, "k"))
	assert.Nil(t, Member(l, "k"))
}
