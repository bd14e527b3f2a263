package lattice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMax_Meet(t *testing.T) {
	l := Max{}
	assert.Equal(t, int64(8), l.Meet(8, 3))
	assert.Equal(t, int64(8), l.Meet(3, 8))
	assert.Equal(t, l.Top(), l.Meet(l.Top(), 5))
	assert.Equal(t, int64(5), l.Meet(l.Bottom(), 5))
}

func TestMaxAdd(t *testing.T) {
	tests := []struct {
		name  string
		delta int64
		in    int64
		want  int64
	}{
		{name: "zero delta", delta: 0, in: 7, want: 7},
		{name: "positive", delta: 3, in: 7, want: 10},
		{name: "negative", delta: -10, in: 7, want: -3},
		{name: "saturates at top", delta: 5, in: math.MaxInt64 - 2, want: math.MaxInt64},
		{name: "saturates at bottom", delta: -5, in: math.MinInt64 + 2, want: math.MinInt64},
		{name: "top is sticky", delta: -1, in: math.MaxInt64, want: math.MaxInt64},
		{name: "bottom is sticky", delta: 1, in: math.MinInt64, want: math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxAdd(tt.delta).Apply(tt.in))
		})
	}
}

func TestConst_Meet(t *testing.T) {
	var (
		l       = Const{}
		undef   = l.Bottom()
		unknown = l.Top()
	)

	tests := []struct {
		name string
		a, b ConstValue
		want ConstValue
	}{
		{name: "equal constants", a: Of(2), b: Of(2), want: Of(2)},
		{name: "different constants", a: Of(2), b: Of(3), want: unknown},
		{name: "undefined left", a: undef, b: Of(3), want: Of(3)},
		{name: "undefined right", a: Of(3), b: undef, want: Of(3)},
		{name: "unknown absorbs", a: unknown, b: Of(3), want: unknown},
		{name: "unknown absorbs undefined", a: undef, b: unknown, want: unknown},
		{name: "both undefined", a: undef, b: undef, want: undef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Meet(tt.a, tt.b))
			assert.Equal(t, tt.want, l.Meet(tt.b, tt.a))
		})
	}
}

func TestConstEdgeFunctions(t *testing.T) {
	unknown := Const{}.Top()
	undef := Const{}.Bottom()

	tests := []struct {
		name string
		got  ConstValue
		want ConstValue
	}{
		{name: "set", got: ConstSet(4).Apply(unknown), want: Of(4)},
		{name: "add", got: ConstAdd(2).Apply(Of(5)), want: Of(7)},
		{name: "add zero", got: ConstAdd(0).Apply(Of(5)), want: Of(5)},
		{name: "add unknown", got: ConstAdd(2).Apply(unknown), want: unknown},
		{name: "add undefined", got: ConstAdd(2).Apply(undef), want: undef},
		{name: "mul", got: ConstMul(3).Apply(Of(-4)), want: Of(-12)},
		{name: "mul one", got: ConstMul(1).Apply(Of(9)), want: Of(9)},
		{name: "mul zero unknown", got: ConstMul(0).Apply(unknown), want: Of(0)},
		{name: "mul unknown", got: ConstMul(2).Apply(unknown), want: unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConstValue_String(t *testing.T) {
	assert.Equal(t, "undefined", Const{}.Bottom().String())
	assert.Equal(t, "unknown", Const{}.Top().String())
	assert.Equal(t, "-3", Of(-3).String())
	assert.Equal(t, "ConstKind(9)", ConstValue{Kind: 9}.String())

	n, ok := Of(12).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)
	_, ok = Const{}.Top().Int()
	assert.False(t, ok)
}
