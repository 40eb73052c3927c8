package compdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/compdata/pkg/composite"
)

func applyFctn(t *testing.T, name, operand string, attrs map[string]string, val interface{}) interface{} {
	t.Helper()

	fn, ok := scalarFuncs[name]
	require.True(t, ok, "function %s not in dispatch table", name)

	if attrs == nil {
		attrs = map[string]string{}
	}

	ctx := &fctnContext{
		fctn: &composite.Fctn{Name: name, Value: operand, Attrs: attrs},
		row:  Row{"name": "eth0"},
		host: "h1",
	}

	return fn(val, operand, ctx)
}

func TestScalarArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		fn      string
		operand string
		val     interface{}
		want    interface{}
	}{
		{"add", "+", "2", float64(3), float64(5)},
		{"subtract", "-", "1", float64(3), float64(2)},
		{"multiply", "*", "8", float64(4), float64(32)},
		{"divide", "/", "4", float64(10), float64(2.5)},
		{"divide by zero", "/", "0", float64(10), nil},
		{"modulus", "%", "3", float64(10), float64(1)},
		{"modulus by zero", "%", "0", float64(10), nil},
		{"undefined propagates", "+", "2", nil, nil},
		{"non-numeric value", "+", "2", "oops", nil},
		{"sum of singleton", "sum", "", float64(7), float64(7)},
		{"max of singleton", "max", "", "12.5", float64(12.5)},
		{"min undefined", "min", "", nil, nil},
		{"ln", "ln", "", float64(1), float64(0)},
		{"ln of zero", "ln", "", float64(0), nil},
		{"log10", "log10", "", float64(1000), float64(3)},
		{"log10 of zero", "log10", "", float64(0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyFctn(t, tt.fn, tt.operand, nil, tt.val)

			if want, ok := tt.want.(float64); ok {
				require.IsType(t, float64(0), got)
				assert.InDelta(t, want, got.(float64), 1e-9)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScalarRegexp(t *testing.T) {
	t.Run("capture group replaces value", func(t *testing.T) {
		got := applyFctn(t, "regexp", `^eth([0-9]+)$`, nil, "eth7")
		assert.Equal(t, "7", got)
	})

	t.Run("no match passes through", func(t *testing.T) {
		got := applyFctn(t, "regexp", `^lo$`, nil, "eth7")
		assert.Equal(t, "eth7", got)
	})

	t.Run("no capture groups leaves value untouched", func(t *testing.T) {
		got := applyFctn(t, "regexp", `^eth[0-9]+$`, nil, "eth7")
		assert.Equal(t, "eth7", got)
	})

	t.Run("undefined propagates", func(t *testing.T) {
		assert.Nil(t, applyFctn(t, "regexp", `^(e)`, nil, nil))
	})
}

func TestScalarReplace(t *testing.T) {
	t.Run("replaces matches", func(t *testing.T) {
		got := applyFctn(t, "replace", `[0-9]+`, map[string]string{"with": "N"}, "eth7")
		assert.Equal(t, "ethN", got)
	})

	t.Run("no match is a no-op", func(t *testing.T) {
		got := applyFctn(t, "replace", `xyz`, map[string]string{"with": "N"}, "eth7")
		assert.Equal(t, "eth7", got)
	})

	t.Run("undefined propagates", func(t *testing.T) {
		assert.Nil(t, applyFctn(t, "replace", `e`, map[string]string{"with": "x"}, nil))
	})
}

func TestScalarRPN(t *testing.T) {
	got := applyFctn(t, "rpn", "8 * 1000000000 / 100 *", nil, float64(125000))

	require.IsType(t, float64(0), got)
	assert.InDelta(t, 0.1, got.(float64), 1e-9)
}
