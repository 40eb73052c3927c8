// Package compdata pkg/compdata/functions.go
package compdata

import (
	"math"
	"regexp"

	"github.com/mfreeman451/compdata/pkg/composite"
)

// fctnContext carries the row-level state a transform may reference.
type fctnContext struct {
	fctn     *composite.Fctn
	row      Row
	host     string
	hostVars map[string]interface{}
	warn     func(token string)
}

// Field implements rpnEnv.
func (c *fctnContext) Field(name string) interface{} {
	return c.row[name]
}

// HostVar implements rpnEnv.
func (c *fctnContext) HostVar(name string) interface{} {
	return c.hostVars[name]
}

// Host implements rpnEnv.
func (c *fctnContext) Host() string {
	return c.host
}

// scalarFunc transforms one value. Undefined inputs propagate to
// undefined outputs unless a function states otherwise.
type scalarFunc func(val interface{}, operand string, ctx *fctnContext) interface{}

// scalarFuncs is the per-value dispatch table; constant after program
// start.
var scalarFuncs = map[string]scalarFunc{
	"sum": reduceSingleton,
	"max": reduceSingleton,
	"min": reduceSingleton,
	"+":   func(v interface{}, op string, _ *fctnContext) interface{} { return arith(v, op, func(a, b float64) (float64, bool) { return a + b, true }) },
	"-":   func(v interface{}, op string, _ *fctnContext) interface{} { return arith(v, op, func(a, b float64) (float64, bool) { return a - b, true }) },
	"*":   func(v interface{}, op string, _ *fctnContext) interface{} { return arith(v, op, func(a, b float64) (float64, bool) { return a * b, true }) },
	"/": func(v interface{}, op string, _ *fctnContext) interface{} {
		return arith(v, op, func(a, b float64) (float64, bool) {
			if b == 0 {
				return 0, false
			}

			return a / b, true
		})
	},
	"%": func(v interface{}, op string, _ *fctnContext) interface{} {
		return arith(v, op, func(a, b float64) (float64, bool) {
			if b == 0 {
				return 0, false
			}

			return float64(int64(a) % int64(b)), true
		})
	},
	"ln":     mathFn(lnOrUndef),
	"log10":  mathFn(log10OrUndef),
	"regexp": regexpFn,
	"replace": func(v interface{}, op string, ctx *fctnContext) interface{} {
		if v == nil {
			return nil
		}

		re, err := regexp.Compile(op)
		if err != nil {
			return nil
		}

		return re.ReplaceAllString(toString(v), ctx.fctn.With())
	},
	"rpn": func(v interface{}, op string, ctx *fctnContext) interface{} {
		return evalRPN(op, v, ctx, ctx.warn)
	},
}

// reduceSingleton reduces the one-element set [value]: sum, max and
// min of a singleton are the value itself, numerically coerced.
func reduceSingleton(v interface{}, _ string, _ *fctnContext) interface{} {
	if v == nil {
		return nil
	}

	f, ok := toNumber(v)
	if !ok {
		return nil
	}

	return f
}

func arith(v interface{}, operand string, f func(a, b float64) (float64, bool)) interface{} {
	if v == nil {
		return nil
	}

	a, aok := toNumber(v)
	b, bok := toNumber(operand)

	if !aok || !bok {
		return nil
	}

	if r, ok := f(a, b); ok {
		return r
	}

	return nil
}

func mathFn(f func(a float64) (float64, bool)) scalarFunc {
	return func(v interface{}, _ string, _ *fctnContext) interface{} {
		if v == nil {
			return nil
		}

		a, ok := toNumber(v)
		if !ok {
			return nil
		}

		if r, ok := f(a); ok {
			return r
		}

		return nil
	}
}

func lnOrUndef(a float64) (float64, bool) {
	if a <= 0 {
		return 0, false
	}

	return math.Log(a), true
}

func log10OrUndef(a float64) (float64, bool) {
	if a <= 0 {
		return 0, false
	}

	return math.Log10(a), true
}

// regexpFn matches the operand against the value: on match, capture
// group 1 replaces the value; a pattern without capture groups, or no
// match at all, passes the value through.
func regexpFn(v interface{}, operand string, _ *fctnContext) interface{} {
	if v == nil {
		return nil
	}

	re, err := regexp.Compile(operand)
	if err != nil {
		return nil
	}

	groups := re.FindStringSubmatch(toString(v))
	if len(groups) > 1 {
		return groups[1]
	}

	return v
}
