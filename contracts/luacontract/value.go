// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package luacontract

import (
	"math"

	"github.com/Shopify/go-lua"
)

// pushValue pushes a decoded JSON value.
func pushValue(l *lua.State, v interface{}) {
	switch v := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(v)
	case float64:
		if math.Mod(v, 1) == 0 && math.Abs(v) < 1<<53 {
			l.PushInteger(int(v))
		} else {
			l.PushNumber(v)
		}
	case string:
		l.PushString(v)
	case []interface{}:
		l.CreateTable(len(v), 0)
		for i, e := range v {
			pushValue(l, e)
			l.RawSetInt(-2, i+1)
		}
	case map[string]interface{}:
		l.CreateTable(0, len(v))
		for k, e := range v {
			pushValue(l, e)
			l.SetField(-2, k)
		}
	default:
		l.PushNil()
	}
}

// toValue converts the value at [index] into something encoding/json can
// marshal. Tables with keys 1..n become arrays, other tables objects.
func toValue(l *lua.State, index int) interface{} {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		if math.Mod(n, 1) == 0 {
			return int64(n)
		}
		return n
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return tableValue(l, index)
	default:
		return nil
	}
}

func tableValue(l *lua.State, index int) interface{} {
	index = l.AbsIndex(index)
	isArray := true
	count, maxIndex := 0, 0
	l.PushNil()
	for l.Next(index) {
		if isArray {
			if i, ok := l.ToInteger(-2); ok && l.TypeOf(-2) == lua.TypeNumber && i > 0 {
				count++
				if i > maxIndex {
					maxIndex = i
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]interface{}, 0, count)
		for i := 1; i <= count; i++ {
			l.RawGetInt(index, i)
			out = append(out, toValue(l, -1))
			l.Pop(1)
		}
		return out
	}

	out := map[string]interface{}{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			k, _ := l.ToString(-2)
			out[k] = toValue(l, -1)
		}
		l.Pop(1)
	}
	return out
}
