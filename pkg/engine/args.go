package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/pointyard/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword is a bare flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts :random as well as "random".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toInt extracts a whole number.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool treats a bare trailing keyword (nil) as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toFloats extracts a list or array of numbers.
func toFloats(s zygo.Sexp) ([]float64, error) {
	elems, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		if out[i], err = toFloat64(e); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// sexpKey carries an item key between builtins.
type sexpKey struct {
	key scene.Key
}

func (k *sexpKey) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(item %q)", k.key.String())
}
func (k *sexpKey) Type() *zygo.RegisteredType { return nil }

// toKey accepts a key value or a "dataset/item" string.
func toKey(s zygo.Sexp) (scene.Key, error) {
	switch v := s.(type) {
	case *sexpKey:
		return v.key, nil
	case *zygo.SexpStr:
		return scene.ParseKey(v.S)
	}
	return scene.Key{}, fmt.Errorf("expected item, got %T (%s)", s, s.SexpString(nil))
}

// toKeys flattens keys, strings and nested lists of either into a
// selection.
func toKeys(args []zygo.Sexp) ([]scene.Key, error) {
	var out []scene.Key
	for _, a := range args {
		switch a.(type) {
		case *sexpKey, *zygo.SexpStr:
			k, err := toKey(a)
			if err != nil {
				return nil, err
			}
			out = append(out, k)
		default:
			elems, err := sexpListToSlice(a)
			if err != nil {
				return nil, fmt.Errorf("expected item or list of items: %w", err)
			}
			sub, err := toKeys(elems)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// keyList returns keys as a list of item values.
func keyList(keys []scene.Key) zygo.Sexp {
	if len(keys) == 0 {
		return zygo.SexpNull
	}
	elems := make([]zygo.Sexp, len(keys))
	for i, k := range keys {
		elems[i] = &sexpKey{key: k}
	}
	return zygo.MakeList(elems)
}
