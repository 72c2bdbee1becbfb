package scoring

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// NoSelection is the sentinel a client sends for an untouched single-choice
// question.
const NoSelection = -1

// Normalize folds case and trims surrounding whitespace. Free-text answers
// and answer keys are compared after this normalization.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// AsIndex interprets v as an option index. Integers, integral floats,
// json.Number and numeric strings are accepted so that values which went
// through text or float encoding compare equal to their integer form.
func AsIndex(v any) (int, bool) {
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		return parseIndex(n.String())
	case string:
		return parseIndex(n)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt32 {
			return 0, false
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		return floatIndex(rv.Float())
	}
	return 0, false
}

// AsIndexSet interprets v as a list of option indices and removes
// duplicates. Any element that is not an index makes the whole value a
// shape mismatch.
func AsIndexSet(v any) (map[int]struct{}, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a string in disguise, not a list of indices.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	set := make(map[int]struct{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		idx, ok := AsIndex(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		set[idx] = struct{}{}
	}
	return set, true
}

// AsText interprets v as a free-text answer.
func AsText(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func parseIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatIndex(f)
}

func floatIndex(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func toSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return set
}
