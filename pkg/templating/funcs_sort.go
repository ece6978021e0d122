package templating

import (
	"fmt"
	"reflect"
	"sort"
)

// sortByChar returns a sorted copy of a slice of records, ordered
// non-decreasing by each record's Char field. The sort is stable, so
// records sharing a char keep their module order. The input slice is
// never modified; pages iterate over aggregate views that other pages
// also use.
func sortByChar(v any) (any, error) {
	return sortBy("Char", v)
}

// sortBy returns a stably sorted copy of a slice of structs (or pointers
// to structs), ordered by the named string field.
func sortBy(field string, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("sortBy wants a slice, got %T", v)
	}

	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)

	var fieldErr error
	sort.SliceStable(out.Interface(), func(i, j int) bool {
		a, errA := fieldString(out.Index(i), field)
		b, errB := fieldString(out.Index(j), field)
		if fieldErr == nil {
			if errA != nil {
				fieldErr = errA
			} else if errB != nil {
				fieldErr = errB
			}
		}
		return a < b
	})
	if fieldErr != nil {
		return nil, fieldErr
	}

	return out.Interface(), nil
}

func fieldString(v reflect.Value, name string) (string, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", fmt.Errorf("cannot sort nil record by %s", name)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", fmt.Errorf("cannot sort %s records by field %s", v.Kind(), name)
	}
	f := v.FieldByName(name)
	if !f.IsValid() {
		return "", fmt.Errorf("records have no field %s", name)
	}
	if f.Kind() != reflect.String {
		return "", fmt.Errorf("field %s is %s, not a string", name, f.Kind())
	}
	return f.String(), nil
}
