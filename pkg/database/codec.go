package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// toDocument encodes doc through its bson tags and makes sure it carries a
// string _id, generating one when it is absent or empty.
func toDocument(doc any) (bson.D, string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("encode record: %w", err)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, "", fmt.Errorf("decode record: %w", err)
	}

	for i, e := range d {
		if e.Key != IDField {
			continue
		}
		switch v := e.Value.(type) {
		case string:
			if v != "" {
				return d, v, nil
			}
		case nil:
		default:
			return nil, "", fmt.Errorf("record %s must be a string, got %T", IDField, e.Value)
		}
		id := NewID()
		d[i].Value = id
		return d, id, nil
	}

	id := NewID()
	return append(bson.D{{Key: IDField, Value: id}}, d...), id, nil
}

// sortedKeys keeps generated queries and documents deterministic.
func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func filterDocument(f Filter) bson.D {
	d := make(bson.D, 0, len(f))
	for _, k := range sortedKeys(f) {
		d = append(d, bson.E{Key: k, Value: f[k]})
	}
	return d
}

func patchDocument(p Patch) (bson.D, error) {
	d := make(bson.D, 0, len(p))
	for _, k := range sortedKeys(p) {
		if k == IDField {
			return nil, errors.New("patch must not change the record id")
		}
		d = append(d, bson.E{Key: k, Value: p[k]})
	}
	return d, nil
}

// mergePatch overwrites fields of d named in patch, appending new ones.
func mergePatch(d bson.D, patch bson.D) bson.D {
	out := make(bson.D, len(d))
	copy(out, d)
	for _, pe := range patch {
		replaced := false
		for i := range out {
			if out[i].Key == pe.Key {
				out[i].Value = pe.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, pe)
		}
	}
	return out
}

// matches reports whether every element of filter equals the same key in record.
// A null filter value also matches a missing field.
func matches(record, filter bson.Raw) bool {
	elems, err := filter.Elements()
	if err != nil {
		return false
	}
	for _, e := range elems {
		want := e.Value()
		got, err := record.LookupErr(e.Key())
		if err != nil {
			if want.Type == bson.TypeNull {
				continue
			}
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two bson values, treating numbers of different widths as equal when their values are.
func valuesEqual(a, b bson.RawValue) bool {
	if a.Type == b.Type {
		return a.Equal(b)
	}
	an, aok := numeric(a)
	bn, bok := numeric(b)
	return aok && bok && an == bn
}

func numeric(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bson.TypeInt32:
		return float64(v.Int32()), true
	case bson.TypeInt64:
		return float64(v.Int64()), true
	case bson.TypeDouble:
		return v.Double(), true
	}
	return 0, false
}

// decodeAll decodes each record into a new element of the slice out points to.
func decodeAll(records []bson.Raw, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("find result must be a pointer to a slice, got %T", out)
	}
	slice := reflect.MakeSlice(rv.Elem().Type(), 0, len(records))
	elemType := slice.Type().Elem()
	for _, raw := range records {
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	rv.Elem().Set(slice)
	return nil
}

// extJSON renders a bson document as relaxed extended JSON, the representation kept in JSONB columns.
func extJSON(d bson.D) ([]byte, error) {
	return bson.MarshalExtJSON(d, false, false)
}

// fromExtJSON parses relaxed extended JSON back into bson bytes.
func fromExtJSON(data []byte) (bson.Raw, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("decode record json: %w", err)
	}
	return bson.Marshal(d)
}

// valueJSON renders a single value the way it appears inside an extended JSON document.
func valueJSON(v any) (string, error) {
	doc, err := extJSON(bson.D{{Key: "v", Value: v}})
	if err != nil {
		return "", err
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(doc, &wrapper); err != nil {
		return "", err
	}
	return string(wrapper["v"]), nil
}
