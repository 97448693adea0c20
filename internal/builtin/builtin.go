// Provides the functions available under the "builtin" container.
//
// These cover the common aggregate views so a server started without
// plugins can already answer map and reduce requests:
//
//	builtin.by_id    map: emits [doc._id, null]
//	builtin.trace    map: like by_id, and logs every document it sees
//	builtin.sum      reduce: sum of numeric values
//	builtin.count    reduce: number of rows
//	builtin.stats    reduce: sum, count, min, max and sum of squares
package builtin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relaxhq/relaxd/internal/functions"
)

// Container name the builtins are registered under.
const Container = "builtin"

var (
	ErrNotNumber  = errors.New("value is not a number")
	ErrNoID       = errors.New("document has no string _id")
	ErrStatsShape = errors.New("value is not a stats object")
)

// Registers every builtin in c.
func Register(c *functions.Catalog) {
	c.RegisterNamespace(Container, map[string]any{
		"by_id": functions.MapFunc(ByID),
		"trace": functions.LogAware(Trace),
		"sum":   functions.ReduceFunc(Sum),
		"count": functions.ReduceFunc(Count),
		"stats": functions.ReduceFunc(Stats),
	})
}

// Emits the document id with a null value.
func ByID(doc functions.Document, emit functions.Emit) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	emit(id, nil)
	return nil
}

// Returns a [ByID] variant that logs each document id through r.
func Trace(r functions.Reporter) any {
	return functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
		id, err := docID(doc)
		if err != nil {
			return err
		}
		r.Log("mapping " + id)
		emit(id, nil)
		return nil
	})
}

// Adds up numeric values. Reduce and rereduce are the same operation.
func Sum(keys, values []any, rereduce bool) (any, error) {
	var total float64
	for _, v := range values {
		n, err := number(v)
		if err != nil {
			return nil, err
		}
		total += n
	}
	return total, nil
}

// Counts rows. On rereduce, adds up the partial counts.
func Count(keys, values []any, rereduce bool) (any, error) {
	if !rereduce {
		return len(values), nil
	}
	return Sum(nil, values, true)
}

// Summary statistics over numeric values.
type Summary struct {
	Sum    float64 `json:"sum"`
	Count  float64 `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	SumSqr float64 `json:"sumsqr"`
}

// Computes a [Summary]. On rereduce, merges the partial summaries.
func Stats(keys, values []any, rereduce bool) (any, error) {
	var out Summary
	for i, v := range values {
		s, err := summaryOf(v, rereduce)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out = s
			continue
		}
		out.Sum += s.Sum
		out.Count += s.Count
		out.Min = min(out.Min, s.Min)
		out.Max = max(out.Max, s.Max)
		out.SumSqr += s.SumSqr
	}
	return out, nil
}

// Returns the summary for a single input value.
func summaryOf(v any, rereduce bool) (Summary, error) {
	if !rereduce {
		n, err := number(v)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Sum: n, Count: 1, Min: n, Max: n, SumSqr: n * n}, nil
	}

	if s, ok := v.(Summary); ok {
		return s, nil
	}

	// Partial results come back from the host as decoded JSON objects.
	data, err := json.Marshal(v)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrStatsShape, err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("%w: %s", ErrStatsShape, data)
	}
	return s, nil
}

// Converts a decoded JSON number to float64.
func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("%w: %v", ErrNotNumber, v)
}

// Returns the "_id" field of a document object.
func docID(doc functions.Document) (string, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return "", ErrNoID
	}
	id, ok := obj["_id"].(string)
	if !ok {
		return "", ErrNoID
	}
	return id, nil
}
