package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/relaxhq/relaxd/internal/functions"
	"github.com/relaxhq/relaxd/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Builds the catalog shared by the session and server tests.
func testCatalog() *functions.Catalog {
	c := functions.NewCatalog()

	c.RegisterNamespace("mod", map[string]any{
		"myfun": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			emit("k", 1)
			return nil
		}),
		"other": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			emit(doc.(map[string]any)["_id"], 2)
			return nil
		}),
		"multiline": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			emit("line one\nline two", "\r\n")
			return nil
		}),
		"boom": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			emit("discarded", nil)
			return errors.New("boom")
		}),
		"panics": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			var m map[string]any
			m["x"] = 1
			return nil
		}),
		"field_n": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			emit(doc.(map[string]any)["n"], nil)
			return nil
		}),
		"inf": functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
			emit("k", math.Inf(1))
			return nil
		}),
		"nan": functions.ReduceFunc(func(keys, values []any, rereduce bool) (any, error) {
			return math.NaN(), nil
		}),
		"loud": functions.LogAware(func(r functions.Reporter) any {
			return functions.ReduceFunc(func(keys, values []any, rereduce bool) (any, error) {
				r.Log(fmt.Sprintf("reducing %d values", len(values)))
				return len(values), nil
			})
		}),
		"watchful": functions.LogAware(func(r functions.Reporter) any {
			return functions.ValidateFunc(func(newDoc, oldDoc, userCtx functions.Document) (any, error) {
				r.Log("checking " + newDoc.(map[string]any)["_id"].(string))
				return true, nil
			})
		}),
		"chatty": functions.LogAware(func(r functions.Reporter) any {
			return functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
				r.Log("saw a document")
				return nil
			})
		}),
		"mysum": functions.ReduceFunc(func(keys, values []any, rereduce bool) (any, error) {
			var total float64
			for _, v := range values {
				n, err := v.(json.Number).Float64()
				if err != nil {
					return nil, err
				}
				total += n
			}
			return total, nil
		}),
		"keys": functions.ReduceFunc(func(keys, values []any, rereduce bool) (any, error) {
			return keys, nil
		}),
		"flags": functions.ReduceFunc(func(keys, values []any, rereduce bool) (any, error) {
			return []any{keys == nil, rereduce}, nil
		}),
		"failing": functions.ReduceFunc(func(keys, values []any, rereduce bool) (any, error) {
			return nil, errors.New("cannot reduce")
		}),
		"ok": functions.ValidateFunc(func(newDoc, oldDoc, userCtx functions.Document) (any, error) {
			return true, nil
		}),
		"reject": functions.ValidateFunc(func(newDoc, oldDoc, userCtx functions.Document) (any, error) {
			return false, nil
		}),
		"forbid": functions.ValidateFunc(func(newDoc, oldDoc, userCtx functions.Document) (any, error) {
			return nil, errors.New("forbidden")
		}),
		"silent": functions.ValidateFunc(func(newDoc, oldDoc, userCtx functions.Document) (any, error) {
			return nil, nil
		}),
		"echo_user": functions.ValidateFunc(func(newDoc, oldDoc, userCtx functions.Document) (any, error) {
			return userCtx.(map[string]any)["name"], nil
		}),
	})

	return c
}

// Feeds input to a fresh session and returns the output lines.
func run(t *testing.T, input string) []string {
	t.Helper()

	var out bytes.Buffer
	rw := struct {
		io.Reader
		io.Writer
	}{strings.NewReader(input), &out}

	require.NoError(t, newSession(rw, testCatalog()).serve())

	if out.Len() == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
}

// Joins lines into newline-terminated input.
func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

func TestSessionEndToEnd(t *testing.T) {
	got := run(t, lines(
		`["reset"]`,
		`["add_fun", "mod.myfun"]`,
		`["map_doc", {"_id": "x"}]`,
		`["reduce", ["mod.mysum"], [[["k", "x"], 1]]]`,
	))

	assert.Equal(t, []string{
		`true`,
		`true`,
		`[[["k",1]]]`,
		`[true,[1]]`,
	}, got)
}

func TestMapDocOrdinalOrder(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.myfun"]`,
		`["add_fun", "mod.other"]`,
		`["map_doc", {"_id": "x"}]`,
		`["add_fun", "mod.myfun"]`,
		`["map_doc", {"_id": "y"}]`,
	))

	require.Len(t, got, 5)
	assert.Equal(t, `[[["k",1]],[["x",2]]]`, got[2])
	assert.Equal(t, `[[["y",2]],[["k",1]]]`, got[4], "re-added function moves to the end")
}

func TestAddFunFailureOccupiesNoSlot(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.missing"]`,
		`["add_fun", "nodots"]`,
		`["add_fun", " mod.myfun "]`,
		`["map_doc", {"_id": "x"}]`,
	))

	assert.Equal(t, []string{
		`{"error":"FunctionNotFound","reason":"function not found: \"mod.missing\""}`,
		`{"error":"FunctionNotFound","reason":"function not found: \"nodots\""}`,
		`true`,
		`[[["k",1]]]`,
	}, got)
}

func TestMapDocEmptyRegistry(t *testing.T) {
	got := run(t, lines(
		`["map_doc", {"_id": "x"}]`,
		`["add_fun", "mod.myfun"]`,
		`["reset"]`,
		`["map_doc", {"_id": "x"}]`,
	))

	assert.Equal(t, []string{`[]`, `true`, `true`, `[]`}, got)
}

func TestMapDocFailureIsolated(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.myfun"]`,
		`["add_fun", "mod.boom"]`,
		`["add_fun", "mod.other"]`,
		`["map_doc", {"_id": "x"}]`,
		`["map_doc", {"_id": "y"}]`,
	))

	assert.Equal(t, []string{
		`true`,
		`true`,
		`true`,
		`{"log":"mod.boom: boom"}`,
		`[[["k",1]],[],[["x",2]]]`,
		`{"log":"mod.boom: boom"}`,
		`[[["k",1]],[],[["y",2]]]`,
	}, got)
}

func TestMapDocPanicIsolated(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.panics"]`,
		`["add_fun", "mod.myfun"]`,
		`["map_doc", {}]`,
	))

	require.Len(t, got, 4)
	assert.True(t, strings.HasPrefix(got[2], `{"log":"mod.panics: function panicked`), got[2])
	assert.Equal(t, `[[],[["k",1]]]`, got[3])
}

func TestMapDocNonMapFunction(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.mysum"]`,
		`["map_doc", {}]`,
	))

	require.Len(t, got, 3)
	assert.Contains(t, got[1], "is not a map function")
	assert.Equal(t, `[[]]`, got[2])
}

func TestMapDocLogAware(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.chatty"]`,
		`["map_doc", {}]`,
		`["map_doc", {}]`,
	))

	assert.Equal(t, []string{
		`true`,
		`{"log":"saw a document"}`,
		`[[]]`,
		`{"log":"saw a document"}`,
		`[[]]`,
	}, got)
}

func TestMapDocKeepsLargeIntegers(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.field_n"]`,
		`["map_doc", {"_id": "x", "n": 9007199254740993}]`,
	))

	assert.Equal(t, []string{`true`, `[[[9007199254740993,null]]]`}, got)
}

func TestMapDocUnencodableResultIsolated(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.myfun"]`,
		`["add_fun", "mod.inf"]`,
		`["map_doc", {"_id": "x"}]`,
	))

	require.Len(t, got, 4)
	assert.True(t, strings.HasPrefix(got[2], `{"log":"mod.inf: result cannot be encoded`), got[2])
	assert.Equal(t, `[[["k",1]],[]]`, got[3])
}

func TestMapDocSingleLineOutput(t *testing.T) {
	got := run(t, lines(
		`["add_fun", "mod.multiline"]`,
		`["map_doc", {}]`,
	))

	require.Len(t, got, 2)
	assert.Equal(t, `[[["line one\nline two","\r\n"]]]`, got[1])
}

func TestReduce(t *testing.T) {
	got := run(t, lines(
		`["reduce", ["mod.mysum", "mod.keys"], [[["a", "1"], 1], [["b", "2"], 2], [["c", "3"], 3]]]`,
	))

	assert.Equal(t, []string{`[true,[6,["a","b","c"]]]`}, got)
}

func TestReduceFailureIsolated(t *testing.T) {
	got := run(t, lines(
		`["reduce", ["mod.mysum", "mod.nope", "mod.failing"], [[["k", "x"], 1], [["k", "y"], 2]]]`,
	))

	assert.Equal(t, []string{
		`{"log":"mod.nope: function not found: \"mod.nope\""}`,
		`{"log":"mod.failing: cannot reduce"}`,
		`[true,[3,null,null]]`,
	}, got)
}

func TestReduceUnencodableResultIsolated(t *testing.T) {
	got := run(t, lines(
		`["reduce", ["mod.mysum", "mod.nan"], [[["k", "x"], 1]]]`,
	))

	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], `{"log":"mod.nan: result cannot be encoded`), got[0])
	assert.Equal(t, `[true,[1,null]]`, got[1])
}

func TestReduceLogAware(t *testing.T) {
	got := run(t, lines(
		`["reduce", ["mod.loud"], [[["k", "x"], 1], [["k", "y"], 2]]]`,
		`["rereduce", ["mod.loud"], [3, 4, 5]]`,
	))

	assert.Equal(t, []string{
		`{"log":"reducing 2 values"}`,
		`[true,[2]]`,
		`{"log":"reducing 3 values"}`,
		`[true,[3]]`,
	}, got)
}

func TestReduceEmptyRows(t *testing.T) {
	got := run(t, lines(`["reduce", ["mod.mysum"], []]`))
	assert.Equal(t, []string{`[true,[0]]`}, got)
}

func TestRereduce(t *testing.T) {
	got := run(t, lines(
		`["rereduce", ["mod.mysum", "mod.flags", "mod.nope"], [3, 4]]`,
		`["reduce", ["mod.flags"], [[["k", "x"], 1]]]`,
	))

	assert.Equal(t, []string{
		`{"log":"mod.nope: function not found: \"mod.nope\""}`,
		`[true,[7,[true,true],null]]`,
		`[true,[[false,false]]]`,
	}, got)
}

func TestValidate(t *testing.T) {
	got := run(t, lines(
		`["validate", "mod.ok", {"_id": "x"}, null, {"name": "bob"}]`,
		`["validate", "mod.reject", {"_id": "x"}, null, {}]`,
		`["validate", "mod.forbid", {"_id": "x"}, {"_id": "x"}, {}]`,
		`["validate", "mod.missing", {}, null, {}]`,
		`["validate", "mod.echo_user", {}, null, {"name": "bob"}]`,
	))

	assert.Equal(t, []string{
		`true`,
		`false`,
		`{"log":"mod.forbid: forbidden"}`,
		`"forbidden"`,
		`{"log":"mod.missing: function not found: \"mod.missing\""}`,
		`false`,
		`"bob"`,
	}, got)
}

func TestValidateLogAware(t *testing.T) {
	got := run(t, lines(
		`["validate", "mod.watchful", {"_id": "x"}, null, {}]`,
	))

	assert.Equal(t, []string{`{"log":"checking x"}`, `true`}, got)
}

func TestValidateNilResultHasNoReply(t *testing.T) {
	got := run(t, lines(
		`["validate", "mod.silent", {}, null, {}]`,
		`["reset"]`,
	))

	assert.Equal(t, []string{`true`}, got)
}

func TestUnknownCommand(t *testing.T) {
	got := run(t, lines(
		`["frobnicate", 1]`,
		`["reset"]`,
	))

	assert.Equal(t, []string{
		`{"error":"CommandNotFound","reason":"command not found: \"frobnicate\""}`,
		`true`,
	}, got)
}

func TestEveryCommandIsDispatched(t *testing.T) {
	for _, cmd := range protocol.Commands() {
		t.Run(string(cmd), func(t *testing.T) {
			got := run(t, lines(fmt.Sprintf(`[%q]`, cmd)))
			require.Len(t, got, 1)
			assert.NotContains(t, got[0], protocol.KindCommandNotFound)
		})
	}
}

func TestMalformedLinesDoNotEndSession(t *testing.T) {
	got := run(t, lines(
		`{not json`,
		``,
		`["reduce", "not-a-list", []]`,
		`["reduce", ["mod.mysum"], [1, 2]]`,
		`["add_fun"]`,
		`["reset"]`,
	))

	require.Len(t, got, 6)
	assert.True(t, strings.HasPrefix(got[0], "DecodeError: "), got[0])
	assert.True(t, strings.HasPrefix(got[1], "DecodeError: "), got[1])
	assert.True(t, strings.HasPrefix(got[2], "ArgumentError: "), got[2])
	assert.True(t, strings.HasPrefix(got[3], "ArgumentError: "), got[3])
	assert.True(t, strings.HasPrefix(got[4], "ArgumentError: "), got[4])
	assert.Equal(t, `true`, got[5])
}

func TestUnterminatedFinalLine(t *testing.T) {
	got := run(t, `["reset"]`+"\n"+`["map_doc", {}]`)
	assert.Equal(t, []string{`true`, `[]`}, got)
}

func TestSplitRows(t *testing.T) {
	keys, values, err := splitRows([]any{
		[]any{[]any{"a", "1"}, 10.0},
		[]any{[]any{[]any{1, 2}, "2"}, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", []any{1, 2}}, keys)
	assert.Equal(t, []any{10.0, nil}, values)

	_, _, err = splitRows([]any{[]any{"a", 1}})
	assert.Error(t, err)
}

// Writer that always fails.
type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestWriteErrorEndsSession(t *testing.T) {
	rw := struct {
		io.Reader
		io.Writer
	}{strings.NewReader(lines(`["reset"]`, `["reset"]`)), brokenWriter{}}

	err := newSession(rw, testCatalog()).serve()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
