package codec

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(ss ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(ss))
	for _, s := range ss {
		out = append(out, json.RawMessage(s))
	}
	return out
}

func TestPackRecords_FirstSeenOrder(t *testing.T) {
	p, err := PackRecords(raws(`{"id":1,"title":"a"}`, `{"id":2,"note":"b","title":"c"}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"id": 0, "title": 1, "note": 2}, p.Keys)
	require.Len(t, p.DataArray, 2)
	assert.Equal(t, `2`, string(p.DataArray[1][0]))
	assert.Equal(t, `"c"`, string(p.DataArray[1][1]))
	assert.Equal(t, `"b"`, string(p.DataArray[1][2]))
}

func TestPackRecords_HolesSerializeAsNull(t *testing.T) {
	p, err := PackRecords(raws(`{"a":1,"b":2}`, `{"b":3}`))
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":{"a":0,"b":1},"dataArray":[[1,2],[null,3]]}`, string(b))
}

func TestUnpackRecords_OmitsAbsent(t *testing.T) {
	var p Packed
	require.NoError(t, json.Unmarshal([]byte(`{"keys":{"a":0,"b":1,"c":2},"dataArray":[[1,null],[null,2,3],[]]}`), &p))

	got, err := UnpackRecords(&p)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.JSONEq(t, `{"a":1}`, string(got[0]))
	assert.JSONEq(t, `{"b":2,"c":3}`, string(got[1]))
	assert.JSONEq(t, `{}`, string(got[2]))
}

func TestPackRecords_RejectsNonObject(t *testing.T) {
	_, err := PackRecords(raws(`[1,2]`))
	assert.Error(t, err)
}

type rec struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title,omitempty"`
	Labels []int64  `json:"labels,omitempty"`
	Extra  *float64 `json:"extra,omitempty"`
}

func TestRoundTrip_Heterogeneous(t *testing.T) {
	x := 1.5
	in := []rec{
		{ID: 1, Title: "Mail"},
		{ID: 2, Labels: []int64{5, 6}},
		{ID: 3, Title: "Bank", Extra: &x},
	}

	text, err := Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal[rec](text)
	require.NoError(t, err)

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_Empty(t *testing.T) {
	text, err := Marshal([]rec{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":{},"dataArray":[]}`, text)

	out, err := Unmarshal[rec](text)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestUnmarshal_Garbage(t *testing.T) {
	_, err := Unmarshal[rec]("not json")
	assert.Error(t, err)
}
