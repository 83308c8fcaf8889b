package jsonpath

import (
	"errors"
	"testing"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobsResponse = `{
  "data": {
    "jobs": [
      {"url": "/a", "title": "Engineer", "location": {"city": "Berlin"}, "tags": ["go", "k8s"]},
      {"url": "/b", "title": "Designer", "location": {"city": "Paris"}, "tags": []}
    ],
    "next": null
  },
  "meta": {"total": 2, "cursor": "abc"}
}`

func decodeFixture(t *testing.T) any {
	t.Helper()
	v, err := Decode([]byte(jobsResponse))
	require.NoError(t, err)
	return v
}

func TestExtract_FirstElementOnly(t *testing.T) {
	data := map[string]any{
		"data": map[string]any{
			"jobs": []any{
				map[string]any{"url": "/a"},
				map[string]any{"url": "/b"},
			},
		},
	}
	v, ok := Extract(data, "$.data.jobs[*].url")
	require.True(t, ok)
	assert.Equal(t, "/a", v)
}

func TestExtract(t *testing.T) {
	data := decodeFixture(t)
	tests := []struct {
		name string
		path string
		want any
		ok   bool
	}{
		{"scalar", "$.meta.cursor", "abc", true},
		{"number", "$.meta.total", float64(2), true},
		{"nested wildcard", "$.data.jobs[*].location.city", "Berlin", true},
		{"double wildcard", "$.data.jobs[*].tags[*]", "go", true},
		{"concrete index", "$.data.jobs[1].url", "/b", true},
		{"without root marker", "data.jobs[*].title", "Engineer", true},
		{"missing key", "$.data.missing", nil, false},
		{"null value", "$.data.next", nil, true},
		{"through null", "$.data.next.cursor", nil, false},
		{"wildcard on object", "$.meta[*]", nil, false},
		{"property of array", "$.data.jobs.url", nil, false},
		{"index out of range", "$.data.jobs[5].url", nil, false},
		{"malformed", "$.data..jobs", nil, false},
		{"empty", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Extract(data, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestExtract_EmptyArrayAborts(t *testing.T) {
	data := map[string]any{"items": []any{}}
	_, ok := Extract(data, "$.items[*].id")
	assert.False(t, ok)
}

func TestExtract_RootArray(t *testing.T) {
	data := []any{map[string]any{"id": "x1"}, map[string]any{"id": "x2"}}
	v, ok := Extract(data, "$[*].id")
	require.True(t, ok)
	assert.Equal(t, "x1", v)
}

func TestGenerate(t *testing.T) {
	data := decodeFixture(t)
	jobs := data.(map[string]any)["data"].(map[string]any)["jobs"].([]any)
	second := jobs[1].(map[string]any)

	t.Run("scalar inside second array element gets wildcard", func(t *testing.T) {
		path, ok := Generate(data, second["title"])
		require.True(t, ok)
		assert.Equal(t, "$.data.jobs[*].title", path)
	})

	t.Run("object identity", func(t *testing.T) {
		path, ok := Generate(data, second["location"])
		require.True(t, ok)
		assert.Equal(t, "$.data.jobs[*].location", path)
	})

	t.Run("array identity", func(t *testing.T) {
		path, ok := Generate(data, jobs)
		require.True(t, ok)
		assert.Equal(t, "$.data.jobs", path)
	})

	t.Run("equal but distinct object is not found", func(t *testing.T) {
		_, ok := Generate(data, map[string]any{"city": "Paris"})
		assert.False(t, ok)
	})

	t.Run("root", func(t *testing.T) {
		path, ok := Generate(data, data)
		require.True(t, ok)
		assert.Equal(t, "$", path)
	})

	t.Run("first match wins for repeated scalars", func(t *testing.T) {
		path, ok := Generate(data, "go")
		require.True(t, ok)
		assert.Equal(t, "$.data.jobs[*].tags[*]", path)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := Generate(data, "nowhere")
		assert.False(t, ok)
	})
}

// Generated paths extract a value from the first element of every array they cross.
func TestGenerate_ExtractRoundTrip(t *testing.T) {
	data := decodeFixture(t)
	meta := data.(map[string]any)["meta"].(map[string]any)

	path, ok := Generate(data, meta["cursor"])
	require.True(t, ok)
	v, ok := Extract(data, path)
	require.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestParse(t *testing.T) {
	segs, err := Parse("$.data.jobs[*].tags[2]")
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Key: "data", Index: -1}, segs[0])
	assert.Equal(t, Segment{Key: "jobs", Wildcard: true, Index: -1}, segs[1])
	assert.Equal(t, Segment{Key: "tags", Index: 2}, segs[2])

	for _, bad := range []string{"", "$.", "$.a[", "$.a[x]", "$.a]b"} {
		err := Validate(bad)
		assert.Error(t, err, bad)
		assert.True(t, errors.Is(err, utils.ErrParsing), bad)
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`{"a":`))
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrParsing)
}

func TestFieldSelections(t *testing.T) {
	data := decodeFixture(t)
	jobs := data.(map[string]any)["data"].(map[string]any)["jobs"].([]any)

	sel, ok := Select(data, jobs[0].(map[string]any)["url"])
	require.True(t, ok)
	assert.Equal(t, FieldSelection{Key: "url", Path: "$.data.jobs[*].url"}, sel)

	selections := []FieldSelection{
		sel,
		{Key: "city", Path: "$.data.jobs[*].location.city"},
		{Key: "gone", Path: "$.data.gone"},
	}
	assert.Equal(t, map[string]any{"url": "/a", "city": "Berlin", "gone": nil}, Preview(data, selections))

	assert.Equal(t, "city", SuggestKey("$.data.jobs[*].location.city"))
	assert.Equal(t, "tags", SuggestKey("$.data.jobs[*].tags[*]"))
	assert.Equal(t, "", SuggestKey("$"))
}

func TestValidateSelections(t *testing.T) {
	problems := ValidateSelections([]FieldSelection{
		{Key: "url", Path: "$.items[*].url"},
		{Key: "url", Path: "$.items[*].link"},
		{Key: "", Path: "$.items[*].title"},
		{Key: "bad", Path: "$.items[x]"},
	})
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "more than once")
	assert.Contains(t, problems[1], "no key")
	assert.Contains(t, problems[2], `"bad"`)
}

func TestLeaves(t *testing.T) {
	data := decodeFixture(t)
	assert.Equal(t, []string{
		"$.data.jobs[*].location.city",
		"$.data.jobs[*].tags[*]",
		"$.data.jobs[*].title",
		"$.data.jobs[*].url",
		"$.meta.cursor",
		"$.meta.total",
	}, Leaves(data))
}
