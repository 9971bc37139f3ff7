package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riicho/tvsub/mlsub"
)

func testEvents() []mlsub.Event {
	return []mlsub.Event{
		{
			EID:       27472,
			Name:      "テレビアニメ「鬼滅の刃」刀鍛冶の里編",
			Category:  "anime",
			Service:   "フジテレビ",
			Network:   mlsub.NetworkKanto,
			Price:     3.5,
			Duration:  30,
			StartDate: time.Date(2023, 5, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			EID:      31001,
			Name:     "ニュースウオッチ９",
			Category: "news",
			Service:  "ＮＨＫ総合１・東京",
			Network:  mlsub.NetworkKanto,
			Price:    7,
			Duration: 60,
		},
		{
			EID:      40210,
			Name:     "映画天国",
			Category: "movie",
			Service:  "日本テレビ",
			Network:  mlsub.NetworkKanto,
			Price:    12,
			Duration: 115,
		},
	}
}

func TestCompile(t *testing.T) {
	t.Run("valid expression", func(t *testing.T) {
		f, err := Compile(`Category == "anime"`)
		require.NoError(t, err)
		assert.Equal(t, `Category == "anime"`, f.Expression())
	})

	t.Run("empty expression", func(t *testing.T) {
		_, err := Compile("   ")
		require.Error(t, err)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Compile(`Category ==`)
		require.Error(t, err)
	})
}

func TestMatch(t *testing.T) {
	events := testEvents()

	tests := []struct {
		name string
		expr string
		want []int64 // matching EIDs, in order
	}{
		{
			name: "by category",
			expr: `Category == "anime"`,
			want: []int64{27472},
		},
		{
			name: "by price ceiling",
			expr: `Price < 10`,
			want: []int64{27472, 31001},
		},
		{
			name: "category and price",
			expr: `Category == "anime" && Price < 5`,
			want: []int64{27472},
		},
		{
			name: "contains is case-insensitive on the title",
			expr: `contains(Name, "鬼滅")`,
			want: []int64{27472},
		},
		{
			name: "duration",
			expr: `Duration >= 60`,
			want: []int64{31001, 40210},
		},
		{
			name: "no match",
			expr: `Category == "sports"`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)

			matched, err := f.Apply(events)
			require.NoError(t, err)

			var eids []int64
			for _, ev := range matched {
				eids = append(eids, ev.EID)
			}
			assert.Equal(t, tt.want, eids)
		})
	}
}

func TestMatchNonBoolean(t *testing.T) {
	f, err := Compile(`Price`)
	require.NoError(t, err)

	_, err = f.Match(testEvents()[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boolean")
}

func TestMatchStartDate(t *testing.T) {
	f, err := Compile(`Start >= parseDate("2023-05-14")`)
	require.NoError(t, err)

	ok, err := f.Match(testEvents()[0])
	require.NoError(t, err)
	assert.True(t, ok)
}
