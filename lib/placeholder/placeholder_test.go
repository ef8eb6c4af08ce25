package placeholder

import (
	"testing"
	"time"

	"github.com/ether/lastupdated-go/lib/host"
	"github.com/stretchr/testify/require"
)

var coverTime = time.Date(2024, time.March, 1, 10, 15, 30, 0, time.UTC)

func resolve(t *testing.T, reg *Registry, name string, ctx *Context) string {
	t.Helper()
	token, ok := reg.Lookup(name, FilterAll)
	require.True(t, ok, "token %s not registered", name)
	return token.Resolve(ctx)
}

func TestDateTokens(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	ctx := &Context{Time: coverTime, ArtboardName: "-Cover"}
	testCases := map[string]string{
		LastUpdated:         "1-3-2024 10:15",
		LastUpdatedUS:       "3/1/2024 10:15",
		FullDate:            "1-3-2024",
		FullDateUS:          "3/1/2024",
		Time:                "10:15",
		Year:                "2024",
		Month:               "3",
		MonthStr:            "mar",
		Date:                "1",
		Day:                 "5",
		DayStr:              "fri",
		Hour:                "10",
		Minute:              "15",
		Second:              "30",
		Image:               "1-3-2024 10:15",
		ArtboardTitle:       "-Cover",
		ArtboardTitleNoDash: "Cover",
	}
	for name, want := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, want, resolve(t, reg, name, ctx))
		})
	}
}

func TestTimePadding(t *testing.T) {
	ts := time.Date(2024, time.January, 7, 9, 5, 3, 0, time.UTC)
	require.Equal(t, "9:05", TimeString(ts))
	require.Equal(t, "7-1-2024 9:05", Seed(ts, nil))

	reg, err := NewDefaultRegistry()
	require.NoError(t, err)
	ctx := &Context{Time: ts}
	require.Equal(t, "05", resolve(t, reg, Minute, ctx))
	require.Equal(t, "03", resolve(t, reg, Second, ctx))
	require.Equal(t, "sun", resolve(t, reg, DayStr, ctx))
	require.Equal(t, "0", resolve(t, reg, Day, ctx))
}

func TestSeedUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	require.Equal(t, "1-3-2024 12:15", Seed(coverTime, loc))
}

func TestSeedDropsSeconds(t *testing.T) {
	require.Equal(t, Seed(coverTime, nil), Seed(coverTime.Add(20*time.Second), nil))
	require.NotEqual(t, Seed(coverTime, nil), Seed(coverTime.Add(time.Minute), nil))
}

func TestNextIncrement(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"4", "5"},
		{"0", "1"},
		{"-1", "0"},
		{" 41 ", "42"},
		{"4.7", "5"},
		{"1e3", "2"},
		{"", ""},
		{"   ", "   "},
		{"abc", "abc"},
		{"4a", "4a"},
		{"Infinity", "Infinity"},
		{"NaN", "NaN"},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.want, NextIncrement(tc.input))
		})
	}
}

func TestSaveTokens(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	ctx := &Context{Save: host.SaveEvent{SizeBytes: 204800, Autosaved: false}, CurrentValue: "9"}
	require.Equal(t, "204800", resolve(t, reg, SizeBytes, ctx))
	require.Equal(t, "false", resolve(t, reg, IsAutosaved, ctx))
	require.Equal(t, "10", resolve(t, reg, IncrementOnSave, ctx))
}

func TestPaginationTokens(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	names := []string{"Cover", "-Notes", "Intro", "Body"}
	testCases := []struct {
		index int
		want  map[string]string
	}{
		{0, map[string]string{
			TotalPages: "4", TotalPagesNoDash: "3",
			CurrentPageNr: "1", CurrentPageNrNoDash: "1",
			PageNrNext: "2", PageNrNextNoDash: "2",
			PageNrPrev: "", PageNrPrevNoDash: "",
		}},
		{1, map[string]string{
			CurrentPageNr: "2", CurrentPageNrNoDash: "",
			PageNrNext: "3", PageNrNextNoDash: "2",
			PageNrPrev: "1", PageNrPrevNoDash: "1",
		}},
		{2, map[string]string{
			CurrentPageNr: "3", CurrentPageNrNoDash: "2",
			PageNrNext: "4", PageNrNextNoDash: "3",
			PageNrPrev: "2", PageNrPrevNoDash: "1",
		}},
		{3, map[string]string{
			CurrentPageNr: "4", CurrentPageNrNoDash: "3",
			PageNrNext: "", PageNrNextNoDash: "",
			PageNrPrev: "3", PageNrPrevNoDash: "2",
		}},
	}
	for _, tc := range testCases {
		ctx := &Context{Pages: PageInfo{Names: names, Index: tc.index}}
		for name, want := range tc.want {
			require.Equal(t, want, resolve(t, reg, name, ctx), "artboard %d token %s", tc.index, name)
		}
	}
}

func TestLookupIsCaseInsensitiveAndFiltered(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	token, ok := reg.Lookup("[LastUpdated-Increment]", FilterChange)
	require.True(t, ok)
	require.Equal(t, Increment, token.Name)
	require.Equal(t, KindCounter, token.Kind)

	_, ok = reg.Lookup(SizeBytes, FilterChange)
	require.False(t, ok)
	_, ok = reg.Lookup(SizeBytes, FilterSave)
	require.True(t, ok)
	_, ok = reg.Lookup("Rectangle", FilterAll)
	require.False(t, ok)

	require.True(t, reg.IsToken("[LASTUPDATED-TOTALPAGES]"))
	require.Len(t, reg.Tokens(FilterPagination), 8)
	require.Len(t, reg.Tokens(FilterSave), 3)
	require.Equal(t, LastUpdated, reg.Tokens(FilterChange)[0].Name)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Token{Name: "[a]", Resolve: func(*Context) string { return "" }},
		Token{Name: "[A]", Resolve: func(*Context) string { return "" }},
	)
	require.Error(t, err)

	_, err = NewRegistry(Token{Name: "[b]"})
	require.Error(t, err)
}

func TestCustomTokens(t *testing.T) {
	custom, err := CompileCustomTokens(map[string]string{
		"[lastupdated-week]":   "weekOfYear",
		"[lastupdated-stamp]":  `artboard + "@" + string(hour*100 + minute)`,
		"[lastupdated-broken]": `current.missing.field`,
	})
	require.NoError(t, err)

	reg, err := NewDefaultRegistry(custom...)
	require.NoError(t, err)

	ctx := &Context{Time: coverTime, ArtboardName: "Cover", CurrentValue: "keep"}
	require.Equal(t, "9", resolve(t, reg, "[lastupdated-week]", ctx))
	require.Equal(t, "Cover@1015", resolve(t, reg, "[lastupdated-stamp]", ctx))
	require.Equal(t, "keep", resolve(t, reg, "[lastupdated-broken]", ctx))

	token, ok := reg.Lookup("[lastupdated-week]", FilterChange)
	require.True(t, ok)
	require.Equal(t, ChangeDriven, token.Category)
}

func TestCustomTokensRejectInvalidExpressions(t *testing.T) {
	_, err := CompileCustomTokens(map[string]string{"[x]": "1 +"})
	require.Error(t, err)

	_, err = CompileCustomTokens(map[string]string{"[y]": " "})
	require.Error(t, err)
}
