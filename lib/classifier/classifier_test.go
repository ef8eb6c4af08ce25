package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/ether/lastupdated-go/lib/exception"
	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/host/memdoc"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixture = `
id: doc-1
pages:
  - id: page-1
    name: Page 1
    layers:
      - id: cover
        name: Cover
        layers:
          - id: stamp
            name: "[LastUpdated]"
          - id: title
            name: Title
            value: Hello
          - id: badge
            name: Badge
            kind: symbolInstance
            overrides:
              - name: 7A1C_stringValue
                layerName: "[lastupdated-increment]"
              - name: 8B2D_stringValue
                layerName: Caption
          - id: avatar
            name: "[lastupdated-image]"
            kind: shape
            fills: 1
          - id: group
            name: Group
            kind: group
            layers:
              - id: nested
                name: Nested
      - id: back
        name: Back
`

func setup(t *testing.T, policy MovePolicy) (*Classifier, *memdoc.Document) {
	t.Helper()
	reg, err := placeholder.NewDefaultRegistry()
	require.NoError(t, err)
	doc, err := memdoc.Load(strings.NewReader(fixture))
	require.NoError(t, err)
	return New(reg, policy, zap.NewNop().Sugar()), doc
}

func TestLogicalParentPath(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"style truncation", "pages[0].layers[0].layers[1].style.fills[0].pattern.image", "pages[0].layers[0].layers[1]", false},
		{"override values", "pages[0].layers[0].layers[0].overrideValues[9].value", "pages[0].layers[0].layers[0]", false},
		{"plain leaf", "pages[0].layers[2].frame", "pages[0].layers[2]", false},
		{"empty", "", "", true},
		{"single segment", "image", "", true},
		{"style only", "style.fills[0]", "", true},
		{"override only", "overrideValues[0].value", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LogicalParentPath(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParsePath(t *testing.T) {
	segments, err := ParsePath("pages[0].layers[12]")
	require.NoError(t, err)
	require.Equal(t, []host.PathSegment{{Field: "pages", Index: 0}, {Field: "layers", Index: 12}}, segments)

	for _, bad := range []string{"", "pages", "pages[x]", "pages[0].", "pages[0]layers[1]", "foreignSymbols[0].symbolMaster"} {
		_, err := ParsePath(bad)
		require.Error(t, err, bad)
	}
}

func TestResolveOwningArtboard(t *testing.T) {
	_, doc := setup(t, MoveOnce)

	testCases := []struct {
		name string
		path string
		want string
	}{
		{"fill image", "pages[0].layers[0].layers[3].style.fills[0].image", "cover"},
		{"override value", "pages[0].layers[0].layers[2].overrideValues[0].value", "cover"},
		{"nested layer", "pages[0].layers[0].layers[4].layers[0].frame", "cover"},
		{"artboard itself", "pages[0].layers[1].frame", "back"},
		{"page level", "pages[0].frame", ""},
		{"foreign symbol", "foreignSymbols[0].symbolMaster.layers[0].overrideValues[0].value", ""},
		{"out of range", "pages[0].layers[9].layers[0].name", ""},
		{"malformed", "pages[0].layers.frame", ""},
		{"empty", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			artboard := ResolveOwningArtboard(tc.path, doc)
			if tc.want == "" {
				require.Nil(t, artboard)
				return
			}
			require.NotNil(t, artboard)
			require.Equal(t, tc.want, artboard.ID())
		})
	}
}

func TestResolveLogicalParentReturnsInvalidPathError(t *testing.T) {
	_, doc := setup(t, MoveOnce)
	_, err := ResolveLogicalParent("pages[3].layers[0].frame", doc)
	var pathErr *exception.InvalidPathError
	require.ErrorAs(t, err, &pathErr)
	require.Equal(t, "pages[3].layers[0].frame", pathErr.Path)
}

func TestUserEditIsScheduled(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	change, err := doc.Touch("nested")
	require.NoError(t, err)

	res := c.Classify(change, doc, nil)
	require.False(t, res.SelfInflicted)
	require.False(t, res.Indeterminate)
	require.False(t, res.IsPaginationTrigger())
	require.Equal(t, "cover", res.Artboard.ID())
}

func TestEngineWritesAreSelfInflicted(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	ctx := context.Background()

	require.NoError(t, doc.SetStringValue(ctx, "stamp", "1-3-2024 10:15"))
	require.NoError(t, doc.SetOverrideValue(ctx, "badge", "7A1C_stringValue", "5"))
	require.NoError(t, doc.SetFillImage(ctx, "avatar", []byte("png")))

	results := c.ClassifyBatch(doc.TakeChanges(), doc)
	require.Len(t, results, 3)
	for i, res := range results {
		require.True(t, res.SelfInflicted, "change %d: %s", i, res.Reason)
		require.Nil(t, res.Artboard)
	}
}

func TestOverrideOnOrdinaryPointIsNotSelfInflicted(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	require.NoError(t, doc.SetOverrideValue(context.Background(), "badge", "8B2D_stringValue", "hi"))
	require.NoError(t, doc.SetStringValue(context.Background(), "title", "Hello again"))

	for _, res := range c.ClassifyBatch(doc.TakeChanges(), doc) {
		require.False(t, res.SelfInflicted)
		require.Equal(t, "cover", res.Artboard.ID())
	}
}

func TestUserEditsOfPlaceholderLayersAreScheduled(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	moved, err := doc.Touch("stamp")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		change host.Change
	}{
		{"moved placeholder layer", moved},
		{"restyled image placeholder", host.Change{
			Object:   &leafLayer{id: "avatar/color", kind: host.KindImmutableLeaf, name: "color"},
			FullPath: "pages[0].layers[0].layers[3].style.fills[0].color",
			Type:     host.ChangeModified,
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Classify(tc.change, doc, nil)
			require.False(t, res.SelfInflicted, res.Reason)
			require.NotNil(t, res.Artboard)
			require.Equal(t, "cover", res.Artboard.ID())
		})
	}
}

func TestRenamingToPlaceholderIsNotSelfInflicted(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	change, err := doc.Rename("title", "[lastupdated]")
	require.NoError(t, err)

	res := c.Classify(change, doc, nil)
	require.False(t, res.SelfInflicted)
	require.Equal(t, "cover", res.Artboard.ID())
	require.False(t, res.IsPaginationTrigger())
}

func TestUnresolvableLeafIsIndeterminate(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	leaf := &leafLayer{id: "x", kind: host.KindOverrideValue, name: "7A1C_stringValue"}
	res := c.Classify(host.Change{Object: leaf, FullPath: "foreignSymbols[0].symbolMaster.overrideValues[0].value"}, doc, nil)
	require.True(t, res.Indeterminate)
	require.False(t, res.SelfInflicted)
	require.Nil(t, res.Artboard)
}

func TestPaginationPlaceholderAdditionTriggers(t *testing.T) {
	c, doc := setup(t, MoveOnce)
	n, change, err := doc.Insert("back", -1, memdoc.LayerSpec{Kind: host.KindText, Name: "[LASTUPDATED-TOTALPAGES]"})
	require.NoError(t, err)

	res := c.Classify(change, doc, nil)
	require.Equal(t, TriggerPlaceholderAdded, res.Trigger)
	require.Equal(t, n.ID(), res.Object.ID())
	require.Equal(t, "back", res.Artboard.ID())

	renamed, err := doc.Rename("title", "[lastupdated-totalpages]")
	require.NoError(t, err)
	require.False(t, c.Classify(renamed, doc, nil).IsPaginationTrigger())
}

func TestArtboardTopologyTriggers(t *testing.T) {
	c, doc := setup(t, MoveOnce)

	_, added, err := doc.Insert("page-1", -1, memdoc.LayerSpec{ID: "new", Kind: host.KindArtboard, Name: "New"})
	require.NoError(t, err)
	res := c.Classify(added, doc, nil)
	require.Equal(t, TriggerTopology, res.Trigger)
	require.Equal(t, "new", res.Artboard.ID())

	renamed, err := doc.Rename("new", "-New")
	require.NoError(t, err)
	require.Equal(t, TriggerTopology, c.Classify(renamed, doc, nil).Trigger)

	removed, err := doc.Remove("new")
	require.NoError(t, err)
	res = c.Classify(removed, doc, nil)
	require.Equal(t, TriggerTopology, res.Trigger)
	require.Nil(t, res.Artboard)
}

func TestMovePolicies(t *testing.T) {
	testCases := []struct {
		policy MovePolicy
		want   []Trigger
	}{
		{MoveOnce, []Trigger{TriggerNone, TriggerTopology}},
		{MoveIgnore, []Trigger{TriggerNone, TriggerNone}},
	}
	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			c, doc := setup(t, tc.policy)
			changes, err := doc.Move("back", 0)
			require.NoError(t, err)

			results := c.ClassifyBatch(changes, doc)
			got := make([]Trigger, len(results))
			for i, r := range results {
				got[i] = r.Trigger
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseMovePolicy(t *testing.T) {
	p, err := ParseMovePolicy("")
	require.NoError(t, err)
	require.Equal(t, MoveOnce, p)
	p, err = ParseMovePolicy("IGNORE")
	require.NoError(t, err)
	require.Equal(t, MoveIgnore, p)
	_, err = ParseMovePolicy("twice")
	require.Error(t, err)
}

type leafLayer struct {
	id   string
	kind host.Kind
	name string
}

func (l *leafLayer) ID() string                           { return l.id }
func (l *leafLayer) Kind() host.Kind                      { return l.kind }
func (l *leafLayer) Name() string                         { return l.name }
func (l *leafLayer) Parent() host.Layer                   { return nil }
func (l *leafLayer) Children() []host.Layer               { return nil }
func (l *leafLayer) StringValue() string                  { return "" }
func (l *leafLayer) FillCount() int                       { return 0 }
func (l *leafLayer) OverridePoints() []host.OverridePoint { return nil }
