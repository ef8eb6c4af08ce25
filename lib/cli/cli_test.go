package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ether/lastupdated-go/lib/db"
	"github.com/ether/lastupdated-go/lib/host/memdoc"
	"github.com/ether/lastupdated-go/lib/metrics"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/settings"
	"github.com/ether/lastupdated-go/lib/state"
	"github.com/ether/lastupdated-go/lib/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const document = `
id: doc-1
pages:
  - id: page-1
    name: Page 1
    layers:
      - id: cover
        name: Cover
        layers:
          - id: stamp
            name: "[lastupdated]"
          - id: counter
            name: "[lastupdated-increment]"
            value: "4"
          - id: size
            name: "[lastupdated-size-bytes]"
          - id: title
            name: Title
      - id: back
        name: Back
        layers:
          - id: back-title
            name: Title
`

const script = `
start: 2024-03-01T10:15:30Z
events:
  - op: touch
    id: title
  - op: advance
    after: 5s
  - op: save
    size: 2048
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "settings.json", `{"timezone": "UTC", "loglevel": "ERROR"}`)
	doc := writeFile(t, dir, "doc.yaml", document)
	events := writeFile(t, dir, "events.yaml", script)

	stdout, stderr, err := run(t, "replay", "--config", config, "--document", doc, "--script", events, "--metrics")
	require.NoError(t, err)

	result, err := memdoc.Load(strings.NewReader(stdout))
	require.NoError(t, err)
	for id, want := range map[string]string{
		"stamp":   "1-3-2024 10:15",
		"counter": "5",
		"size":    "2048",
	} {
		layer, ok := result.LayerByID(id)
		require.True(t, ok, id)
		require.Equal(t, want, layer.StringValue(), id)
	}
	require.Contains(t, stderr, "lastupdated_engine_passes_total{kind=save}")
}

func TestReplayWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "settings.json", `{"timezone": "UTC", "loglevel": "ERROR"}`)
	doc := writeFile(t, dir, "doc.yaml", document)
	events := writeFile(t, dir, "events.yaml", script)
	out := filepath.Join(dir, "out.yaml")

	stdout, _, err := run(t, "replay", "-c", config, "-d", doc, "-s", events, "-o", out)
	require.NoError(t, err)
	require.Empty(t, stdout)

	result, err := memdoc.LoadFile(out)
	require.NoError(t, err)
	layer, ok := result.LayerByID("stamp")
	require.True(t, ok)
	require.Equal(t, "1-3-2024 10:15", layer.StringValue())
}

func TestReplayRejectsUnknownOp(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "settings.json", `{"loglevel": "ERROR"}`)
	doc := writeFile(t, dir, "doc.yaml", document)
	events := writeFile(t, dir, "events.yaml", "events:\n  - op: explode\n")

	_, _, err := run(t, "replay", "-c", config, "-d", doc, "-s", events)
	require.ErrorContains(t, err, `unknown op "explode"`)
}

func TestReplayNeedsDocumentAndScript(t *testing.T) {
	_, _, err := run(t, "replay")
	require.Error(t, err)
}

func newTestReplayer(t *testing.T) (*Replayer, *memdoc.Document, *memdoc.ManualScheduler) {
	t.Helper()
	doc, err := memdoc.Load(strings.NewReader(document))
	require.NoError(t, err)
	cfg, err := settings.ReadConfig("", `{"timezone": "UTC"}`)
	require.NoError(t, err)
	registry, err := placeholder.NewDefaultRegistry()
	require.NoError(t, err)
	options, err := utils.GetEngineOptions(*cfg)
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	sched := memdoc.NewManualScheduler(time.Date(2024, time.March, 1, 10, 15, 30, 0, time.UTC))
	r, err := NewReplayer(doc, sched, registry, state.NewManager(db.NewMemoryDataStore(), logger), metrics.MustNewMetrics(nil), options, logger)
	require.NoError(t, err)
	return r, doc, sched
}

func TestReplayerSelectionResolvesImmediately(t *testing.T) {
	r, doc, sched := newTestReplayer(t)

	require.NoError(t, r.Run(context.Background(), []Event{{Op: "select", IDs: []string{"title"}}}))
	layer, _ := doc.LayerByID("stamp")
	require.Equal(t, "1-3-2024 10:15", layer.StringValue())
	require.Equal(t, 1, r.Passes)
	require.Zero(t, sched.Pending())
}

func TestReplayerSettlesInsertedArtboard(t *testing.T) {
	r, doc, _ := newTestReplayer(t)

	require.NoError(t, r.Run(context.Background(), []Event{
		{Op: "insert", Parent: "page-1", Layer: &memdoc.LayerFile{
			ID: "extra", Name: "Extra", Kind: "artboard",
			Layers: []memdoc.LayerFile{
				{ID: "extra-stamp", Name: "[lastupdated-time]"},
				{ID: "extra-note", Name: "Note"},
			},
		}},
		{Op: "touch", ID: "extra-note"},
	}))
	require.NoError(t, r.Settle(context.Background()))

	layer, ok := doc.LayerByID("extra-stamp")
	require.True(t, ok)
	require.Equal(t, "10:15", layer.StringValue())
}

func TestIdenticonCommand(t *testing.T) {
	png := filepath.Join(t.TempDir(), "icon.png")
	stdout, _, err := run(t, "identicon", "1-3-2024 10:15", "--png", png)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 9)
	require.True(t, strings.HasPrefix(lines[0], "color hsl("))

	raw, err := os.ReadFile(png)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}

func TestConfigCommands(t *testing.T) {
	config := writeFile(t, t.TempDir(), "settings.json", `{"timezone": "UTC"}`)

	stdout, _, err := run(t, "config", "get", "timezone", "--config", config)
	require.NoError(t, err)
	require.Equal(t, "UTC\n", stdout)

	stdout, _, err = run(t, "config", "env")
	require.NoError(t, err)
	require.Contains(t, stdout, "LASTUPDATED_PAGINATION_MOVEPOLICY")

	_, _, err = run(t, "config", "get", "nope")
	require.Error(t, err)
}

func TestStateCommands(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "settings.json", `{
		"dbType": "sqlite",
		"dbSettings": {"filename": "`+filepath.ToSlash(filepath.Join(dir, "state.db"))+`"},
		"loglevel": "ERROR"
	}`)

	store, err := db.NewSQLiteDB(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	manager := state.NewManager(store, zap.NewNop().Sugar())
	st, err := manager.Load("doc-1")
	require.NoError(t, err)
	st.SaveDeferred.Add("cover")
	require.NoError(t, manager.Flush(st))
	require.NoError(t, store.Close())

	stdout, _, err := run(t, "state", "list", "-c", config)
	require.NoError(t, err)
	require.Equal(t, "doc-1\n", stdout)

	stdout, _, err = run(t, "state", "show", "doc-1", "-c", config)
	require.NoError(t, err)
	require.Contains(t, stdout, `"saveDeferred": [`)
	require.Contains(t, stdout, `"cover"`)

	_, _, err = run(t, "state", "reset", "doc-1", "-c", config)
	require.NoError(t, err)

	stdout, _, err = run(t, "state", "list", "-c", config)
	require.NoError(t, err)
	require.Empty(t, stdout)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(stdout))
}
