package steam

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

func discardSink() core.LogSink {
	return core.LogSinkFunc(nil)
}

func TestRenderSingleDepot(t *testing.T) {
	b := NewDescriptorBuilder(t.TempDir())
	got := b.Render("480", []model.Depot{{ID: "481"}}, "/data/build", "Nightly build", "")

	want := `"AppBuild"
{
    "AppID" "480"
    "Desc"  "Nightly build"

    "Depots"
    {
        "481"
        {
            "ContentRoot" "/data/build/."

            "FileMapping"
            {
                "LocalPath" "*"
                "DepotPath" "."
                "Recursive" "1"
            }
        }
    }
}`
	assert.Equal(t, want, got)
}

func TestRenderBranchAddsOnlySetLive(t *testing.T) {
	b := NewDescriptorBuilder(t.TempDir())
	depots := []model.Depot{{ID: "481", Path: "bin"}}

	without := b.Render("480", depots, "/data/build", "desc", "")
	with := b.Render("480", depots, "/data/build", "desc", "beta")

	assert.NotEqual(t, without, with)
	assert.Contains(t, with, `    "SetLive" "beta"`)
	assert.NotContains(t, without, "SetLive")

	// Identical except for the single SetLive line.
	assert.Equal(t, without, stripSetLive(with))
}

func stripSetLive(s string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if line == `    "SetLive" "beta"` {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func TestRenderDefaults(t *testing.T) {
	b := NewDescriptorBuilder(t.TempDir())
	got := b.Render("480", []model.Depot{{ID: "481"}}, "/data/build", "", "")
	assert.Contains(t, got, `"Desc"  "`+DefaultDescription+`"`)
	// Depot path defaults to "." under the build dir.
	assert.Contains(t, got, `"ContentRoot" "/data/build/."`)
}

func TestRenderMultipleDepots(t *testing.T) {
	b := NewDescriptorBuilder(t.TempDir())
	got := b.Render("480", []model.Depot{
		{ID: "481", Path: "bin"},
		{ID: "482", Path: "assets"},
	}, "/data/build", "desc", "")

	assert.Contains(t, got, `        "481"`)
	assert.Contains(t, got, `        "482"`)
	assert.Contains(t, got, `"ContentRoot" "/data/build/bin"`)
	assert.Contains(t, got, `"ContentRoot" "/data/build/assets"`)
	// Depot order follows channel order.
	assert.Less(t, strings.Index(got, `"481"`), strings.Index(got, `"482"`))
}

func TestRenderIsDeterministic(t *testing.T) {
	b := NewDescriptorBuilder(t.TempDir())
	depots := []model.Depot{{ID: "481", Path: "bin"}}
	first := b.Render("480", depots, "/data/build", "desc", "beta")
	second := b.Render("480", depots, "/data/build", "desc", "beta")
	assert.Equal(t, first, second)
}

func TestWriteDescriptorFile(t *testing.T) {
	tempDir := t.TempDir()
	b := NewDescriptorBuilder(tempDir)

	path, err := b.Write(context.Background(), "480", []model.Depot{{ID: "481"}}, "/data/build", "desc", "", discardSink())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "480_build.vdf"), path)

	contents, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, b.Render("480", []model.Depot{{ID: "481"}}, "/data/build", "desc", ""), string(contents))
}

func TestWriteFailureYieldsDescriptorError(t *testing.T) {
	b := NewDescriptorBuilder(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := b.Write(context.Background(), "480", []model.Depot{{ID: "481"}}, "/data/build", "desc", "", discardSink())
	require.Error(t, err)

	var descErr *model.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Equal(t, "480", descErr.AppID)
}
