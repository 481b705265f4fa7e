// Package steam publishes prepared builds to Steam release channels: it
// renders the app-build VDF descriptor consumed by steamcmd and drives the
// steamcmd subprocess itself.
package steam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// DefaultDescription is used when a job carries no build description.
const DefaultDescription = "Build from BuildRelay"

// The descriptor layout is consumed verbatim by steamcmd's app_build parser;
// indentation and quoting must not change.
const appBuildTemplate = `"AppBuild"
{
    "AppID" "%s"
    "Desc"  "%s"
%s
    "Depots"
    {
%s
    }
}`

const depotTemplate = `        "%s"
        {
            "ContentRoot" "%s"

            "FileMapping"
            {
                "LocalPath" "*"
                "DepotPath" "."
                "Recursive" "1"
            }
        }`

// DescriptorBuilder renders app-build VDF descriptors to per-app temp files.
type DescriptorBuilder struct {
	// TempDir is where descriptor files are written.
	// Defaults to os.TempDir().
	TempDir string
}

// NewDescriptorBuilder builds a descriptor builder rooted at tempDir.
func NewDescriptorBuilder(tempDir string) *DescriptorBuilder {
	if strings.TrimSpace(tempDir) == "" {
		tempDir = os.TempDir()
	}
	return &DescriptorBuilder{TempDir: tempDir}
}

// Render produces the descriptor text for one app/channel. The output is
// deterministic for fixed inputs; supplying a branch adds only the
// "SetLive" directive.
func (b *DescriptorBuilder) Render(appID string, depots []model.Depot, buildDir, description, branch string) string {
	sections := make([]string, 0, len(depots))
	for _, depot := range depots {
		depotPath := depot.Path
		if depotPath == "" {
			depotPath = "."
		}
		contentRoot := buildDir + "/" + depotPath
		sections = append(sections, fmt.Sprintf(depotTemplate, depot.ID, contentRoot))
	}

	if description == "" {
		description = DefaultDescription
	}

	setLive := ""
	if branch != "" {
		setLive = fmt.Sprintf("    \"SetLive\" \"%s\"\n", branch)
	}

	return fmt.Sprintf(appBuildTemplate, appID, description, setLive, strings.Join(sections, "\n"))
}

// Write renders the descriptor and writes it to {TempDir}/{appID}_build.vdf,
// returning the file path. Write failures yield a DescriptorError.
func (b *DescriptorBuilder) Write(ctx context.Context, appID string, depots []model.Depot, buildDir, description, branch string, sink core.LogSink) (string, error) {
	sink.Log(ctx, fmt.Sprintf("Generating app build descriptor for app %s...", appID), core.LevelInfo)

	content := b.Render(appID, depots, buildDir, description, branch)
	path := filepath.Join(b.TempDir, appID+"_build.vdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		sink.Log(ctx, fmt.Sprintf("Error generating descriptor: %v", err), core.LevelError)
		return "", &model.DescriptorError{AppID: appID, Err: err}
	}

	sink.Log(ctx, fmt.Sprintf("Descriptor file generated: %s", path), core.LevelInfo)
	return path, nil
}
