package steam

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// DefaultTool is the steamcmd binary name used when none is configured.
const DefaultTool = "steamcmd"

var (
	// buildIDPattern matches the build id steamcmd logs after a
	// successful upload, e.g. "Successfully finished ... (BuildID 9001)."
	buildIDPattern = regexp.MustCompile(`BuildID\s+(\d+)`)

	// ansiPattern matches terminal color/formatting escape sequences so
	// steamcmd output lands clean in the job log.
	ansiPattern = regexp.MustCompile("\x1b(?:[@-Z\\\\-_]|\\[[0-?]*[ -/]*[@-~])")
)

// UploaderOptions configures the Steam upload driver.
type UploaderOptions struct {
	// Account is the steamcmd login name. Required.
	Account string
	// Tool overrides the steamcmd binary path. Defaults to "steamcmd".
	Tool string
	// Runner executes the uploader subprocess.
	Runner core.ProcessRunner
	// Descriptors renders the per-channel app-build descriptor.
	Descriptors *DescriptorBuilder
}

// Uploader drives steamcmd app-build uploads. It blocks the calling worker
// for the full duration of the subprocess; there is no timeout and no
// cancellation beyond the context handed to the runner.
type Uploader struct {
	account     string
	tool        string
	runner      core.ProcessRunner
	descriptors *DescriptorBuilder
}

var _ core.SteamDriver = (*Uploader)(nil)

// NewUploader constructs the Steam upload driver.
func NewUploader(opts UploaderOptions) *Uploader {
	tool := strings.TrimSpace(opts.Tool)
	if tool == "" {
		tool = DefaultTool
	}
	descriptors := opts.Descriptors
	if descriptors == nil {
		descriptors = NewDescriptorBuilder("")
	}
	return &Uploader{
		account:     strings.TrimSpace(opts.Account),
		tool:        tool,
		runner:      opts.Runner,
		descriptors: descriptors,
	}
}

// Upload publishes buildDir to one Steam channel: validates the channel
// config, renders the descriptor and runs the uploader subprocess.
func (u *Uploader) Upload(ctx context.Context, cfg model.SteamChannel, buildDir, description string, sink core.LogSink) (model.SteamUploadResult, error) {
	if cfg.AppID == "" {
		return model.SteamUploadResult{}, &model.ConfigError{Subject: steamChannelSubject(cfg), Field: "appId"}
	}
	if len(cfg.Depots) == 0 {
		return model.SteamUploadResult{}, &model.ConfigError{Subject: steamChannelSubject(cfg), Field: "depots"}
	}

	vdfPath, err := u.descriptors.Write(ctx, cfg.AppID, cfg.Depots, buildDir, description, cfg.Branch, sink)
	if err != nil {
		return model.SteamUploadResult{}, err
	}

	result, err := u.uploadBuild(ctx, cfg.AppID, vdfPath, cfg.Branch, sink)
	if err != nil {
		return model.SteamUploadResult{}, err
	}
	result.Channel = cfg.Label
	return result, nil
}

// uploadBuild runs `<tool> +login <account> +run_app_build <vdf> +quit`,
// streaming merged output into the job log and extracting the build id from
// the accumulated text afterwards.
func (u *Uploader) uploadBuild(ctx context.Context, appID, vdfPath, branch string, sink core.LogSink) (model.SteamUploadResult, error) {
	// Fail fast before spawning anything.
	if u.account == "" {
		return model.SteamUploadResult{}, &model.ConfigError{Subject: "steam uploader", Field: "account"}
	}

	sink.Log(ctx, fmt.Sprintf("Starting Steam upload for app %s...", appID), core.LevelInfo)

	args := []string{"+login", u.account, "+run_app_build", vdfPath, "+quit"}
	// Never echo credentials into the job log.
	sink.Log(ctx, fmt.Sprintf("Executing: %s ...", u.tool), core.LevelInfo)

	var lines []string
	exitCode, err := u.runner.Run(ctx, u.tool, args, func(line string) {
		clean := StripANSI(strings.TrimRight(line, "\r\n"))
		sink.Log(ctx, clean, core.LevelInfo)
		lines = append(lines, clean)
	})
	if err != nil {
		return model.SteamUploadResult{}, fmt.Errorf("run %s: %w", u.tool, err)
	}
	if exitCode != 0 {
		procErr := &model.ProcessError{Tool: u.tool, ExitCode: exitCode}
		sink.Log(ctx, procErr.Error(), core.LevelError)
		return model.SteamUploadResult{}, procErr
	}

	result := model.SteamUploadResult{AppID: appID, Success: true}
	if buildID, ok := ExtractBuildID(strings.Join(lines, "\n")); ok {
		result.BuildID = &buildID
		sink.Log(ctx, fmt.Sprintf("Extracted Build ID: %s", buildID), core.LevelInfo)
		if branch != "" {
			b := branch
			result.BranchSet = &b
			sink.Log(ctx, fmt.Sprintf("Build %s set live on branch '%s'", buildID, branch), core.LevelInfo)
		} else {
			sink.Log(ctx, "Build uploaded but not set live on any branch", core.LevelInfo)
		}
	} else {
		sink.Log(ctx, "Could not extract Build ID from output", core.LevelWarning)
	}

	sink.Log(ctx, fmt.Sprintf("Steam upload completed successfully for app %s", appID), core.LevelInfo)
	return result, nil
}

// ExtractBuildID scans uploader output for the first "BuildID <digits>"
// occurrence.
func ExtractBuildID(output string) (string, bool) {
	match := buildIDPattern.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// StripANSI removes terminal escape sequences from a line.
func StripANSI(line string) string {
	return ansiPattern.ReplaceAllString(line, "")
}

func steamChannelSubject(cfg model.SteamChannel) string {
	if cfg.Label != "" {
		return fmt.Sprintf("steam channel %q", cfg.Label)
	}
	return "steam channel"
}
