// relay-admin is the operator CLI for the distribution worker: it enqueues
// jobs, inspects queue and status counts and tails per-job log streams.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/buildrelay/relay-worker/config"
	"github.com/buildrelay/relay-worker/internal/adapters/valkey"
	"github.com/buildrelay/relay-worker/internal/bootstrap"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Client redis.UniversalClient
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	client, err := bootstrap.ConnectValkey(cfg.Valkey, logger)
	if err != nil {
		logger.Error("connect valkey", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal infrastructure failure to shell scripts
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Error("close valkey", "error", cerr)
		}
	}()

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Client: client,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.Error("command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"enqueue": {
			name:        "enqueue",
			description: "Enqueue a job from a JSON payload file (or stdin with -file -)",
			run:         runEnqueue,
		},
		"status": {
			name:        "status",
			description: "Show queue depth and per-status job counts",
			run:         runStatus,
		},
		"tail": {
			name:        "tail",
			description: "Tail the log stream of a job",
			run:         runTail,
		},
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: relay-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0)
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	for _, name := range names {
		cmd := commands()[name]
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.name, cmd.description)
	}
	_ = tw.Flush()
}

func runEnqueue(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	file := fs.String("file", "", "path to a JSON job payload, or - for stdin")
	id := fs.String("id", "", "job id; defaults to a random UUID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	raw, err := readPayload(*file)
	if err != nil {
		return err
	}

	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("parse job payload: %w", err)
	}
	if *id != "" {
		job.ID = *id
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = model.JobStatusQueued

	queue := valkey.NewJobQueueWithKey(ctx.Client, ctx.Config.Worker.QueueKey)
	if err := queue.Enqueue(ctx.Ctx, &job); err != nil {
		return err
	}

	ctx.Logger.Info("job enqueued", "job_id", job.ID, "queue", ctx.Config.Worker.QueueKey)
	return nil
}

func readPayload(file string) ([]byte, error) {
	if file == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return raw, nil
}

func runStatus(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	depth, err := ctx.Client.LLen(ctx.Ctx, ctx.Config.Worker.QueueKey).Result()
	if err != nil {
		return fmt.Errorf("queue depth: %w", err)
	}

	store := valkey.NewJobStore(ctx.Client)
	counts, err := store.Counts(ctx.Ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "queued\t%d\n", depth)
	for _, status := range []model.JobStatus{model.JobStatusRunning, model.JobStatusComplete, model.JobStatusFailed} {
		fmt.Fprintf(tw, "%s\t%d\n", status, counts[status])
	}
	return tw.Flush()
}

func runTail(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	jobID := fs.String("job", "", "job id to tail")
	follow := fs.Bool("follow", false, "keep waiting for new lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID == "" {
		return errors.New("-job is required")
	}

	stream := valkey.StreamKeyPrefix + *jobID
	lastID := "0"
	for {
		entries, err := ctx.Client.XRead(ctx.Ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if *follow {
					continue
				}
				return nil
			}
			return fmt.Errorf("read stream %s: %w", stream, err)
		}

		for _, res := range entries {
			for _, msg := range res.Messages {
				lastID = msg.ID
				printLogEntry(msg.Values)
			}
		}
		if !*follow {
			return nil
		}
	}
}

func printLogEntry(values map[string]any) {
	line, _ := values["line"].(string)
	level, _ := values["level"].(string)
	timestamp, _ := values["timestamp"].(string)
	fmt.Printf("%s [%s] %s\n", timestamp, strings.ToUpper(level), line)
}
