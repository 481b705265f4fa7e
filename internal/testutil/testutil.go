// Package testutil provides shared helpers for tests: Valkey setup with
// automatic address detection, job payload builders and temp build trees.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
}

// GetTestValkeyAddr returns the appropriate Valkey address for testing.
// It checks environment variables to determine if we're in CI or local
// development. Returns the address and whether a server is reachable there.
func GetTestValkeyAddr(t TestingTB) (string, bool) {
	t.Helper()

	if ciAddr := os.Getenv("VALKEY_ADDR"); ciAddr != "" {
		return testValkeyConnection(t, ciAddr)
	}

	ciAddresses := []string{
		"valkey:6379",    // Docker Compose service name in CI
		"localhost:6379", // Alternative CI setup
	}
	for _, candidate := range ciAddresses {
		if validatedAddr, ok := testValkeyConnection(t, candidate); ok {
			return validatedAddr, true
		}
	}

	// Default to local test server address
	return testValkeyConnection(t, "localhost:56379")
}

func testValkeyConnection(t TestingTB, addr string) (string, bool) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close valkey client: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("Valkey not available at %s: %v", addr, err)
		return addr, false
	}
	return addr, true
}

// selectTestValkeyDB chooses a DB index for tests to avoid cross-package
// interference. Priority:
//  1. TEST_VALKEY_DB env var if set and valid (>=0)
//  2. Reserve a DB in [1..15] by acquiring a lock key in a meta DB (DB 0)
//     so FlushDB in the selected test DB won't remove the reservation
//  3. Fallback to DB=1.
func selectTestValkeyDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_VALKEY_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("Invalid TEST_VALKEY_DB=%q, falling back to auto-select", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() {
		if err := meta.Close(); err != nil {
			t.Logf("warning: failed to close valkey meta client: %v", err)
		}
	}()

	for i := 1; i <= 15; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lockKey := fmt.Sprintf("buildrelay:testutil:db_lock:%d", i)
		lockVal := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
		ok, err := meta.SetNX(ctx, lockKey, lockVal, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}

		registerValkeyCleanup(t, addr, lockKey)
		t.Logf("Using Valkey DB=%d for tests at %s", i, addr)
		return i
	}

	t.Logf("Falling back to Valkey DB=1 for tests at %s", addr)
	return 1
}

func registerValkeyCleanup(t TestingTB, addr, lockKey string) {
	tc, ok := any(t).(interface{ Cleanup(func()) })
	if !ok {
		return
	}

	tc.Cleanup(func() {
		c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Del(ctx, lockKey).Err(); err != nil {
			t.Logf("warning: failed to release valkey db lock %s: %v", lockKey, err)
		}
		cancel()
		if err := c.Close(); err != nil {
			t.Logf("warning: failed to close valkey cleanup client: %v", err)
		}
	})
}

func requireValkey() bool {
	v := strings.ToLower(os.Getenv("TEST_REQUIRE_VALKEY"))
	if v == "" {
		v = strings.ToLower(os.Getenv("TEST_REQUIRE_INFRA"))
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SetupTestValkey creates a Valkey client for testing with automatic address
// detection. Tests are skipped if no server is available, unless
// TEST_REQUIRE_VALKEY (or TEST_REQUIRE_INFRA) is set.
func SetupTestValkey(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := GetTestValkeyAddr(t)
	if !ok {
		if requireValkey() {
			t.Fatal("Valkey not available for testing")
		}
		t.Skip("Valkey not available for testing")
	}

	dbIndex := selectTestValkeyDB(t, addr)
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIndex,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close valkey client after ping error: %v", cerr)
		}
		if requireValkey() {
			t.Fatalf("Valkey not available for testing at %s: %v", addr, err)
		}
		t.Skipf("Valkey not available for testing at %s: %v", addr, err)
	}

	// Clean up any existing test data
	client.FlushDB(ctx)

	return client
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Job builders

// NewTestJob returns a minimal queued job with the given id.
func NewTestJob(id string) *model.Job {
	return &model.Job{
		ID:       id,
		Project:  "tower-defense",
		Platform: "windows",
		Source:   "ci",
		Status:   model.JobStatusQueued,
	}
}

// NewTestCDNChannel returns a fully populated CDN channel pointing at the
// given bucket.
func NewTestCDNChannel(bucket string) model.CDNChannel {
	return model.CDNChannel{
		BucketName:      bucket,
		Region:          "us-east-1",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
	}
}

// NewTestSteamChannel returns a Steam channel with a single depot.
func NewTestSteamChannel(appID string) model.SteamChannel {
	return model.SteamChannel{
		AppID:  appID,
		Depots: []model.Depot{{ID: appID + "1"}},
	}
}

// Filesystem builders

// WriteTestTree creates files under dir from a map of relative path to
// contents, creating intermediate directories as needed.
func WriteTestTree(t TestingTB, dir string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// ReadTestTree reads every regular file under dir into a map of slash-separated
// relative path to contents.
func ReadTestTree(t TestingTB, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		out[filepath.ToSlash(rel)] = string(raw)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", dir, err)
	}
	return out
}

// Common pointer helpers for tests.

// StringPtr returns a pointer to the given string value.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to the given time value.
func TimePtr(t time.Time) *time.Time {
	return &t
}
