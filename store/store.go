package store

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/teamflow/rolecall/internal/kvutil"
)

// Config holds the KV bucket names used by the stores.
type Config struct {
	// SubmissionsBucket is the bucket for per-participant submissions.
	SubmissionsBucket string `yaml:"submissionsBucket"`

	// SessionsBucket is the bucket for rosters, role slots and finalized
	// flags.
	SessionsBucket string `yaml:"sessionsBucket"`

	// AssignmentsBucket is the bucket for persisted role assignments.
	AssignmentsBucket string `yaml:"assignmentsBucket"`
}

// DefaultConfig returns bucket names suitable for production.
func DefaultConfig() Config {
	return Config{
		SubmissionsBucket: "rolecall-submissions",
		SessionsBucket:    "rolecall-sessions",
		AssignmentsBucket: "rolecall-assignments",
	}
}

// SetDefaults fills in missing bucket names.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.SubmissionsBucket == "" {
		cfg.SubmissionsBucket = defaults.SubmissionsBucket
	}
	if cfg.SessionsBucket == "" {
		cfg.SessionsBucket = defaults.SessionsBucket
	}
	if cfg.AssignmentsBucket == "" {
		cfg.AssignmentsBucket = defaults.AssignmentsBucket
	}
}

// Stores bundles the three KV-backed stores created by Bootstrap.
type Stores struct {
	Submissions *Submissions
	Sessions    *Sessions
	Assignments *Assignments
}

// Bootstrap creates (or opens) the KV buckets and returns the stores.
//
// Safe to call from multiple instances concurrently; bucket creation races
// are handled with retries.
//
// Parameters:
//   - ctx: Context for bucket creation timeout
//   - conn: NATS connection
//   - cfg: Bucket names (missing names get defaults)
//
// Returns:
//   - *Stores: The three bound stores
//   - error: Bucket creation/open failure
func Bootstrap(ctx context.Context, conn *nats.Conn, cfg Config) (*Stores, error) {
	SetDefaults(&cfg)

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	const maxRetries = 5

	subKV, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:  cfg.SubmissionsBucket,
		History: 1,
	}, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure submissions bucket: %w", err)
	}

	sessKV, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:  cfg.SessionsBucket,
		History: 1,
	}, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure sessions bucket: %w", err)
	}

	asgnKV, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:  cfg.AssignmentsBucket,
		History: 1,
	}, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure assignments bucket: %w", err)
	}

	return &Stores{
		Submissions: NewSubmissions(subKV),
		Sessions:    NewSessions(sessKV),
		Assignments: NewAssignments(asgnKV),
	}, nil
}

// snapshotEntries reads the current values matching pattern using a KV
// watcher. The watcher replays existing entries and sends a nil marker when
// the replay is done, which gives point-in-time snapshot semantics without
// holding any lock: concurrent writes during iteration may or may not be
// included but never corrupt the result.
func snapshotEntries(ctx context.Context, kv jetstream.KeyValue, pattern string) ([]jetstream.KeyValueEntry, error) {
	watcher, err := kv.Watch(ctx, pattern, jetstream.IgnoreDeletes())
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", pattern, err)
	}
	defer func() { _ = watcher.Stop() }()

	var entries []jetstream.KeyValueEntry

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry := <-watcher.Updates():
			if entry == nil {
				// End of initial replay; the snapshot is complete.
				return entries, nil
			}
			entries = append(entries, entry)
		}
	}
}
