// Package jobq implements the durable job queue backing all long-running
// work: archive builds, torrent builds, image processing, and periodic
// maintenance.
//
// Jobs live in a Postgres table. Request handlers enqueue; a fixed pool
// of workers dequeues with FOR UPDATE SKIP LOCKED and runs one job to
// completion at a time. On success the job row is deleted; on failure it
// is marked disabled for operator inspection.
package jobq

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// The closed set of job commands.
const (
	CommandCreateCBZ        = "create_cbz"
	CommandCreateTorrent    = "create_torrent"
	CommandReleaseBook      = "release_book"
	CommandDeleteBook       = "delete_book"
	CommandDeleteImg        = "delete_img"
	CommandOptimizeImg      = "optimize_img"
	CommandOptimizeRelease  = "optimize_img_for_release"
	CommandUpdateIndicia    = "update_indicia"
	CommandProcessActivity  = "process_activity_logs"
	CommandPurgeTorrents    = "purge_torrents"
	CommandSearchPrefetch   = "search_prefetch"
	CommandSitemap          = "sitemap"
	CommandIntegrity        = "integrity"
)

// Status is the lifecycle state of a job row.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	// StatusDisabled marks a job that failed or was refused; it stays in
	// the table for inspection and is never picked up again.
	StatusDisabled Status = "disabled"
)

// Priority orders dequeuing. Higher runs first; ties break on id, so
// equal-priority jobs run in insertion order.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 5
	PriorityHigh   Priority = 10
)

// Job is one unit of queued background work.
type Job struct {
	ID         int64     `json:"id"`
	Command    string    `json:"command"`
	Args       []string  `json:"args"`
	Priority   Priority  `json:"priority"`
	Status     Status    `json:"status"`
	StartAfter time.Time `json:"start_after"`
	// Attempts counts dequeues, for operator visibility on disabled rows.
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// # Requeue Arguments

// ParseRequeues extracts the --requeues / --max-requeues pair a job may
// carry when it re-queues itself, returning the remaining positional
// arguments. Absent flags default to 0 and max.
func ParseRequeues(args []string, defaultMax int) (requeues, maxRequeues int, rest []string) {
	maxRequeues = defaultMax
	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--requeues":
			if i+1 < len(args) {
				requeues, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "--max-requeues":
			if i+1 < len(args) {
				maxRequeues, _ = strconv.Atoi(args[i+1])
				i++
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return requeues, maxRequeues, rest
}

// fingerprintArgs strips the requeue bookkeeping flags so re-queued runs
// of the same logical job share a fingerprint.
func fingerprintArgs(args []string) []string {
	_, _, rest := ParseRequeues(args, 0)
	return rest
}

// Fingerprint identifies the logical work of a job for dedupe purposes.
func Fingerprint(command string, args []string) string {
	return command + " " + strings.Join(fingerprintArgs(args), " ")
}

// matchesFingerprint reports whether a stored job's raw args carry the
// same logical work as the already-stripped fingerprint args. Stored args
// may include requeue flags, so every dedupe lookup compares through this
// predicate rather than against the raw args.
func matchesFingerprint(stored, stripped []string) bool {
	return slices.Equal(fingerprintArgs(stored), stripped)
}
