package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ldi/campushelp/pkg/models"
)

const snapshotVersion = 1

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
}

type memberRecord struct {
	RecordType string `json:"record_type"`
	*models.Member
}

type taskRecord struct {
	RecordType string `json:"record_type"`
	*models.Task
}

type applicationRecord struct {
	RecordType string `json:"record_type"`
	*models.Application
}

type reviewRecord struct {
	RecordType string `json:"record_type"`
	*models.Review
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Hooks are best-effort; a failed export must not fail the write
		// that already committed.
		_ = db.ExportSnapshot(ctx, path)
	})
}

// ExportSnapshot writes every member, task, application and review to path
// as JSON Lines, atomically via a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	enc := json.NewEncoder(w)

	if err := enc.Encode(snapshotMeta{RecordType: "meta", Version: snapshotVersion, ExportedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("failed to write snapshot meta: %w", err)
	}

	members, err := queryMembers(ctx, db.DB, `SELECT `+memberColumns+` FROM members m ORDER BY m.created_at, m.id`)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := enc.Encode(memberRecord{RecordType: "member", Member: m}); err != nil {
			return fmt.Errorf("failed to write member: %w", err)
		}
	}

	tasks, err := queryTasks(ctx, db.DB, `SELECT `+taskColumns+` FROM tasks t ORDER BY t.created_at, t.id`)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := enc.Encode(taskRecord{RecordType: "task", Task: t}); err != nil {
			return fmt.Errorf("failed to write task: %w", err)
		}
	}

	for _, t := range tasks {
		apps, err := db.ListApplications(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, a := range apps {
			if err := enc.Encode(applicationRecord{RecordType: "application", Application: a}); err != nil {
				return fmt.Errorf("failed to write application: %w", err)
			}
		}
	}

	if err := db.exportReviews(ctx, enc); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (db *DB) exportReviews(ctx context.Context, enc *json.Encoder) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id, task_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews ORDER BY created_at, id
	`)
	if err != nil {
		return fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r := &models.Review{}
		if err := rows.Scan(&r.ID, &r.TaskID, &r.ReviewerID, &r.RevieweeID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan review: %w", err)
		}
		if err := enc.Encode(reviewRecord{RecordType: "review", Review: r}); err != nil {
			return fmt.Errorf("failed to write review: %w", err)
		}
	}
	return rows.Err()
}

// ImportSnapshot replays a JSON Lines snapshot into an empty store inside a
// single transaction.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	return db.WithTx(ctx, func(tx *Tx) error {
		var existing int
		if err := tx.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&existing); err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("refusing to import into a non-empty store (%d members)", existing)
		}

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var base struct {
				RecordType string `json:"record_type"`
				Version    int    `json:"version"`
			}
			if err := json.Unmarshal(line, &base); err != nil {
				return fmt.Errorf("line %d: failed to unmarshal base record: %w", lineNo, err)
			}

			switch base.RecordType {
			case "meta":
				if base.Version != snapshotVersion {
					return fmt.Errorf("unsupported snapshot version %d", base.Version)
				}
			case "member":
				var m models.Member
				if err := json.Unmarshal(line, &m); err != nil {
					return fmt.Errorf("line %d: failed to unmarshal member: %w", lineNo, err)
				}
				if err := createMember(ctx, tx.tx, &m); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
			case "task":
				var t models.Task
				if err := json.Unmarshal(line, &t); err != nil {
					return fmt.Errorf("line %d: failed to unmarshal task: %w", lineNo, err)
				}
				if err := createTask(ctx, tx.tx, &t); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
			case "application":
				var a models.Application
				if err := json.Unmarshal(line, &a); err != nil {
					return fmt.Errorf("line %d: failed to unmarshal application: %w", lineNo, err)
				}
				if err := tx.CreateApplication(ctx, &a); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
			case "review":
				var r models.Review
				if err := json.Unmarshal(line, &r); err != nil {
					return fmt.Errorf("line %d: failed to unmarshal review: %w", lineNo, err)
				}
				if err := tx.CreateReview(ctx, &r); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
			default:
				return fmt.Errorf("line %d: unknown record type %q", lineNo, base.RecordType)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("scanner error: %w", err)
		}
		return nil
	})
}
