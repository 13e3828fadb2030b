package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/store"
)

// SnapshotRepo persists entity snapshots as JSON documents in the
// 'entity_snapshots' table (kind, entity_id, doc, updated_at with a
// unique key on kind+entity_id).  The in-memory store is the source of
// truth while the process runs; this table only gives the demo data a
// life across restarts.  Saves are fire-and-forget — durability is not
// guaranteed by the core.
type SnapshotRepo struct{ DB *sql.DB }

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{DB: db} }

// Save upserts one entity document.
func (r *SnapshotRepo) Save(ctx context.Context, kind store.Kind, id string, entity any) error {
	doc, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO entity_snapshots (kind, entity_id, doc) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE doc=VALUES(doc)`,
		string(kind), id, doc)
	return err
}

// SaveAsync performs Save on its own goroutine with a short timeout and
// logs failures.  It exists so upsert paths can persist without ever
// blocking a store lock or a tick on the database.
func (r *SnapshotRepo) SaveAsync(kind store.Kind, id string, entity any) {
	if r == nil || r.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Save(ctx, kind, id, entity); err != nil {
			log.Printf("snapshot: save %s/%s failed: %v", kind, id, err)
		}
	}()
}

// Delete removes one entity document.
func (r *SnapshotRepo) Delete(ctx context.Context, kind store.Kind, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM entity_snapshots WHERE kind=? AND entity_id=?", string(kind), id)
	return err
}

// DeleteAsync performs Delete on its own goroutine, mirroring SaveAsync:
// removal paths never block on the database either.
func (r *SnapshotRepo) DeleteAsync(kind store.Kind, id string) {
	if r == nil || r.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Delete(ctx, kind, id); err != nil {
			log.Printf("snapshot: delete %s/%s failed: %v", kind, id, err)
		}
	}()
}

// loadDocs returns every stored document of one kind.
func (r *SnapshotRepo) loadDocs(ctx context.Context, kind store.Kind) ([][]byte, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT doc FROM entity_snapshots WHERE kind=? ORDER BY entity_id", string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// LoadTemples returns every persisted temple.
func (r *SnapshotRepo) LoadTemples(ctx context.Context) ([]model.Temple, error) {
	docs, err := r.loadDocs(ctx, store.KindTemple)
	if err != nil {
		return nil, err
	}
	out := make([]model.Temple, 0, len(docs))
	for _, doc := range docs {
		var t model.Temple
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadSlots returns every persisted slot.
func (r *SnapshotRepo) LoadSlots(ctx context.Context) ([]model.Slot, error) {
	docs, err := r.loadDocs(ctx, store.KindSlot)
	if err != nil {
		return nil, err
	}
	out := make([]model.Slot, 0, len(docs))
	for _, doc := range docs {
		var s model.Slot
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadBookings returns every persisted booking.
func (r *SnapshotRepo) LoadBookings(ctx context.Context) ([]model.Booking, error) {
	docs, err := r.loadDocs(ctx, store.KindBooking)
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(docs))
	for _, doc := range docs {
		var b model.Booking
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// LoadAlerts returns every persisted alert.
func (r *SnapshotRepo) LoadAlerts(ctx context.Context) ([]model.Alert, error) {
	docs, err := r.loadDocs(ctx, store.KindAlert)
	if err != nil {
		return nil, err
	}
	out := make([]model.Alert, 0, len(docs))
	for _, doc := range docs {
		var a model.Alert
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
