package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/database"
)

// PhotoNoteRow is a persisted photo-note record as the store sees it.
// Reason is the raw persisted tag; decoding it into the domain enum is
// the service's job so legacy rows never fail at the storage layer.
type PhotoNoteRow struct {
	ID        int64
	ImageURI  string
	Subject   string
	Reason    string
	Note      *string
	CreatedAt time.Time
}

// PhotoNoteRepository defines the interface for photo-note data access.
// Rows are append-only: there is no update or delete.
type PhotoNoteRepository interface {
	// Insert persists a row, assigns its id and returns it. The write is
	// durable before Insert returns successfully.
	Insert(ctx context.Context, row *PhotoNoteRow) (int64, error)

	// ListAll returns every row ordered by created_at descending.
	ListAll(ctx context.Context) ([]*PhotoNoteRow, error)

	// ObserveAll returns a channel that immediately carries the current
	// full snapshot and a fresh full snapshot after every subsequent
	// insert. Snapshots replace each other; a slow consumer sees the
	// latest state, never a partial one. The subscription ends and the
	// channel is closed when ctx is cancelled. Each subscriber is served
	// independently.
	ObserveAll(ctx context.Context) (<-chan []*PhotoNoteRow, error)
}

// photoNoteRepository implements PhotoNoteRepository using PostgreSQL,
// fanning inserts out to in-process subscribers.
type photoNoteRepository struct {
	db     *database.DB
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[uint64]chan []*PhotoNoteRow
	nextSub uint64
}

// NewPhotoNoteRepository creates a new photo-note repository.
func NewPhotoNoteRepository(db *database.DB, logger *zap.Logger) PhotoNoteRepository {
	return &photoNoteRepository{
		db:     db,
		logger: logger,
		subs:   make(map[uint64]chan []*PhotoNoteRow),
	}
}

// Insert persists a row and notifies every active subscriber with a fresh
// snapshot. The caller never supplies an id; the database assigns it.
func (r *photoNoteRepository) Insert(ctx context.Context, row *PhotoNoteRow) (int64, error) {
	query := `
		INSERT INTO photo_notes (image_uri, subject, reason, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		row.ImageURI,
		row.Subject,
		row.Reason,
		row.Note,
		row.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert photo note: %w", err)
	}
	row.ID = id

	r.broadcast(ctx)

	return id, nil
}

// ListAll retrieves all rows, newest first.
func (r *photoNoteRepository) ListAll(ctx context.Context) ([]*PhotoNoteRow, error) {
	query := `
		SELECT id, image_uri, subject, reason, note, created_at
		FROM photo_notes
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list photo notes: %w", err)
	}
	defer rows.Close()

	var notes []*PhotoNoteRow
	for rows.Next() {
		var note PhotoNoteRow
		err := rows.Scan(
			&note.ID,
			&note.ImageURI,
			&note.Subject,
			&note.Reason,
			&note.Note,
			&note.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo note: %w", err)
		}
		notes = append(notes, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photo notes: %w", err)
	}

	return notes, nil
}

// ObserveAll registers a subscriber and seeds it with the current snapshot.
// The seed is loaded while holding r.mu so no insert can broadcast between
// the snapshot read and the registration: every insert either lands in the
// seed or reaches the subscriber through broadcast.
func (r *photoNoteRepository) ObserveAll(ctx context.Context) (<-chan []*PhotoNoteRow, error) {
	r.mu.Lock()

	initial, err := r.ListAll(ctx)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	ch := make(chan []*PhotoNoteRow, 1)
	ch <- initial

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// broadcast reloads the snapshot and delivers it to every subscriber.
// Delivery conflates: if a subscriber has not consumed the previous
// snapshot yet, it is replaced by the newer one.
func (r *photoNoteRepository) broadcast(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.subs) == 0 {
		return
	}

	// The insert that triggered this broadcast is already durable. A client
	// that disconnects right after writing must not starve the remaining
	// subscribers, so the reload outlives the caller's context.
	snapshot, err := r.ListAll(context.WithoutCancel(ctx))
	if err != nil {
		r.logger.Error("Failed to load snapshot for subscribers", zap.Error(err))
		return
	}

	for _, ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Ensure photoNoteRepository implements PhotoNoteRepository at compile time.
var _ PhotoNoteRepository = (*photoNoteRepository)(nil)
