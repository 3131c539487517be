package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/store"
)

// SQLite persists the registry in a SQLite database.
type SQLite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS actors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    phone TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'producer',
    locality TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    registered_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS trip_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    actor_id INTEGER NOT NULL REFERENCES actors(id),
    kind TEXT NOT NULL,
    origin TEXT NOT NULL,
    destination TEXT NOT NULL,
    cereal TEXT NOT NULL DEFAULT '',
    tons REAL NOT NULL DEFAULT 0,
    capacity_tons REAL NOT NULL DEFAULT 0,
    date TEXT NOT NULL DEFAULT '',
    time_estimate TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS match_proposals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    capacity_event_id INTEGER NOT NULL REFERENCES trip_events(id),
    demand_event_id INTEGER NOT NULL REFERENCES trip_events(id),
    capacity_actor_id INTEGER NOT NULL REFERENCES actors(id),
    demand_actor_id INTEGER NOT NULL REFERENCES actors(id),
    score REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'proposed',
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    phone TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trip_events_status ON trip_events(status, kind);
CREATE INDEX IF NOT EXISTS idx_proposals_status ON match_proposals(status);
CREATE INDEX IF NOT EXISTS idx_conversations_phone ON conversations(phone, id);
`

// NewSQLite opens or creates the database at path and ensures the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

var _ store.Store = (*SQLite)(nil)

func (s *SQLite) FindOrCreateActor(ctx context.Context, phone, name string, role model.Role, locality string) (model.Actor, error) {
	if a, err := s.GetActor(ctx, phone); err == nil {
		return a, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Actor{}, err
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO actors (phone, name, role, locality, active, registered_at) VALUES (?, ?, ?, ?, 1, ?)`,
		phone, name, string(role), locality, now.Unix())
	if err != nil {
		return model.Actor{}, fmt.Errorf("insert actor: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{ID: id, Phone: phone, Name: name, Role: role, Locality: locality, Active: true, RegisteredAt: now}, nil
}

func (s *SQLite) GetActor(ctx context.Context, phone string) (model.Actor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone, name, role, locality, active, registered_at FROM actors WHERE phone = ?`, phone)
	return scanActor(row)
}

func (s *SQLite) UpdateActor(ctx context.Context, phone string, upd store.ActorUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE actors SET
            name = CASE WHEN ? != '' THEN ? ELSE name END,
            role = CASE WHEN ? != '' THEN ? ELSE role END,
            locality = CASE WHEN ? != '' THEN ? ELSE locality END
         WHERE phone = ?`,
		upd.Name, upd.Name, string(upd.Role), string(upd.Role), upd.Locality, upd.Locality, phone)
	if err != nil {
		return fmt.Errorf("update actor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLite) CreateTripEvent(ctx context.Context, actorID int64, kind model.EventKind, origin, destination string, extras store.TripExtras) (model.TripEvent, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trip_events (actor_id, kind, origin, destination, cereal, tons, capacity_tons, date, time_estimate, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?)`,
		actorID, string(kind), origin, destination, extras.Cereal, extras.Tons, extras.CapacityTons,
		extras.Date, extras.TimeEstimate, now.Unix())
	if err != nil {
		return model.TripEvent{}, fmt.Errorf("insert trip event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TripEvent{}, err
	}
	return s.getTripEvent(ctx, id)
}

const tripEventSelect = `
SELECT e.id, e.actor_id, e.kind, e.origin, e.destination, e.cereal, e.tons,
       e.capacity_tons, e.date, e.time_estimate, e.status, e.created_at,
       a.name, a.phone, a.locality
FROM trip_events e JOIN actors a ON a.id = e.actor_id`

func (s *SQLite) getTripEvent(ctx context.Context, id int64) (model.TripEvent, error) {
	row := s.db.QueryRowContext(ctx, tripEventSelect+` WHERE e.id = ?`, id)
	return scanTripEvent(row)
}

func (s *SQLite) ListActiveTripEvents(ctx context.Context, kind model.EventKind) ([]model.TripEvent, error) {
	q := tripEventSelect + ` WHERE e.status = 'active'`
	args := []any{}
	if kind != "" {
		q += ` AND e.kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY e.id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list trip events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.TripEvent
	for rows.Next() {
		ev, err := scanTripEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateTripEventStatus(ctx context.Context, id int64, status model.EventStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE trip_events SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update trip event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLite) CreateMatchProposal(ctx context.Context, capacityEventID, demandEventID, capacityActorID, demandActorID int64, score float64) (model.MatchProposal, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO match_proposals (capacity_event_id, demand_event_id, capacity_actor_id, demand_actor_id, score, status, created_at)
         VALUES (?, ?, ?, ?, ?, 'proposed', ?)`,
		capacityEventID, demandEventID, capacityActorID, demandActorID, score, time.Now().Unix())
	if err != nil {
		return model.MatchProposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.MatchProposal{}, err
	}
	return s.getProposal(ctx, id)
}

const proposalSelect = `
SELECT p.id, p.capacity_event_id, p.demand_event_id, p.capacity_actor_id, p.demand_actor_id,
       p.score, p.status, p.created_at,
       ca.name, ca.phone, ca.locality,
       da.name, da.phone, da.locality
FROM match_proposals p
JOIN actors ca ON ca.id = p.capacity_actor_id
JOIN actors da ON da.id = p.demand_actor_id`

func (s *SQLite) getProposal(ctx context.Context, id int64) (model.MatchProposal, error) {
	row := s.db.QueryRowContext(ctx, proposalSelect+` WHERE p.id = ?`, id)
	return scanProposal(row)
}

func (s *SQLite) ListActiveMatchProposals(ctx context.Context) ([]model.MatchProposal, error) {
	rows, err := s.db.QueryContext(ctx, proposalSelect+` WHERE p.status = 'proposed' ORDER BY p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.MatchProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateProposalStatus(ctx context.Context, id int64, status model.ProposalStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE match_proposals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLite) MostRecentPendingProposalForActor(ctx context.Context, actorID int64) (model.MatchProposal, error) {
	row := s.db.QueryRowContext(ctx, proposalSelect+`
        WHERE p.status = 'proposed' AND (p.capacity_actor_id = ? OR p.demand_actor_id = ?)
        ORDER BY p.id DESC LIMIT 1`, actorID, actorID)
	return scanProposal(row)
}

func (s *SQLite) SaveConversation(ctx context.Context, phone, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (phone, role, content, created_at) VALUES (?, ?, ?, ?)`,
		phone, role, content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

func (s *SQLite) ConversationHistory(ctx context.Context, phone string, limit int) ([]model.Turn, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT role, content FROM (
            SELECT id, role, content FROM conversations WHERE phone = ? ORDER BY id DESC LIMIT ?
        ) ORDER BY id ASC`, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.Turn
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	queries := []struct {
		dst *int
		q   string
	}{
		{&st.Actors, `SELECT COUNT(*) FROM actors`},
		{&st.Carriers, `SELECT COUNT(*) FROM actors WHERE role = 'carrier'`},
		{&st.Producers, `SELECT COUNT(*) FROM actors WHERE role = 'producer'`},
		{&st.ActiveEvents, `SELECT COUNT(*) FROM trip_events WHERE status = 'active'`},
		{&st.CapacityReturns, `SELECT COUNT(*) FROM trip_events WHERE status = 'active' AND kind = 'capacity_return'`},
		{&st.DemandRequests, `SELECT COUNT(*) FROM trip_events WHERE status = 'active' AND kind = 'demand_request'`},
		{&st.Proposals, `SELECT COUNT(*) FROM match_proposals`},
		{&st.Accepted, `SELECT COUNT(*) FROM match_proposals WHERE status = 'accepted'`},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.q).Scan(q.dst); err != nil {
			return model.Stats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActor(row scanner) (model.Actor, error) {
	var a model.Actor
	var role string
	var active int
	var registered int64
	err := row.Scan(&a.ID, &a.Phone, &a.Name, &role, &a.Locality, &active, &registered)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Actor{}, store.ErrNotFound
	}
	if err != nil {
		return model.Actor{}, fmt.Errorf("scan actor: %w", err)
	}
	a.Role = model.Role(role)
	a.Active = active != 0
	a.RegisteredAt = time.Unix(registered, 0)
	return a, nil
}

func scanTripEvent(row scanner) (model.TripEvent, error) {
	var ev model.TripEvent
	var kind, status string
	var created int64
	err := row.Scan(&ev.ID, &ev.ActorID, &kind, &ev.Origin, &ev.Destination, &ev.Cereal,
		&ev.Tons, &ev.CapacityTons, &ev.Date, &ev.TimeEstimate, &status, &created,
		&ev.OwnerName, &ev.OwnerPhone, &ev.OwnerLocality)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TripEvent{}, store.ErrNotFound
	}
	if err != nil {
		return model.TripEvent{}, fmt.Errorf("scan trip event: %w", err)
	}
	ev.Kind = model.EventKind(kind)
	ev.Status = model.EventStatus(status)
	ev.CreatedAt = time.Unix(created, 0)
	return ev, nil
}

func scanProposal(row scanner) (model.MatchProposal, error) {
	var p model.MatchProposal
	var status string
	var created int64
	err := row.Scan(&p.ID, &p.CapacityEventID, &p.DemandEventID, &p.CapacityActorID, &p.DemandActorID,
		&p.Score, &status, &created,
		&p.CapacityName, &p.CapacityPhone, &p.CapacityLocality,
		&p.DemandName, &p.DemandPhone, &p.DemandLocality)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MatchProposal{}, store.ErrNotFound
	}
	if err != nil {
		return model.MatchProposal{}, fmt.Errorf("scan proposal: %w", err)
	}
	p.Status = model.ProposalStatus(status)
	p.CreatedAt = time.Unix(created, 0)
	return p, nil
}
