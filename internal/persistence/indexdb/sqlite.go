package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/session"
	"tutorsim.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of episode outcomes. Writes are
// queued and applied by one goroutine; when the queue is full they are
// dropped, the trace logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropStarted  atomic.Uint64
	dropDispatch atomic.Uint64
	dropEnded    atomic.Uint64
}

type reqKind int

const (
	reqStarted reqKind = iota + 1
	reqDispatch
	reqEnded
)

type req struct {
	kind reqKind

	started  session.EpisodeInfo
	dispatch session.DispatchRecord
	ended    session.Outcome
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int

	DropStartedTotal  uint64
	DropDispatchTotal uint64
	DropEndedTotal    uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS episodes (
			episode_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			learner TEXT NOT NULL,
			task TEXT NOT NULL,
			max_time INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			cause TEXT,
			reward INTEGER,
			rewarded INTEGER,
			elapsed INTEGER,
			faults INTEGER,
			violations INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_task ON episodes(task, cause);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_session ON episodes(session_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS dispatches (
			episode_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			utterance TEXT,
			delivered TEXT NOT NULL,
			feedback TEXT,
			elapsed INTEGER NOT NULL,
			at TEXT NOT NULL,
			PRIMARY KEY (episode_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS problems (
			episode_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			n INTEGER NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			PRIMARY KEY (episode_id, seq, n)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_problems_kind ON problems(kind);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropStartedTotal:  s.dropStarted.Load(),
		DropDispatchTotal: s.dropDispatch.Load(),
		DropEndedTotal:    s.dropEnded.Load(),
	}
}

func (s *SQLiteIndex) EpisodeStarted(e session.EpisodeInfo) {
	s.enqueue(req{kind: reqStarted, started: e}, &s.dropStarted)
}

func (s *SQLiteIndex) Dispatched(d session.DispatchRecord) {
	s.enqueue(req{kind: reqDispatch, dispatch: d}, &s.dropDispatch)
}

func (s *SQLiteIndex) EpisodeEnded(o session.Outcome) {
	s.enqueue(req{kind: reqEnded, ended: o}, &s.dropEnded)
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

// UpsertCatalogs records the content and tuning a server run applies.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(cats.Verbs.Defs); len(b) > 0 {
		rows = append(rows, kv{name: "verbs", digest: cats.Verbs.Digest, json: b})
	}
	if b, _ := json.Marshal(cats.Objects.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "objects", digest: cats.Objects.Digest, json: b})
	}
	if b, _ := json.Marshal(cats.Association); len(b) > 0 {
		rows = append(rows, kv{name: "association", digest: cats.Digest, json: b})
	}
	// Tuning: store the values we actually apply (canonical JSON).
	if b, _ := json.Marshal(tune); len(b) > 0 {
		rows = append(rows, kv{name: "tuning", digest: tune.Digest(), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('content_digest',?)`, cats.Digest); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertEpisode, _ := s.db.Prepare(`INSERT OR REPLACE INTO episodes(episode_id,session_id,learner,task,max_time,started_at) VALUES(?,?,?,?,?,?)`)
	endEpisode, _ := s.db.Prepare(`INSERT INTO episodes(episode_id,session_id,learner,task,max_time,started_at,ended_at,cause,reward,rewarded,elapsed,faults,violations)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(episode_id) DO UPDATE SET ended_at=excluded.ended_at, cause=excluded.cause, reward=excluded.reward,
			rewarded=excluded.rewarded, elapsed=excluded.elapsed, faults=excluded.faults, violations=excluded.violations`)
	insertDispatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO dispatches(episode_id,seq,utterance,delivered,feedback,elapsed,at) VALUES(?,?,?,?,?,?,?)`)
	insertProblem, _ := s.db.Prepare(`INSERT OR REPLACE INTO problems(episode_id,seq,n,kind,message) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEpisode, endEpisode, insertDispatch, insertProblem} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second

		// dispatch sequencing per episode (assigned in the writer goroutine)
		seqs = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqStarted:
			e := r.started
			exec(insertEpisode, e.EpisodeID, e.SessionID, e.Learner, e.Task, e.MaxTime, stamp(e.At))

		case reqDispatch:
			d := r.dispatch
			seq := seqs[d.EpisodeID]
			seqs[d.EpisodeID] = seq + 1
			if !exec(insertDispatch, d.EpisodeID, seq, d.Utterance, strings.Join(d.Delivered, ","), d.Feedback, d.Elapsed, stamp(d.At)) {
				continue
			}
			n := 0
			for _, f := range d.Faults {
				if !exec(insertProblem, d.EpisodeID, seq, n, "fault", f) {
					break
				}
				n++
			}
			for _, v := range d.Violations {
				if !exec(insertProblem, d.EpisodeID, seq, n, "violation", v) {
					break
				}
				n++
			}

		case reqEnded:
			o := r.ended
			delete(seqs, o.EpisodeID)
			exec(endEpisode, o.EpisodeID, o.SessionID, o.Learner, o.Task, o.MaxTime, stamp(o.Started), stamp(o.Ended),
				o.Cause, o.Reward, boolInt(o.Rewarded), o.Elapsed, o.Faults, o.Violations)
		}
		flushIfNeeded()
	}

	commit()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
