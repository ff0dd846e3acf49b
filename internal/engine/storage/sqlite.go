package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	_ "modernc.org/sqlite"

	"github.com/rendis/leadtap/internal/model"
)

// Run is one stored collection run.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Keyword    string    `json:"keyword"`
	MaxResults int       `json:"max_results"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Leads      int       `json:"leads"`
}

type Store struct {
	db          *sql.DB
	mu          sync.Mutex
	phoneRegion string
}

// NewStore opens (or creates) the database at dbPath. phoneRegion is the
// ISO region used to read phone numbers written without a country code.
func NewStore(dbPath, phoneRegion string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// One writer; WAL lets readers through.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if phoneRegion == "" {
		phoneRegion = "JP"
	}
	return &Store{db: db, phoneRegion: strings.ToUpper(phoneRegion)}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		max_results INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		leads INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		company_name TEXT NOT NULL,
		industry TEXT,
		address TEXT,
		phone TEXT,
		phone_e164 TEXT,
		website_url TEXT,
		contact_form TEXT,
		social_links TEXT,
		catalog TEXT,
		remarks TEXT,
		maps_url TEXT,
		lat REAL,
		lng REAL,
		collected_at DATETIME NOT NULL,
		UNIQUE(run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_leads_run ON leads(run_id);
	CREATE INDEX IF NOT EXISTS idx_leads_website ON leads(website_url);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// BeginRun records the start of a collection run.
func (s *Store) BeginRun(req model.SearchRequest) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	_, err := s.db.Exec(`INSERT INTO runs (id, keyword, max_results, started_at) VALUES (?,?,?,?)`,
		id.String(), req.Keyword, req.MaxResults, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run as finished with its stored lead count.
func (s *Store) FinishRun(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, leads = (SELECT COUNT(*) FROM leads WHERE run_id = ?)
		WHERE id = ?`, time.Now().UTC(), id.String(), id.String())
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// InsertLeads appends leads to the run in listing order. Each call continues
// after the last stored position, so a second batch never overwrites or
// drops the first.
func (s *Store) InsertLeads(runID uuid.UUID, leads []model.LeadRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	var offset int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM leads WHERE run_id = ?`, runID.String()).Scan(&offset); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("reading next position: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO leads
		(run_id, position, company_name, industry, address, phone, phone_e164, website_url,
		 contact_form, social_links, catalog, remarks, maps_url, lat, lng, collected_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, l := range leads {
		res, err := stmt.Exec(
			runID.String(), offset+i, l.CompanyName, l.Industry, l.Address,
			l.Phone, s.e164(l.Phone), l.WebsiteURL,
			l.ContactForm, l.SocialLinks, l.Catalog, l.Remarks,
			l.MapsURL, l.Lat, l.Lng, l.CollectedAt,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting lead %q: %w", l.CompanyName, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	return inserted, nil
}

// StoredLead is a lead as read back from the database.
type StoredLead struct {
	model.LeadRecord
	RunID     uuid.UUID `json:"run_id"`
	PhoneE164 string    `json:"phone_e164,omitempty"`
}

// Leads returns the leads of one run, or of every run when runID is
// uuid.Nil, in listing order.
func (s *Store) Leads(runID uuid.UUID) ([]StoredLead, error) {
	q := `SELECT run_id, company_name, industry, address, phone, phone_e164, website_url,
		contact_form, social_links, catalog, remarks, maps_url, lat, lng, collected_at
		FROM leads`
	var args []any
	if runID != uuid.Nil {
		q += ` WHERE run_id = ?`
		args = append(args, runID.String())
	}
	q += ` ORDER BY id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying leads: %w", err)
	}
	defer rows.Close()

	var out []StoredLead
	for rows.Next() {
		var (
			l   StoredLead
			rid string
			industry, address, phone, e164, website,
			contact, social, catalog, remarks, mapsURL sql.NullString
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&rid, &l.CompanyName, &industry, &address, &phone, &e164, &website,
			&contact, &social, &catalog, &remarks, &mapsURL, &lat, &lng, &l.CollectedAt); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		if l.RunID, err = uuid.Parse(rid); err != nil {
			return nil, fmt.Errorf("parsing run id: %w", err)
		}
		l.Industry, l.Address, l.Phone = industry.String, address.String, phone.String
		l.PhoneE164, l.WebsiteURL = e164.String, website.String
		l.ContactForm, l.SocialLinks, l.Catalog = contact.String, social.String, catalog.String
		l.Remarks, l.MapsURL = remarks.String, mapsURL.String
		l.Lat, l.Lng = lat.Float64, lng.Float64
		out = append(out, l)
	}
	return out, rows.Err()
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, keyword, max_results, started_at, finished_at, leads FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			id       string
			finished sql.NullTime
		)
		if err := rows.Scan(&id, &r.Keyword, &r.MaxResults, &r.StartedAt, &finished, &r.Leads); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing run id: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored leads across all runs.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM leads").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// e164 formats phone in E.164, or returns "" when it is not a valid number.
func (s *Store) e164(phone string) string {
	if phone == "" || phone == model.Unknown {
		return ""
	}
	num, err := phonenumbers.Parse(phone, s.phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
