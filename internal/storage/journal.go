package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/WhistleKey/internal/model"
)

const errJournalNil = "journal is nil"

// Journal keeps every scored sequence of one process in an in-memory
// SQLite database. Nothing survives the process.
type Journal struct {
	DB        *gorm.DB
	db        *sql.DB
	sessionID string
}

type AttemptRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	SessionID string `gorm:"type:varchar(36);index:idx_session_phase,priority:1"`
	Phase     string `gorm:"index:idx_session_phase,priority:2"`
	Distance  int
	Accepted  bool
	Threshold int
	CreatedAt time.Time
}

func NewJournal() (*Journal, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&AttemptRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Journal{DB: db, db: sqlDB, sessionID: uuid.NewString()}, nil
}

func (j *Journal) SessionID() string {
	if j == nil {
		return ""
	}
	return j.sessionID
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordAttempt appends one scored sequence.
func (j *Journal) RecordAttempt(a model.Attempt) error {
	if j == nil || j.DB == nil {
		return errors.New(errJournalNil)
	}
	at := a.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := AttemptRecord{
		ID:        uuid.NewString(),
		SessionID: j.sessionID,
		Phase:     string(a.Phase),
		Distance:  a.Distance,
		Accepted:  a.Accepted,
		Threshold: a.Threshold,
		CreatedAt: at,
	}
	if err := j.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// Attempts lists the session's attempts of one phase in recording order.
// An empty phase lists all of them.
func (j *Journal) Attempts(phase model.Phase) ([]model.Attempt, error) {
	if j == nil || j.DB == nil {
		return nil, errors.New(errJournalNil)
	}

	q := j.DB.Where("session_id = ?", j.sessionID)
	if phase != "" {
		q = q.Where("phase = ?", string(phase))
	}

	var rows []AttemptRecord
	if err := q.Order("created_at asc").Order("rowid asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}

	out := make([]model.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Attempt{
			Phase:     model.Phase(r.Phase),
			Distance:  r.Distance,
			Accepted:  r.Accepted,
			Threshold: r.Threshold,
			At:        r.CreatedAt,
		})
	}
	return out, nil
}

type phaseStats struct {
	Phase    string
	Accepted bool
	N        int
	Total    int64
	Lowest   int
	Highest  int
}

// Summary aggregates the session's attempts.
func (j *Journal) Summary() (model.Summary, error) {
	sum := model.Summary{SessionID: j.SessionID()}
	if j == nil || j.DB == nil {
		return sum, errors.New(errJournalNil)
	}

	var stats []phaseStats
	err := j.DB.Model(&AttemptRecord{}).
		Select("phase, accepted, COUNT(*) AS n, SUM(distance) AS total, MIN(distance) AS lowest, MAX(distance) AS highest").
		Where("session_id = ?", j.sessionID).
		Group("phase, accepted").
		Scan(&stats).Error
	if err != nil {
		return sum, fmt.Errorf("summarising attempts: %w", err)
	}

	var matchTotal int64
	first := true
	for _, s := range stats {
		switch {
		case s.Phase == string(model.PhaseVerify) && s.Accepted:
			sum.VerifyAccepted = s.N
		case s.Phase == string(model.PhaseVerify):
			sum.VerifyRejected = s.N
		case s.Phase == string(model.PhaseMatch) && s.Accepted:
			sum.Matches = s.N
			matchTotal += s.Total
		case s.Phase == string(model.PhaseMatch):
			sum.Mismatches = s.N
			matchTotal += s.Total
		}
		if first || s.Lowest < sum.LowestDistance {
			sum.LowestDistance = s.Lowest
		}
		if first || s.Highest > sum.HighestDistance {
			sum.HighestDistance = s.Highest
		}
		first = false
	}

	if n := sum.Matches + sum.Mismatches; n > 0 {
		sum.MeanMatchError = float64(matchTotal) / float64(n)
	}
	return sum, nil
}
