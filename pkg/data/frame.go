package data

import (
	"database/sql"
	"embed"
	"fmt"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed sql/*
var ddl embed.FS

const (
	insertEncounterSQL  = `INSERT INTO encounter (id, age, gender, priority, call_type) VALUES (?, ?, ?, ?, ?)`
	insertOutcomeSQL    = `INSERT INTO outcome (encounter_id, name, value) VALUES (?, ?, ?)`
	insertPredictionSQL = `INSERT INTO prediction (encounter_id, name, value) VALUES (?, ?, ?)`

	// Per-group encounter counts and age summary for one grouping column.
	selectGroupDescSQL = `SELECT %s AS grp, COUNT(*) AS n, AVG(e.age) AS mean_age
		FROM encounter e
		GROUP BY grp
		ORDER BY grp`

	// Observed outcome prevalence per group; missing labels are excluded.
	selectPrevalenceSQL = `SELECT %s AS grp, o.name, AVG(o.value) AS rate, COUNT(o.value) AS n
		FROM encounter e
		JOIN outcome o ON o.encounter_id = e.id
		WHERE o.value IS NOT NULL
		GROUP BY grp, o.name
		ORDER BY grp, o.name`

	selectCallTypeCountsSQL = `SELECT call_type, COUNT(*) FROM encounter GROUP BY call_type`

	selectScoreMeanSQL = `SELECT p.name, AVG(p.value), MIN(p.value), MAX(p.value)
		FROM prediction p
		GROUP BY p.name
		ORDER BY p.name`
)

// Grouping columns the frame accepts; anything else is rejected rather than
// interpolated into SQL.
var groupColumns = map[string]string{
	"gender":    "e.gender",
	"priority":  "CAST(e.priority AS TEXT)",
	"call_type": "e.call_type",
}

// Frame is the in-memory relational view of one report run. It exists only
// for the duration of the process; nothing is written to disk.
type Frame struct {
	db *sql.DB
}

// NewFrame loads the dataset into a fresh in-memory database.
func NewFrame(ds *Dataset) (*Frame, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory database")
	}
	// The frame is loaded once and queried from one goroutine.
	db.SetMaxOpenConns(1)

	b, err := ddl.ReadFile("sql/ddl.sql")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create frame schema")
	}

	f := &Frame{db: db}
	if err := f.load(ds); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("frame loaded: %d encounters", len(ds.Samples))
	return f, nil
}

func (f *Frame) load(ds *Dataset) error {
	tx, err := f.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	encStmt, err := tx.Prepare(insertEncounterSQL)
	if err != nil {
		return rollback(tx, errors.Wrap(err, "failed to prepare encounter statement"))
	}
	outStmt, err := tx.Prepare(insertOutcomeSQL)
	if err != nil {
		return rollback(tx, errors.Wrap(err, "failed to prepare outcome statement"))
	}
	predStmt, err := tx.Prepare(insertPredictionSQL)
	if err != nil {
		return rollback(tx, errors.Wrap(err, "failed to prepare prediction statement"))
	}

	for i, s := range ds.Samples {
		if _, err := encStmt.Exec(i, s.Age, s.Gender, s.Priority, s.CallType); err != nil {
			return rollback(tx, errors.Wrapf(err, "failed to insert encounter %d", i))
		}
		for _, name := range ds.Labels.Outcomes {
			v := ds.Labels.Values[name][i]
			var cell any
			if !math.IsNaN(v) {
				cell = int(v)
			}
			if _, err := outStmt.Exec(i, name, cell); err != nil {
				return rollback(tx, errors.Wrapf(err, "failed to insert outcome %s for encounter %d", name, i))
			}
		}
		if _, err := predStmt.Exec(i, PredictorScore, ds.Predictions.Score[i]); err != nil {
			return rollback(tx, errors.Wrapf(err, "failed to insert score for encounter %d", i))
		}
		for name, vs := range ds.Predictions.Models {
			if _, err := predStmt.Exec(i, name, vs[i]); err != nil {
				return rollback(tx, errors.Wrapf(err, "failed to insert prediction %s for encounter %d", name, i))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func rollback(tx *sql.Tx, cause error) error {
	if err := tx.Rollback(); err != nil {
		return errors.Wrapf(cause, "rollback also failed: %v", err)
	}
	return cause
}

// Close releases the in-memory database.
func (f *Frame) Close() error {
	return f.db.Close()
}

// GroupDescription is one row of the descriptive table.
type GroupDescription struct {
	Group      string             `json:"group" yaml:"group"`
	N          int                `json:"n" yaml:"n"`
	MeanAge    float64            `json:"mean_age" yaml:"mean_age"`
	Prevalence map[string]float64 `json:"prevalence" yaml:"prevalence"`
}

// Describe summarizes encounters per value of the given grouping column:
// count, mean age, and observed prevalence of every outcome.
func (f *Frame) Describe(groupBy string) ([]GroupDescription, error) {
	col, ok := groupColumns[groupBy]
	if !ok {
		return nil, errors.Errorf("unsupported grouping column: %s", groupBy)
	}

	rows, err := f.db.Query(fmt.Sprintf(selectGroupDescSQL, col))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query group description")
	}
	defer rows.Close()

	var out []GroupDescription
	index := make(map[string]int)
	for rows.Next() {
		var d GroupDescription
		if err := rows.Scan(&d.Group, &d.N, &d.MeanAge); err != nil {
			return nil, errors.Wrap(err, "failed to scan group description")
		}
		d.Prevalence = make(map[string]float64)
		index[d.Group] = len(out)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "group description rows failed")
	}

	prev, err := f.db.Query(fmt.Sprintf(selectPrevalenceSQL, col))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query prevalence")
	}
	defer prev.Close()

	for prev.Next() {
		var grp, name string
		var rate float64
		var n int
		if err := prev.Scan(&grp, &name, &rate, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan prevalence")
		}
		if i, ok := index[grp]; ok {
			out[i].Prevalence[name] = rate
		}
	}
	return out, errors.Wrap(prev.Err(), "prevalence rows failed")
}

// CallTypeCounts tallies encounters per call type, feeding the
// top-category-else-other partition rule.
func (f *Frame) CallTypeCounts() (map[string]int, error) {
	rows, err := f.db.Query(selectCallTypeCountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query call type counts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ct string
		var n int
		if err := rows.Scan(&ct, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan call type count")
		}
		counts[ct] = n
	}
	return counts, errors.Wrap(rows.Err(), "call type rows failed")
}

// PredictorSummary is the score-distribution row of the descriptive table.
type PredictorSummary struct {
	Name string  `json:"name" yaml:"name"`
	Mean float64 `json:"mean" yaml:"mean"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// PredictorSummaries reports the distribution of every prediction vector.
func (f *Frame) PredictorSummaries() ([]PredictorSummary, error) {
	rows, err := f.db.Query(selectScoreMeanSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query predictor summaries")
	}
	defer rows.Close()

	var out []PredictorSummary
	for rows.Next() {
		var s PredictorSummary
		if err := rows.Scan(&s.Name, &s.Mean, &s.Min, &s.Max); err != nil {
			return nil, errors.Wrap(err, "failed to scan predictor summary")
		}
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "predictor summary rows failed")
}
