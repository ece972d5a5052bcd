package evaluation

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

var runsBucket = []byte("runs")

// Run is one persisted benchmark run. Only metrics are stored, never model
// state.
type Run struct {
	RunID     uuid.UUID `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Dataset   string    `json:"dataset"`
	Results   []Result  `json:"results"`
}

// NewRun stamps results with a fresh run ID.
func NewRun(dataset string, startedAt time.Time, results []Result) Run {
	return Run{
		RunID:     uuid.New(),
		StartedAt: startedAt.UTC(),
		Dataset:   dataset,
		Results:   results,
	}
}

// Store keeps runs in a bbolt file, keyed by run ID.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the result database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open result store %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create runs bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes run, replacing any run with the same ID.
func (s *Store) SaveRun(run Run) error {
	value, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "encode run")
	}
	key, err := run.RunID.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encode run id")
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put(key, value)
	}); err != nil {
		return errors.Wrapf(err, "store run %s", run.RunID)
	}
	return nil
}

// GetRun reads one run by ID.
func (s *Store) GetRun(id uuid.UUID) (Run, bool, error) {
	key, err := id.MarshalBinary()
	if err != nil {
		return Run{}, false, errors.Wrap(err, "encode run id")
	}
	var (
		run   Run
		found bool
	)
	err = s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(runsBucket).Get(key)
		if value == nil {
			return nil
		}
		found = true
		return json.Unmarshal(value, &run)
	})
	if err != nil {
		return Run{}, false, errors.Wrapf(err, "read run %s", id)
	}
	return run, found, nil
}

// ListRuns returns every stored run, oldest first.
func (s *Store) ListRuns() ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, value []byte) error {
			var run Run
			if err := json.Unmarshal(value, &run); err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}
