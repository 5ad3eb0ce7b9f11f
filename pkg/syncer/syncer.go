// Package syncer drives a full reconcile pass: merge incoming candidates,
// sweep old completed records to the archive, push every active record to
// each destination at most once, then pull remote status back.
package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/duesync/duesync/pkg/archive"
	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/destinations"
	"github.com/duesync/duesync/pkg/journal"
	"github.com/duesync/duesync/pkg/merge"
	"github.com/duesync/duesync/pkg/store"
)

// ErrSyncInProgress is returned when a pass is already running.
var ErrSyncInProgress = errors.New("sync pass already in progress")

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything a Syncer needs.
type Config struct {
	Store         *store.Store
	Destinations  []destinations.Destination
	Journal       *journal.DB // optional
	Log           Logger           // optional; nil = no logging
	RetentionDays int              // defaults to archive.DefaultRetentionDays if <= 0
	CallTimeout   time.Duration    // per external call; defaults to 30s
	Engine        *merge.Engine    // defaults to merge.NewEngine()
}

// Summary is the outcome of one pass.
type Summary struct {
	Inserted int
	Updated  int
	Ignored  int
	Archived int

	// per-destination counters keyed by destination name
	Created map[string]int
	Adopted map[string]int
	Skipped map[string]int

	StatusUpdated int
	Restored      int

	Errors []error // non-fatal errors
}

type Syncer struct {
	cfg     Config
	log     Logger
	engine  *merge.Engine
	manager *archive.Manager

	mu      sync.Mutex
	running bool
}

func New(cfg Config) *Syncer {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	engine := cfg.Engine
	if engine == nil {
		engine = merge.NewEngine()
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = archive.DefaultRetentionDays
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Syncer{
		cfg:     cfg,
		log:     log,
		engine:  engine,
		manager: archive.NewManager(cfg.Store),
	}
}

// RunPass executes one full pass. Only one pass runs at a time; a second
// caller gets ErrSyncInProgress instead of queueing.
func (s *Syncer) RunPass(ctx context.Context, candidates []assignment.Candidate) (*Summary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	sum := &Summary{
		Created: make(map[string]int),
		Adopted: make(map[string]int),
		Skipped: make(map[string]int),
	}

	active, err := s.cfg.Store.LoadActive()
	if err != nil {
		return nil, err
	}

	// Phase 1: merge candidates into the active set, then checkpoint so a
	// later failure cannot lose accepted records.
	for _, cand := range candidates {
		result, next := s.engine.Reconcile(cand, active)
		active = next
		switch result.Decision {
		case merge.DecisionInsert:
			sum.Inserted++
			s.log.Infof("New assignment: %s", result.Record.Title)
			s.journal(journal.KindInsert, result.Record, "", cand.Source)
		case merge.DecisionUpdate:
			sum.Updated++
			s.log.Infof("Updated assignment: %s", result.Record.Title)
			s.journal(journal.KindUpdate, result.Record, "", cand.Source)
		default:
			sum.Ignored++
		}
	}
	if err := s.cfg.Store.SaveActive(active); err != nil {
		return nil, err
	}

	// Phase 2: age out completed records.
	swept, err := s.manager.Sweep(s.cfg.RetentionDays)
	if err != nil {
		return nil, err
	}
	sum.Archived = len(swept.NewlyArchived)
	if sum.Archived > 0 {
		s.log.Infof("Archived %d completed assignments", sum.Archived)
		for _, title := range swept.NewlyArchived {
			s.journal(journal.KindArchive, &assignment.Assignment{Title: title}, "", string(assignment.ReasonAgeBased))
		}
	}
	active, err = s.cfg.Store.LoadActive()
	if err != nil {
		return nil, err
	}

	// Phase 3: push to every destination concurrently. Writes to the
	// shared active set are serialized.
	var setMu sync.Mutex
	var observations []archive.Observation
	var wg sync.WaitGroup
	for _, dest := range s.cfg.Destinations {
		wg.Add(1)
		go func(d destinations.Destination) {
			defer wg.Done()
			s.syncDestination(ctx, d, active, sum, &setMu, &observations)
		}(dest)
	}
	wg.Wait()

	// Checkpoint adopted remote ids before status sync touches the files.
	if err := s.cfg.Store.SaveActive(active); err != nil {
		return nil, err
	}

	// Phase 4: pull remote status back, restoring archived records the
	// destinations still consider open.
	if len(observations) > 0 {
		res, err := s.manager.SmartStatusSync(observations)
		if err != nil {
			sum.Errors = append(sum.Errors, err)
			s.log.Errorf("Status sync failed: %v", err)
		} else {
			sum.StatusUpdated = len(res.Updated)
			sum.Restored = len(res.Restored)
			for _, title := range res.Restored {
				s.journal(journal.KindRestore, &assignment.Assignment{Title: title}, "", "reopened remotely")
			}
			for _, title := range res.Updated {
				s.journal(journal.KindStatusPull, &assignment.Assignment{Title: title}, "", "")
			}
			if sum.Restored > 0 {
				s.log.Infof("Restored %d archived assignments still open remotely", sum.Restored)
			}
		}
	}

	return sum, nil
}

// syncDestination pushes missing records to one destination and collects
// status observations from it. Counter and record writes go through setMu.
func (s *Syncer) syncDestination(ctx context.Context, d destinations.Destination, active []*assignment.Assignment, sum *Summary, setMu *sync.Mutex, observations *[]archive.Observation) {
	name := d.Name()
	for _, a := range active {
		setMu.Lock()
		synced := a.RemoteID(name) != ""
		setMu.Unlock()
		if synced {
			continue
		}
		remoteID, err := s.push(ctx, d, a)
		if err != nil {
			s.log.Warnf("Skipping %q on %s: %v", a.Title, name, err)
			setMu.Lock()
			sum.Skipped[name]++
			sum.Errors = append(sum.Errors, err)
			setMu.Unlock()
			s.journal(journal.KindSkip, a, name, err.Error())
			continue
		}
		setMu.Lock()
		if remoteID.adopted {
			sum.Adopted[name]++
		} else {
			sum.Created[name]++
		}
		a.SetRemoteID(name, remoteID.id)
		setMu.Unlock()
		if remoteID.adopted {
			s.log.Debugf("Adopted existing %s item for %q", name, a.Title)
			s.journal(journal.KindRemoteAdopt, a, name, "")
		} else {
			s.log.Infof("Created %s item for %q", name, a.Title)
			s.journal(journal.KindRemoteCreate, a, name, "")
		}
	}

	tasks, err := s.listAll(ctx, d)
	if err != nil {
		s.log.Warnf("Could not list %s items: %v", name, err)
		setMu.Lock()
		sum.Errors = append(sum.Errors, err)
		setMu.Unlock()
		return
	}
	obs := matchObservations(tasks, active)
	setMu.Lock()
	*observations = append(*observations, obs...)
	setMu.Unlock()
}

type pushResult struct {
	id      string
	adopted bool
}

// push guarantees at most one remote item: Exists runs before Create, and
// an ErrAlreadyExists race resolves through a second Exists.
func (s *Syncer) push(ctx context.Context, d destinations.Destination, a *assignment.Assignment) (pushResult, error) {
	var id string
	err := s.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		id, err = d.Exists(callCtx, a)
		return err
	})
	if err != nil {
		return pushResult{}, err
	}
	if id != "" {
		return pushResult{id: id, adopted: true}, nil
	}

	err = s.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		id, err = d.Create(callCtx, a)
		return err
	})
	if errors.Is(err, destinations.ErrAlreadyExists) {
		// Created by someone else between our Exists and Create.
		err = s.withRetry(ctx, func(callCtx context.Context) error {
			var err error
			id, err = d.Exists(callCtx, a)
			return err
		})
		if err != nil {
			return pushResult{}, err
		}
		return pushResult{id: id, adopted: true}, nil
	}
	if err != nil {
		return pushResult{}, err
	}
	return pushResult{id: id}, nil
}

func (s *Syncer) listAll(ctx context.Context, d destinations.Destination) ([]destinations.RemoteTask, error) {
	var tasks []destinations.RemoteTask
	err := s.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		tasks, err = d.ListAll(callCtx)
		return err
	})
	return tasks, err
}

// withRetry runs fn up to three times with a short growing delay. Context
// cancellation and ErrAlreadyExists stop retries immediately.
func (s *Syncer) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil || errors.Is(err, destinations.ErrAlreadyExists) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < 3 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// matchObservations pairs remote tasks with records by stable source id
// first, then by formatted title. Unmatched tasks produce observations
// keyed by their own title so archived records can still match.
func matchObservations(tasks []destinations.RemoteTask, active []*assignment.Assignment) []archive.Observation {
	bySourceID := make(map[string]*assignment.Assignment)
	byTitle := make(map[string]*assignment.Assignment)
	for _, a := range active {
		if a.SourceID != "" {
			bySourceID[a.SourceID] = a
		}
		byTitle[strings.ToLower(a.RemoteTitle())] = a
	}

	var obs []archive.Observation
	for _, t := range tasks {
		title := ""
		if t.SourceID != "" {
			if a, ok := bySourceID[t.SourceID]; ok {
				title = a.Title
			}
		}
		if title == "" {
			if a, ok := byTitle[strings.ToLower(t.Title)]; ok {
				title = a.Title
			}
		}
		if title == "" {
			// Possibly an archived record; SmartStatusSync matches it
			// against the archive by title.
			title = t.Title
		}
		obs = append(obs, archive.Observation{Title: title, Status: t.Status})
	}
	return obs
}

func (s *Syncer) journal(kind string, a *assignment.Assignment, destination, detail string) {
	if s.cfg.Journal == nil {
		return
	}
	err := s.cfg.Journal.Record(context.Background(), journal.Event{
		Kind:        kind,
		Title:       a.Title,
		CourseCode:  a.CourseCode,
		Destination: destination,
		Detail:      detail,
	})
	if err != nil {
		s.log.Debugf("journal write failed: %v", err)
	}
}
