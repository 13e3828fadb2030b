// Package engine produces the next state of the world on a fixed cadence:
// it drifts temple occupancy with a bounded random walk and occasionally
// synthesizes an alert, standing in for the crowd sensors a production
// deployment would have.  All randomness flows through an injected source
// so that two engines started from the same store state and seed apply
// identical mutations — there is no hidden global generator.
package engine

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/divyaflow/temple-ops/internal/fanout"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/store"
)

// Rand is the randomness source threaded through every non-deterministic
// draw.  *math/rand.Rand satisfies it; tests inject fixed-value stubs.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Sink receives every mutation after the store and fanout updates have
// been applied.  Implementations forward to the persistence collaborator
// and the message broker; the engine itself never blocks on them.
type Sink interface {
	TempleUpdated(model.Temple)
	AlertRaised(model.Alert)
}

// Config tunes the simulation.  The zero value is not usable; call
// DefaultConfig and override what you need.
type Config struct {
	TickInterval time.Duration // cadence of the timer loop
	DeltaMin     int           // lower bound of the occupancy perturbation
	DeltaMax     int           // upper bound of the occupancy perturbation
	AlertProb    float64       // chance per tick of synthesizing an alert
}

// DefaultConfig mirrors the demo behaviour: a perturbation in [-40,+60]
// every five seconds with a 30% chance of a new alert per tick.
func DefaultConfig() Config {
	return Config{
		TickInterval: 5 * time.Second,
		DeltaMin:     -40,
		DeltaMax:     60,
		AlertProb:    0.3,
	}
}

// Mutation is one state change computed by a tick.  Exactly one of Temple
// and Alert is set, matching Kind.
type Mutation struct {
	Kind   store.Kind
	Temple *model.Temple
	Alert  *model.Alert
}

// Engine owns the tick timer.  It is constructed stopped; nothing runs
// until Start is called, and Stop lets the in-flight tick finish before
// returning.
type Engine struct {
	temples    *store.TempleStore
	alerts     *store.AlertStore
	templeFeed *fanout.Broker
	alertFeed  *fanout.Broker
	rng        Rand
	cfg        Config
	sink       Sink

	mu       sync.Mutex // serializes Tick bodies
	inFlight atomic.Bool
	alertSeq uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

// New wires an engine over the given stores and feeds.  sink may be nil.
func New(temples *store.TempleStore, alerts *store.AlertStore,
	templeFeed, alertFeed *fanout.Broker, rng Rand, cfg Config, sink Sink) *Engine {
	return &Engine{
		temples:    temples,
		alerts:     alerts,
		templeFeed: templeFeed,
		alertFeed:  alertFeed,
		rng:        rng,
		cfg:        cfg,
		sink:       sink,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the timer loop.  Calling it twice is a no-op.
func (e *Engine) Start() {
	e.startOnce.Do(func() { go e.run() })
}

// Stop ends the timer loop.  It does not interrupt a tick already
// executing; it stops new ticks from being issued and waits for the loop
// to exit.  Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.done
}

func (e *Engine) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			// A tick still executing when the next interval fires (for
			// example an externally triggered Tick) causes this one to be
			// skipped, never queued, so a stall cannot produce a
			// catch-up burst.
			if !e.inFlight.CompareAndSwap(false, true) {
				log.Printf("engine: tick at %s skipped, previous tick still running", now.Format(time.RFC3339))
				continue
			}
			e.Tick(now)
			e.inFlight.Store(false)
		}
	}
}

// Tick computes and applies one round of mutations: a bounded occupancy
// perturbation for every temple, and with probability cfg.AlertProb one
// synthesized alert.  Temples are walked in store order (ascending id)
// and every draw comes from the injected source, so absent concurrent
// user mutations the result is a pure function of (store state, rng
// state, now).  The applied mutations are returned in application order.
func (e *Engine) Tick(now time.Time) []Mutation {
	e.mu.Lock()
	defer e.mu.Unlock()

	temples := e.temples.List()
	muts := make([]Mutation, 0, len(temples)+1)
	span := e.cfg.DeltaMax - e.cfg.DeltaMin + 1
	for _, t := range temples {
		delta := e.cfg.DeltaMin
		if span > 1 {
			delta += e.rng.Intn(span)
		}
		// The delta is applied through Mutate against the value the store
		// holds at write time, touching only the occupancy.  Writing back
		// the listed entity wholesale would silently revert any user
		// mutation (an admin status change, say) that landed since List.
		updated, err := e.temples.Mutate(t.ID, func(tp *model.Temple) error {
			next := tp.Capacity.Current + delta
			if next < 0 || next > tp.Capacity.Max {
				clamped := clamp(next, 0, tp.Capacity.Max)
				log.Printf("engine: temple %s occupancy %d out of range, clamped to %d", tp.ID, next, clamped)
				next = clamped
			}
			tp.Capacity.Current = next
			return nil
		})
		if err != nil {
			// A vanished or invalid temple is skipped, never fatal to the
			// timer loop.
			log.Printf("engine: perturb temple %s failed: %v", t.ID, err)
			continue
		}
		temple := updated
		e.templeFeed.Publish(temple.ID, fanout.ChangeUpsert, temple)
		if e.sink != nil {
			e.sink.TempleUpdated(temple)
		}
		muts = append(muts, Mutation{Kind: store.KindTemple, Temple: &temple})
	}
	if e.rng.Float64() < e.cfg.AlertProb {
		alert := e.synthesizeAlert(temples, now)
		if err := e.alerts.Upsert(alert); err != nil {
			log.Printf("engine: store alert %s failed: %v", alert.ID, err)
		} else {
			e.alertFeed.Publish(alert.ID, fanout.ChangeUpsert, alert)
			if e.sink != nil {
				e.sink.AlertRaised(alert)
			}
			muts = append(muts, Mutation{Kind: store.KindAlert, Alert: &alert})
		}
	}
	return muts
}

// sensor alert templates, keyed by type
var alertTitles = map[model.AlertType]struct {
	title string
	desc  string
}{
	model.AlertCrowdOverflow:    {"Crowd density above threshold", "Zone occupancy crossed the configured crowd threshold"},
	model.AlertSecurityBreach:   {"Unauthorised entry detected", "Perimeter sensor tripped outside visiting hours"},
	model.AlertMedicalEmergency: {"Medical assistance requested", "Help point activated, medical team required"},
	model.AlertTechnicalFailure: {"Sensor offline", "An IoT sensor stopped reporting"},
}

// sensorAlertTypes are the types the simulated sensors can raise; fire and
// weather alerts only enter the system through operator reports.
var sensorAlertTypes = []model.AlertType{
	model.AlertCrowdOverflow,
	model.AlertSecurityBreach,
	model.AlertMedicalEmergency,
	model.AlertTechnicalFailure,
}

var alertZones = []string{"Main Hall", "Entrance", "Parking"}

func (e *Engine) synthesizeAlert(temples []model.Temple, now time.Time) model.Alert {
	e.alertSeq++
	typ := sensorAlertTypes[e.rng.Intn(len(sensorAlertTypes))]
	sev := model.Severities[e.rng.Intn(len(model.Severities))]
	loc := model.AlertLocation{Zone: alertZones[e.rng.Intn(len(alertZones))]}
	if len(temples) > 0 {
		loc.TempleID = temples[e.rng.Intn(len(temples))].ID
	}
	tpl := alertTitles[typ]
	return model.Alert{
		ID:          alertID(now, e.alertSeq),
		Type:        typ,
		Severity:    sev,
		Title:       tpl.title,
		Description: tpl.desc,
		Location:    loc,
		Timestamp:   now,
		Status:      model.AlertActive,
		Actions:     []model.AlertAction{},
	}
}

func alertID(now time.Time, seq uint64) string {
	return fmt.Sprintf("alert-%s-%d", now.UTC().Format("20060102T150405"), seq)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
