// Copyright 2025 harmonia Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trainer schedules model retraining against the live database.
package trainer

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/juju/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/config"
	"github.com/harmonia-fm/harmonia/model/mf"
	"github.com/harmonia-fm/harmonia/storage/data"
)

// State of the retrain job.
type State int32

const (
	Idle State = iota
	Scheduled
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Clock abstracts time for deterministic debounce tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Runner executes one training job.
type Runner interface {
	Run(ctx context.Context) error
}

// CommandRunner spawns the training subprocess. The subprocess writes the
// artifact and metadata files as a side effect and exits zero on success.
// There is no timeout: a runaway training run is only held back by the
// at-most-one-running guard.
type CommandRunner struct {
	Command string
	Args    []string
}

func (r *CommandRunner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Logger().Error("training subprocess failed",
			zap.String("command", r.Command),
			zap.ByteString("output", output),
			zap.Error(err))
		return errors.Trace(err)
	}
	log.Logger().Info("training subprocess finished", zap.String("command", r.Command))
	return nil
}

// Orchestrator decides when to retrain and runs at most one job at a time.
type Orchestrator struct {
	mu            sync.Mutex
	state         atomic.Int32
	clock         Clock
	runner        Runner
	store         *mf.Store
	database      data.Database
	metaPath      string
	interactions  int
	users         int
	debounce      time.Duration
	lastScheduled time.Time
}

// Option overrides an orchestrator collaborator.
type Option func(*Orchestrator)

// WithClock injects a clock.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithRunner injects a training runner.
func WithRunner(runner Runner) Option {
	return func(o *Orchestrator) { o.runner = runner }
}

func NewOrchestrator(cfg config.TrainConfig, metaPath string, store *mf.Store, database data.Database, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		clock:        systemClock{},
		runner:       &CommandRunner{Command: cfg.Command, Args: cfg.Args},
		store:        store,
		database:     database,
		metaPath:     metaPath,
		interactions: cfg.InteractionThreshold,
		users:        cfg.UserThreshold,
		debounce:     cfg.Debounce,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current job state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// counts reads live user and interaction counts. A database failure is
// reported as zero counts, which suppresses retraining instead of crashing
// the serving path.
func (o *Orchestrator) counts(ctx context.Context) (users, interactions int64) {
	var err error
	if users, err = o.database.CountUsers(ctx); err != nil {
		log.Logger().Warn("failed to count users, suppressing retrain", zap.Error(err))
		return 0, 0
	}
	if interactions, err = o.database.CountInteractions(ctx); err != nil {
		log.Logger().Warn("failed to count interactions, suppressing retrain", zap.Error(err))
		return 0, 0
	}
	return users, interactions
}

// EnsureTrained compares live counts against the persisted training metadata
// and retrains synchronously when the metadata is absent or the counts have
// grown. Called once at startup: the first request pays for training instead
// of silently serving a stale model.
func (o *Orchestrator) EnsureTrained(ctx context.Context) error {
	users, interactions := o.counts(ctx)
	if users == 0 && interactions == 0 {
		return nil
	}
	metadata, err := mf.LoadMetadata(o.metaPath)
	if err != nil {
		log.Logger().Error("failed to read training metadata", zap.Error(err))
		metadata = nil
	}
	if metadata != nil && users <= metadata.UserCount && interactions <= metadata.InteractionCount {
		return nil
	}
	log.Logger().Info("model out of date, training synchronously",
		zap.Int64("users", users),
		zap.Int64("interactions", interactions))
	o.state.Store(int32(Running))
	err = o.runner.Run(ctx)
	if err != nil {
		o.state.Store(int32(Failed))
		return errors.Trace(err)
	}
	o.state.Store(int32(Idle))
	o.store.Reload()
	return nil
}

// MaybeRetrainAsync schedules a background retrain when enough new
// interactions or users have accumulated since the last training run. Called
// from the interaction write path; returns true when a job was scheduled.
// Triggers racing on the debounce window are resolved by the mutex: only one
// wins, the rest are dropped silently.
func (o *Orchestrator) MaybeRetrainAsync(ctx context.Context) bool {
	users, interactions := o.counts(ctx)
	metadata, err := mf.LoadMetadata(o.metaPath)
	if err != nil {
		// an unreadable sidecar means never trained, same as at startup
		log.Logger().Error("failed to read training metadata", zap.Error(err))
		metadata = nil
	}
	var userDelta, interactionDelta int64
	if metadata == nil {
		userDelta, interactionDelta = users, interactions
	} else {
		// only growth counts: a decrease never triggers retraining
		userDelta = users - metadata.UserCount
		interactionDelta = interactions - metadata.InteractionCount
	}
	if interactionDelta < int64(o.interactions) && userDelta < int64(o.users) {
		return false
	}

	o.mu.Lock()
	if o.State() == Running || o.State() == Scheduled {
		o.mu.Unlock()
		return false
	}
	now := o.clock.Now()
	if !o.lastScheduled.IsZero() && now.Sub(o.lastScheduled) < o.debounce {
		o.mu.Unlock()
		return false
	}
	o.lastScheduled = now
	o.state.Store(int32(Scheduled))
	o.mu.Unlock()

	log.Logger().Info("scheduling background retrain",
		zap.Int64("user_delta", userDelta),
		zap.Int64("interaction_delta", interactionDelta))
	go o.retrain()
	return true
}

// retrain runs the training job in the background. Failures are logged and
// the orchestrator never stays in Running.
func (o *Orchestrator) retrain() {
	o.state.Store(int32(Running))
	retrainsRunning.Inc()
	defer retrainsRunning.Dec()
	err := o.runner.Run(context.Background())
	if err != nil {
		log.Logger().Error("background retrain failed", zap.Error(err))
		retrainsTotal.WithLabelValues("failed").Inc()
		o.state.Store(int32(Failed))
		return
	}
	retrainsTotal.WithLabelValues("success").Inc()
	o.store.Reload()
	o.state.Store(int32(Idle))
}
