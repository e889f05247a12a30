// Package tournament implements the Tournament Runner (C4), the
// scheduling core: plan-all-games-upfront, a bounded worker pool with a
// staggered initial submission burst, an unordered completion channel, and
// a single control-path goroutine that drains completions into the rating
// tracker, the result store, and the status broadcaster. Grounded on the
// world loop's single-writer control-goroutine discipline and on the
// original TournamentExecutionService's ExecutorCompletionService-based
// dispatch, reformulated here as goroutines feeding a buffered channel.
package tournament

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"tourneyforge.dev/internal/broadcast"
	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/rating"
	"tourneyforge.dev/internal/schedule"
	"tourneyforge.dev/internal/store"
	"tourneyforge.dev/internal/table"
)

// FatalError marks a failure that moves the tournament straight to
// StateFailed: metadata could not be written, a round could not be
// planned, or the worker pool rejected a submission. An individual game
// failure is never fatal — it is absorbed by table.Executor as a
// zero-score outcome.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("tournament: %s: %v", e.Op, e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// PoolSize is the default worker-pool size. The workload is I/O-bound on
// remote player latency, so this is decoupled from CPU count (§5).
const PoolSize = 32

// SubmissionStagger is the delay between successive submissions for the
// first PoolSize games, so completions arrive smoothly instead of bunched.
const SubmissionStagger = 50 * time.Millisecond

// zeroOutcomeFor builds the all-zero outcome a task gets when its
// goroutine panics somewhere table.Executor didn't already catch —
// the same shape table.Executor itself returns for any other failure.
func zeroOutcomeFor(t task) domain.GameOutcome {
	ids := t.assignment.PlayerIDs()
	placements := make([]domain.Placement, len(ids))
	for i, id := range ids {
		placements[i] = domain.Placement{PlayerID: id, Score: 0, Deck: nil}
	}
	return domain.GameOutcome{
		IndexWithinRound: t.gameIndex,
		TableNumber:      t.tableNumber,
		Placements:       placements,
	}
}

// task is one unit of dispatch: a single table's game within a round.
type task struct {
	round       int
	gameIndex   int
	tableNumber int
	assignment  domain.GameAssignment
	kingdom     []string
}

// completion pairs a task with its outcome once the worker has run it.
type completion struct {
	round       int
	gameIndex   int
	tableNumber int
	outcome     domain.GameOutcome
}

// Runner drives one tournament from QUEUED to COMPLETED or FAILED.
type Runner struct {
	exec     *table.Executor
	store    *store.Store
	bcast    *broadcast.Broadcaster
	tracker  *rating.Tracker
	params   rating.Params
	poolSize int
	log      *log.Logger

	// audit and index are optional supplemented-feature sinks: nil-safe,
	// best-effort, and never on the critical path to correctness.
	audit *store.AuditLog
	index *store.Index
}

// New builds a Runner. poolSize <= 0 selects PoolSize.
func New(exec *table.Executor, st *store.Store, bcast *broadcast.Broadcaster, params rating.Params, poolSize int, logger *log.Logger) *Runner {
	if poolSize <= 0 {
		poolSize = PoolSize
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[tournament] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Runner{exec: exec, store: st, bcast: bcast, poolSize: poolSize, params: params, log: logger}
}

// WithAudit attaches an audit log that records the queued, round-written,
// completed and failed events (the switch to RUNNING is not recorded).
// Optional; nil is a valid, inert value.
func (r *Runner) WithAudit(a *store.AuditLog) *Runner {
	r.audit = a
	return r
}

// WithIndex attaches a secondary SQLite index that mirrors round
// completions and rating snapshots for ad-hoc querying. Optional; nil is
// a valid, inert value.
func (r *Runner) WithIndex(idx *store.Index) *Runner {
	r.index = idx
	return r
}

func (r *Runner) logAudit(kind string, round, games int, errMsg string) {
	if r.audit == nil {
		return
	}
	_ = r.audit.Write(store.AuditEntry{Time: time.Now(), Kind: kind, Round: round, Games: games, Error: errMsg})
}

// Run executes cfg end-to-end, writing tournament.json, one round-NN.json
// per completed round, and tape.json, publishing status deltas throughout.
// It returns a *FatalError for planning/IO failures; individual game
// failures never cause Run to return an error.
func (r *Runner) Run(ctx context.Context, cfg domain.TournamentConfig) error {
	id := cfg.Name
	status := domain.TournamentStatus{ID: id, State: domain.StateQueued, TotalRounds: cfg.Rounds}
	r.bcast.Publish(status)
	r.logAudit("queued", 0, 0, "")

	if err := cfg.Validate(); err != nil {
		status.State = domain.StateFailed
		status.Error = err.Error()
		r.bcast.Publish(status)
		r.logAudit("failed", 0, 0, err.Error())
		return &FatalError{Op: "validate", Err: err}
	}

	if err := r.store.WriteMetadata(cfg); err != nil {
		status.State = domain.StateFailed
		status.Error = err.Error()
		r.bcast.Publish(status)
		r.logAudit("failed", 0, 0, err.Error())
		return &FatalError{Op: "write-metadata", Err: err}
	}

	ids := make([]string, len(cfg.Players))
	for i, p := range cfg.Players {
		ids[i] = p.ID
	}
	r.tracker = rating.NewTracker(ids, r.params, r.log)

	g := cfg.GamesPerPlayer
	gamesPerPlayer := schedule.AdjustGamesPerPlayer(len(cfg.Players), g)

	type roundPlan struct {
		number  int
		resumed bool
		kingdom domain.KingdomSelection
		games   []domain.GameAssignment
	}
	plans := make([]roundPlan, 0, cfg.Rounds)
	totalGames := 0
	rng := rand.New(rand.NewSource(fnvSeed(cfg.Name)))
	for n := 1; n <= cfg.Rounds; n++ {
		if r.store.RoundExists(n) {
			plans = append(plans, roundPlan{number: n, resumed: true})
			continue
		}
		kingdom := schedule.SelectKingdom(rng)
		games := schedule.GenerateBalancedGames(cfg.Players, gamesPerPlayer, rng)
		plans = append(plans, roundPlan{number: n, kingdom: kingdom, games: games})
		totalGames += len(games)
	}
	status.TotalGames = totalGames

	var tasks []task
	for _, p := range plans {
		if p.resumed {
			continue
		}
		for i, a := range p.games {
			tasks = append(tasks, task{round: p.number, gameIndex: i, tableNumber: i + 1, assignment: a, kingdom: p.kingdom})
		}
	}

	status.State = domain.StateRunning
	r.bcast.Publish(status)

	completions := make(chan completion, len(tasks))
	sem := make(chan struct{}, r.poolSize)
	var wg sync.WaitGroup

	for i, t := range tasks {
		if i < r.poolSize {
			time.Sleep(SubmissionStagger)
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			defer func() { <-sem }()
			// table.Executor already recovers from a panicking Engine or
			// Player, but this goroutine is the last line of defense: if
			// anything still escapes, it must not take the whole pool
			// down with it, and the game still needs a completion so the
			// round can close out.
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Printf("recovered panic running game %d table %d: %v", t.gameIndex, t.tableNumber, rec)
					completions <- completion{round: t.round, gameIndex: t.gameIndex, tableNumber: t.tableNumber, outcome: zeroOutcomeFor(t)}
				}
			}()
			outcome := r.exec.Execute(ctx, t.gameIndex, t.tableNumber, t.assignment, t.kingdom, cfg.MaxTurns)
			completions <- completion{round: t.round, gameIndex: t.gameIndex, tableNumber: t.tableNumber, outcome: outcome}
		}(t)
	}
	go func() {
		wg.Wait()
		close(completions)
	}()

	roundGameCount := make(map[int]int, len(plans))
	roundBuffers := make(map[int][]domain.GameOutcome, len(plans))
	roundKingdoms := make(map[int]domain.KingdomSelection, len(plans))
	for _, p := range plans {
		if !p.resumed {
			roundGameCount[p.number] = len(p.games)
			roundKingdoms[p.number] = p.kingdom
		}
	}

	completedGames := 0
	currentRound := 0
	for _, p := range plans {
		if p.resumed && p.number > currentRound {
			currentRound = p.number
		}
	}

	for c := range completions {
		r.tracker.ProcessGame(c.outcome.Placements)
		roundBuffers[c.round] = append(roundBuffers[c.round], c.outcome)
		completedGames++
		if c.round > currentRound {
			currentRound = c.round
		}

		status.CompletedGames = completedGames
		status.CurrentRound = currentRound
		status.Ratings = r.tracker.DisplayAll()
		r.bcast.Publish(status)
		r.index.RecordStatus(status)

		if len(roundBuffers[c.round]) == roundGameCount[c.round] {
			round := buildRoundResult(c.round, roundKingdoms[c.round], roundBuffers[c.round])
			if err := r.store.WriteRound(round); err != nil {
				status.State = domain.StateFailed
				status.Error = err.Error()
				r.bcast.Publish(status)
				r.logAudit("failed", c.round, 0, err.Error())
				return &FatalError{Op: "write-round", Err: err}
			}
			r.index.RecordRound(id, c.round, len(round.Matches))
			r.logAudit("round-written", c.round, len(roundBuffers[c.round]), "")
		}
	}

	tape, err := r.store.BuildTape(r.params)
	if err != nil {
		status.State = domain.StateFailed
		status.Error = err.Error()
		r.bcast.Publish(status)
		r.logAudit("failed", 0, 0, err.Error())
		return &FatalError{Op: "build-tape", Err: err}
	}
	if err := r.store.WriteTape(tape); err != nil {
		status.State = domain.StateFailed
		status.Error = err.Error()
		r.bcast.Publish(status)
		r.logAudit("failed", 0, 0, err.Error())
		return &FatalError{Op: "write-tape", Err: err}
	}

	status.State = domain.StateCompleted
	r.bcast.Publish(status)
	r.logAudit("completed", 0, completedGames, "")
	return nil
}

// buildRoundResult groups a round's flat outcome list by table number into
// the Match shape persisted in round-NN.json.
func buildRoundResult(round int, kingdom domain.KingdomSelection, outcomes []domain.GameOutcome) domain.RoundResult {
	byTable := make(map[int][]domain.GameOutcome)
	var order []int
	for _, o := range outcomes {
		if _, seen := byTable[o.TableNumber]; !seen {
			order = append(order, o.TableNumber)
		}
		byTable[o.TableNumber] = append(byTable[o.TableNumber], o)
	}
	matches := make([]domain.Match, 0, len(order))
	for _, tn := range order {
		outs := byTable[tn]
		ids := make([]string, 0, len(outs[0].Placements))
		for _, p := range outs[0].Placements {
			ids = append(ids, p.PlayerID)
		}
		matches = append(matches, domain.Match{TableNumber: tn, PlayerIDs: ids, Outcomes: outs})
	}
	return domain.RoundResult{RoundNumber: round, KingdomCards: kingdom, Matches: matches}
}

func fnvSeed(s string) int64 {
	var h uint64 = 0xcbf29ce484222325
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 0x100000001b3
	}
	return int64(h)
}
