package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/engine"
	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/snapshot"
	"github.com/roach88/cyberquest/internal/store"
	"github.com/roach88/cyberquest/internal/testutil"
)

// epoch is the first timestamp handed out in every scenario.
var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness holds one scenario's engine and its fixtures.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	local  *snapshot.Memory
	sink   *testutil.RecordingSink

	lastUser string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. An error
// is returned only when the scenario cannot be set up; step and expect
// failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	storeClock := testutil.NewSteppingClock(epoch, time.Second)
	ids := testutil.NewSequentialIDs("row")
	st, err := store.Open(":memory:", store.WithClock(storeClock.Now), store.WithIDs(ids.Next))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := seedRemote(ctx, st, scenario.Remote); err != nil {
		return nil, fmt.Errorf("failed to seed remote: %w", err)
	}

	h := &Harness{
		store:    st,
		local:    seedLocal(scenario.Local),
		sink:     testutil.NewRecordingSink(),
		lastUser: scenario.Remote.User,
	}
	labClock := testutil.NewSteppingClock(epoch, time.Minute)
	h.engine = engine.New(cat, st, h.local,
		engine.WithPersister(engine.NewInlinePersister()),
		engine.WithSink(h.sink),
		engine.WithSessionIDs(testutil.NewFixedSessionGenerator("scenario-session")),
		engine.WithNow(labClock.Now),
	)
	defer h.engine.Close()

	result := NewResult()
	seq := 0
	for i, step := range scenario.Steps {
		times := max(step.Repeat, 1)
		for n := 0; n < times; n++ {
			seq++
			event := h.execute(ctx, i, step, seq, result)
			result.Trace = append(result.Trace, event)
		}
	}

	final, err := h.final(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Final = final

	for _, msg := range checkExpect(scenario.Expect, final) {
		result.AddError(msg)
	}
	return result, nil
}

// RunFile loads and runs the scenario at path.
func RunFile(path string) (*Scenario, *Result, error) {
	s, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := Run(s)
	if err != nil {
		return s, nil, err
	}
	return s, r, nil
}

func loadCatalog(src CatalogSource) (*catalog.Catalog, error) {
	switch {
	case src.Dir != "":
		return catalog.LoadDir(src.Dir)
	case len(src.Achievements) > 0:
		return catalog.New(src.Achievements, src.Mastery)
	default:
		return catalog.Default(), nil
	}
}

func seedLocal(seed LocalSeed) *snapshot.Memory {
	m := snapshot.NewMemory(nil)
	if seed.Points > 0 {
		snapshot.SavePoints(m, seed.Points)
	}
	if len(seed.Challenges) > 0 {
		ids := make([]string, 0, len(seed.Challenges))
		for _, id := range seed.Challenges {
			ids = append(ids, ledger.NormalizeID(id))
		}
		snapshot.SaveChallenges(m, ids)
	}
	for kind, n := range seed.Counters {
		snapshot.SaveCounter(m, catalog.CounterKind(kind), n)
	}
	return m
}

func seedRemote(ctx context.Context, st *store.Store, seed RemoteSeed) error {
	if seed.User == "" {
		return nil
	}
	if seed.Points > 0 {
		if err := st.WritePoints(ctx, seed.User, seed.Points); err != nil {
			return err
		}
	}
	for _, id := range seed.Awards {
		if _, err := st.InsertAward(ctx, ledger.Award{UserID: seed.User, AchievementID: id}); err != nil {
			return err
		}
	}
	for _, lab := range seed.Labs {
		rec := ledger.LabCompletion{
			UserID:       seed.User,
			LabID:        lab.LabID,
			LabType:      lab.LabType,
			PointsEarned: lab.Points,
		}
		if _, err := st.InsertLabCompletion(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// execute runs one step and captures the state after it.
func (h *Harness) execute(ctx context.Context, index int, step Step, seq int, result *Result) TraceEvent {
	before := len(h.sink.Shown())
	event := TraceEvent{Seq: seq, Action: step.Action()}

	switch event.Action {
	case ActionSignIn:
		event.Arg = step.SignIn
		h.engine.SignIn(ctx, step.SignIn)
		if u := h.engine.UserID(); u != "" {
			h.lastUser = u
		}
	case ActionSignOut:
		h.engine.SignOut()
	case ActionAddPoints:
		event.Arg = strconv.Itoa(*step.AddPoints)
		h.engine.AddPoints(*step.AddPoints)
	case ActionCompleteChallenge:
		event.Arg = *step.CompleteChallenge
		h.engine.CompleteChallenge(*step.CompleteChallenge)
	case ActionIncrement:
		event.Arg = step.Increment
		h.engine.IncrementCounter(catalog.CounterKind(step.Increment))
	case ActionCompleteLab:
		lab := step.CompleteLab
		event.Arg = ledger.LabKey{LabID: lab.LabID, LabType: lab.LabType}.String()
		_, err := h.engine.ClaimLab(ctx, lab.LabID, lab.LabType, lab.Points)
		event.Error = errorCode(err)
		if event.Error != step.ExpectError {
			result.AddError(fmt.Sprintf("steps[%d] (seq %d): complete_lab %s: error %q, want %q",
				index, seq, event.Arg, event.Error, step.ExpectError))
		}
	case ActionEvaluate:
		event.Arg = fmt.Sprintf("%s=%d", step.Evaluate.Kind, step.Evaluate.Value)
		h.engine.Evaluate(catalog.CounterKind(step.Evaluate.Kind), step.Evaluate.Value)
	}

	sum := h.engine.Summary()
	event.User = sum.UserID
	event.Points = sum.Points
	event.Level = sum.Level
	if shown := h.sink.Shown(); len(shown) > before {
		event.Unlocked = shown[before:]
	}
	return event
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return err.Error()
}

func (h *Harness) final(ctx context.Context) (FinalState, error) {
	sum := h.engine.Summary()

	counters := make(map[string]int, len(sum.Counters))
	for kind, n := range sum.Counters {
		if n > 0 {
			counters[string(kind)] = n
		}
	}
	labs := make([]string, 0, len(sum.Labs))
	for _, rec := range sum.Labs {
		labs = append(labs, rec.Key().String())
	}
	sort.Strings(labs)

	f := FinalState{
		User:          sum.UserID,
		Points:        sum.Points,
		Level:         sum.Level,
		Challenges:    sum.Challenges,
		Counters:      counters,
		Achievements:  sum.Achievements,
		Labs:          labs,
		Notifications: h.sink.Shown(),
		RemoteUser:    h.lastUser,
		RemoteAwards:  []string{},
	}
	if h.lastUser == "" {
		return f, nil
	}

	points, err := h.store.ReadPoints(ctx, h.lastUser)
	if err != nil {
		return f, err
	}
	awards, err := h.store.GrantedAchievements(ctx, h.lastUser)
	if err != nil {
		return f, err
	}
	f.RemotePoints = points
	f.RemoteAwards = awards
	return f, nil
}
