// Package share keeps the latest poll results for readers outside the poll loop.
package share

import (
	"context"
	"sort"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/google/uuid"

	"github.com/alfachiu/rollball-api-tcp/poll"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

const (
	DefaultTTL = 30 * time.Minute
)

// Snapshot is the last completed cycle. Raw holds the values exactly as
// received; the typed views are present only when they parsed.
type Snapshot struct {
	RunID       string               `json:"run_id"`
	Iteration   int                  `json:"iteration"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Raw         map[string][]string  `json:"raw"`
	Errors      map[string]string    `json:"errors,omitempty"`
	State       *types.StateOfEnable `json:"state,omitempty"`
	Remain      *types.ScriptRemain  `json:"remain,omitempty"`
	LastOperate *types.LastOperate   `json:"last_operate,omitempty"`
	Flow        *types.FlowOfOperate `json:"flow,omitempty"`
	Answer      *types.Answer        `json:"answer,omitempty"`
}

// AnswerItem is an answer remembered from an earlier cycle.
type AnswerItem struct {
	Key       string       `json:"key"`
	Iteration int          `json:"iteration"`
	Raw       []string     `json:"raw"`
	Answer    types.Answer `json:"answer"`
}

// Store holds the snapshot of the current run and the recent answers.
type Store struct {
	runID string

	mu       sync.RWMutex
	snapshot *Snapshot

	answers *ttlworker.Cache[string, AnswerItem]
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		runID:   uuid.NewString(),
		answers: ttlworker.NewCache[string, AnswerItem](ttl),
	}
}

func (s *Store) RunID() string {
	return s.runID
}

// AnswerKey identifies one answer across cycles. Empty when the server has
// no answer yet.
func AnswerKey(raw []string) string {
	if len(raw) < 4 || raw[3] == "" {
		return ""
	}
	return raw[3] + "#" + raw[0]
}

// AfterCycle implements poll.Hook.
func (s *Store) AfterCycle(_ context.Context, cycle poll.Cycle) {
	snap := s.build(cycle)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	raw, ok := snap.Raw[types.OpReadGetAnswer]
	if !ok || snap.Answer == nil {
		return
	}
	key := AnswerKey(raw)
	if key == "" || s.answers.Get(key).Key != "" {
		return
	}
	s.answers.Set(key, AnswerItem{Key: key, Iteration: cycle.Iteration, Raw: raw, Answer: *snap.Answer})
	tool.DefaultLogger.Debugf("Remembered answer %s", key)
}

func (s *Store) build(cycle poll.Cycle) *Snapshot {
	snap := &Snapshot{
		RunID:     s.runID,
		Iteration: cycle.Iteration,
		UpdatedAt: time.Now(),
		Raw:       make(map[string][]string, len(cycle.Calls)),
	}
	for _, call := range cycle.Calls {
		if call.Err != nil {
			if snap.Errors == nil {
				snap.Errors = map[string]string{}
			}
			snap.Errors[call.Operation] = call.Err.Error()
			continue
		}
		snap.Raw[call.Operation] = call.Values
	}
	snap.State = view(snap.Raw, types.OpReadStateOfEnable, types.ParseStateOfEnable)
	snap.Remain = view(snap.Raw, types.OpReadScriptRemain, types.ParseScriptRemain)
	snap.LastOperate = view(snap.Raw, types.OpReadQueryLastOperate, types.ParseLastOperate)
	snap.Flow = view(snap.Raw, types.OpReadFlowOfOperate, types.ParseFlowOfOperate)
	snap.Answer = view(snap.Raw, types.OpReadGetAnswer, types.ParseAnswer)
	return snap
}

func view[T any](raw map[string][]string, op string, parse func([]string) (T, error)) *T {
	values, ok := raw[op]
	if !ok {
		return nil
	}
	v, err := parse(values)
	if err != nil {
		return nil
	}
	return &v
}

// Snapshot returns the latest snapshot, or false before the first cycle.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// Answers lists the remembered answers, oldest first.
func (s *Store) Answers() []AnswerItem {
	items := make([]AnswerItem, 0)
	err := s.answers.Range(func(_ string, v AnswerItem) error {
		items = append(items, v)
		return nil
	})
	if err != nil {
		return nil
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Answer.Time.Before(items[j].Answer.Time)
	})
	return items
}
