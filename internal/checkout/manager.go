package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"sync"
	"time"

	"ticket-seating/internal/kv"
	"ticket-seating/models"

	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "checkout:"
	lockSlots = 64
)

// Manager loads, advances and stores checkout flows. Transitions of one session
// are serialized inside the process; payment option requests of one session are
// collapsed into a single call.
type Manager struct {
	store  kv.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	locks [lockSlots]sync.Mutex
	group singleflight.Group
}

func NewManager(store kv.Store, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: store, ttl: ttl, logger: logger, now: time.Now}
}

func (m *Manager) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &m.locks[h.Sum32()%lockSlots]
}

// Load returns the flow of a session, or a fresh one in the selecting state.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Flow, error) {
	raw, ok, err := m.store.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkout: %w", err)
	}
	if !ok {
		return NewFlow(sessionID), nil
	}
	var f Flow
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		m.logger.Warn("Resetting unreadable checkout flow", "session_id", sessionID, "error", err)
		return NewFlow(sessionID), nil
	}
	return &f, nil
}

func (m *Manager) save(ctx context.Context, f *Flow) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal checkout: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+f.SessionID, string(payload), m.ttl); err != nil {
		return fmt.Errorf("save checkout: %w", err)
	}
	return nil
}

// Fire advances the flow of a session by ev. apply runs the side effects of the
// transition before the new state is stored; if it fails the flow is left as
// it was. When the flow already sits in the target state, apply is skipped and
// changed is false.
func (m *Manager) Fire(ctx context.Context, sessionID string, ev Event, apply func(*Flow) error) (f *Flow, changed bool, err error) {
	mu := m.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	f, err = m.Load(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	next, changed, err := f.Next(ev)
	if err != nil || !changed {
		return f, false, err
	}

	if apply != nil {
		if err := apply(f); err != nil {
			return f, false, err
		}
	}

	prev := f.State
	f.State = next
	f.UpdatedAt = m.now().UTC()
	if err := m.save(ctx, f); err != nil {
		return nil, false, err
	}

	m.logger.Info("Checkout transition",
		"session_id", sessionID,
		"event", string(ev),
		"from", string(prev),
		"to", string(next),
	)
	return f, true, nil
}

// RequestOptions moves a handed off flow to awaiting payment with the options
// built by generate. Concurrent callers for one session share a single call,
// and later callers get the stored options back without generating again.
// shared reports whether the result came from another caller or the store.
func (m *Manager) RequestOptions(ctx context.Context, sessionID string, generate func(*Flow) ([]models.PaymentOption, error)) (opts []models.PaymentOption, shared bool, err error) {
	v, err, dup := m.group.Do(sessionID, func() (any, error) {
		// shared by every waiting caller, so the first one leaving must not
		// cancel it
		ctx := context.WithoutCancel(ctx)
		f, changed, err := m.Fire(ctx, sessionID, EventRequestOptions, func(f *Flow) error {
			opts, err := generate(f)
			if err != nil {
				return err
			}
			f.Options = opts
			return nil
		})
		if err != nil {
			return nil, err
		}
		return optionsResult{options: f.Options, cached: !changed}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(optionsResult)
	return res.options, dup || res.cached, nil
}

type optionsResult struct {
	options []models.PaymentOption
	cached  bool
}
