package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// ErrRegistrationClosed is returned once Run has exited.
var ErrRegistrationClosed = errors.New("offline registration closed")

// Registration owns the worker lifecycle. The active and waiting workers are
// only touched by the Run goroutine; every other method sends it a command.
type Registration struct {
	fallback http.RoundTripper
	cmds     chan func(*registrationState)
	done     chan struct{}
	logger   *slog.Logger
}

type registrationState struct {
	ctx     context.Context
	active  *Worker
	waiting *Worker
}

// NewRegistration creates a registration. fallback serves requests while no
// worker is active; nil means http.DefaultTransport.
func NewRegistration(fallback http.RoundTripper) *Registration {
	if fallback == nil {
		fallback = http.DefaultTransport
	}
	return &Registration{
		fallback: fallback,
		cmds:     make(chan func(*registrationState)),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "offline-registration"),
	}
}

// Run processes lifecycle commands until ctx is cancelled.
func (r *Registration) Run(ctx context.Context) {
	defer close(r.done)
	st := &registrationState{ctx: ctx}
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmds:
			cmd(st)
		}
	}
}

// do runs fn on the Run goroutine and waits for it to finish.
func (r *Registration) do(ctx context.Context, fn func(*registrationState)) error {
	finished := make(chan struct{})
	cmd := func(st *registrationState) {
		defer close(finished)
		fn(st)
	}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrRegistrationClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Register installs w. The first worker activates immediately; later ones wait
// until a SKIP_WAITING message promotes them. When the precache refresh fails
// a version installed by an earlier run is registered from storage; otherwise
// the current state is left unchanged.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	if err := w.Install(ctx); err != nil {
		installed, ierr := w.Installed(ctx)
		if ierr != nil || !installed {
			return fmt.Errorf("install %s: %w", w.Version(), err)
		}
		r.logger.Warn("precache refresh failed, using installed copy", "version", w.Version(), "error", err)
	}

	var activateErr error
	err := r.do(ctx, func(st *registrationState) {
		if st.active == nil {
			activateErr = r.activate(ctx, st, w)
			return
		}
		if st.active.Version() == w.Version() {
			return
		}
		st.waiting = w
		r.logger.Info("worker waiting", "version", w.Version(), "active", st.active.Version())
	})
	if err != nil {
		return err
	}
	return activateErr
}

// Resume makes w active without installing or activating it again, restoring
// the state a previous run left in storage. It is a no-op when a worker is
// already active.
func (r *Registration) Resume(ctx context.Context, w *Worker) error {
	installed, err := w.Installed(ctx)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("resume %s: not installed", w.Version())
	}
	return r.do(ctx, func(st *registrationState) {
		if st.active == nil {
			st.active = w
			r.logger.Info("worker resumed", "version", w.Version())
		}
	})
}

// PostMessage delivers a control message to the registration.
func (r *Registration) PostMessage(ctx context.Context, msg domain.WorkerMessage) error {
	switch msg.Type {
	case domain.WorkerMessageSkipWaiting:
		var activateErr error
		err := r.do(ctx, func(st *registrationState) {
			if st.waiting == nil {
				return
			}
			w := st.waiting
			st.waiting = nil
			activateErr = r.activate(ctx, st, w)
		})
		if err != nil {
			return err
		}
		return activateErr
	default:
		r.logger.Debug("ignoring worker message", "type", msg.Type)
		return nil
	}
}

func (r *Registration) activate(ctx context.Context, st *registrationState, w *Worker) error {
	if err := w.Activate(ctx); err != nil {
		return fmt.Errorf("activate %s: %w", w.Version(), err)
	}
	if err := w.markActive(ctx); err != nil {
		r.logger.Warn("active version not recorded", "version", w.Version(), "error", err)
	}
	st.active = w
	r.logger.Info("worker activated", "version", w.Version())
	return nil
}

// Versions reports the active and waiting worker versions; empty when absent.
func (r *Registration) Versions(ctx context.Context) (active, waiting string, err error) {
	err = r.do(ctx, func(st *registrationState) {
		if st.active != nil {
			active = st.active.Version()
		}
		if st.waiting != nil {
			waiting = st.waiting.Version()
		}
	})
	return active, waiting, err
}

// RoundTrip routes req through the active worker. It makes Registration
// usable as an http.Client transport.
func (r *Registration) RoundTrip(req *http.Request) (*http.Response, error) {
	var active *Worker
	if err := r.do(req.Context(), func(st *registrationState) { active = st.active }); err != nil {
		return nil, err
	}
	if active == nil {
		return r.fallback.RoundTrip(req)
	}
	return active.Fetch(req)
}
