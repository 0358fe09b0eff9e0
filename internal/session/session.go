// Package session orchestrates one in-memory editing session: uploads are
// cropped into badges in the background, transforms re-derive the badge,
// and retouch requests go through a remote Retoucher.
//
// All background work is fire-and-forget. Results are written back only if
// the entry still exists and no newer edit has been issued for it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
	"github.com/lehigh-university-libraries/avatarsheet/internal/storage"
)

// DefaultRemoteTimeout bounds each remote call unless WithRemoteTimeout
// says otherwise.
const DefaultRemoteTimeout = 2 * time.Minute

var (
	// ErrNotReady is returned when an edit targets an entry that is still
	// processing, being retouched, or failed to load.
	ErrNotReady = errors.New("entry is not ready")
	// ErrRetouchDisabled is returned by Fill and Enhance when no remote
	// service is configured.
	ErrRetouchDisabled = errors.New("no retouch provider configured")
	// ErrNothingToFill is returned by Fill when the current zoom and pan
	// leave no empty space inside the circle.
	ErrNothingToFill = errors.New("badge has no empty space to fill")

	errStale = errors.New("stale result")
)

// Retoucher is the remote generative service.
type Retoucher interface {
	SuggestPersona(ctx context.Context, png []byte) string
	Outpaint(ctx context.Context, png []byte) ([]byte, error)
	Enhance(ctx context.Context, png []byte) ([]byte, error)
}

// Upload is a file handed to the session.
type Upload struct {
	Name string
	Data []byte
}

// Option configures a Controller.
type Option func(*Controller)

// WithRetoucher enables remote persona suggestion and retouching.
func WithRetoucher(r Retoucher) Option {
	return func(c *Controller) { c.retoucher = r }
}

// WithPersona toggles persona suggestion on upload. It is on by default
// whenever a Retoucher is configured.
func WithPersona(enabled bool) Option {
	return func(c *Controller) { c.persona = enabled }
}

// WithRemoteTimeout bounds each remote call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithContext sets the parent context for background work, typically the
// server's lifetime. Request contexts should not be used here.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// Controller is the session state controller.
type Controller struct {
	store     *storage.SessionStore
	retoucher Retoucher
	persona   bool
	timeout   time.Duration
	ctx       context.Context
	wg        sync.WaitGroup
	now       func() time.Time
}

func New(store *storage.SessionStore, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		persona: true,
		timeout: DefaultRemoteTimeout,
		ctx:     context.Background(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetouchEnabled reports whether Fill and Enhance can be used.
func (c *Controller) RetouchEnabled() bool {
	return c.retoucher != nil
}

func (c *Controller) Entries() []models.Entry {
	return c.store.Snapshot().Entries
}

func (c *Controller) Get(id string) (models.Entry, error) {
	e, ok := c.store.Get(id)
	if !ok {
		return models.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

// Subscribe streams session snapshots; see storage.SessionStore.Subscribe.
func (c *Controller) Subscribe() (<-chan storage.Snapshot, func()) {
	return c.store.Subscribe()
}

// Upload adds files to free slots and starts processing each one in the
// background. Files that do not fit are dropped and storage.ErrFull is
// returned alongside the accepted entries.
func (c *Controller) Upload(files []Upload) ([]models.Entry, error) {
	fresh := make([]models.Entry, 0, len(files))
	for _, f := range files {
		fresh = append(fresh, c.newEntry(f))
	}

	accepted, err := c.store.Add(fresh...)
	if errors.Is(err, storage.ErrFull) {
		slog.Warn("Session full, dropping uploads", "accepted", len(accepted), "dropped", len(files)-len(accepted))
	}

	for _, e := range accepted {
		slog.Info("Image accepted", "id", e.ID, "name", e.OriginalName, "size", len(e.Source))
		c.spawn(func() { c.process(e) })
	}
	return accepted, err
}

// ReplaceSlot overwrites an existing slot with a new file. The new entry
// gets a fresh id, so any late result for the old one is discarded.
func (c *Controller) ReplaceSlot(id string, f Upload) (models.Entry, error) {
	e := c.newEntry(f)
	if err := c.store.Replace(id, e); err != nil {
		return models.Entry{}, err
	}

	slog.Info("Slot replaced", "old_id", id, "id", e.ID, "name", e.OriginalName)
	c.spawn(func() { c.process(e) })
	return e, nil
}

// UpdateTransform records a new zoom and pan and re-derives the badge in
// the background. Only the result for the latest transform is kept.
func (c *Controller) UpdateTransform(id string, t compositor.Transform) (models.Entry, error) {
	if err := t.Validate(); err != nil {
		return models.Entry{}, err
	}

	updated, err := c.store.Update(id, func(e *models.Entry) error {
		if e.Status != models.StatusReady {
			return fmt.Errorf("%w: %s", ErrNotReady, e.Status)
		}
		e.Scale = t.Scale
		e.Position = models.Position{X: t.X, Y: t.Y}
		e.Revision++
		return nil
	})
	if err != nil {
		return models.Entry{}, err
	}

	c.spawn(func() { c.recomposite(updated, t) })
	return updated, nil
}

// Fill starts an outpaint of the entry's current badge. It is only
// offered when zooming out or panning has left empty space.
func (c *Controller) Fill(id string) (*Task, error) {
	if c.retoucher == nil {
		return nil, ErrRetouchDisabled
	}
	return c.retouch(id, "AI fill", c.retoucher.Outpaint, func(e *models.Entry) error {
		if !e.Transform().NeedsFill() {
			return ErrNothingToFill
		}
		return nil
	})
}

// Enhance starts a quality enhancement of the entry's current badge.
func (c *Controller) Enhance(id string) (*Task, error) {
	if c.retoucher == nil {
		return nil, ErrRetouchDisabled
	}
	return c.retouch(id, "Enhancement", c.retoucher.Enhance, nil)
}

// Remove deletes an entry. Work still in flight for it completes and is
// discarded.
func (c *Controller) Remove(id string) error {
	if err := c.store.Delete(id); err != nil {
		return err
	}
	slog.Info("Entry removed", "id", id)
	return nil
}

func (c *Controller) Clear() {
	c.store.Clear()
	slog.Info("Session cleared")
}

// Wait blocks until all background work started so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) newEntry(f Upload) models.Entry {
	return models.Entry{
		ID:           uuid.NewString(),
		OriginalName: f.Name,
		Source:       f.Data,
		Scale:        1.0,
		Status:       models.StatusProcessing,
		Revision:     1,
		CreatedAt:    c.now(),
	}
}

func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.timeout)
}

// apply writes a background result if the entry still exists at the given
// revision.
func (c *Controller) apply(id string, revision uint64, fn func(*models.Entry)) bool {
	_, err := c.store.Update(id, func(e *models.Entry) error {
		if e.Revision != revision {
			return errStale
		}
		fn(e)
		return nil
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, errStale), errors.Is(err, storage.ErrNotFound):
		slog.Debug("Discarding result", "id", id, "revision", revision, "reason", err)
		return false
	default:
		slog.Error("Unable to apply result", "id", id, "err", err)
		return false
	}
}

func (c *Controller) process(e models.Entry) {
	out, err := compositor.CircleBytes(e.Source, compositor.DefaultTransform())
	if err != nil {
		slog.Error("Failed to process image", "id", e.ID, "name", e.OriginalName, "err", err)
		c.apply(e.ID, e.Revision, func(x *models.Entry) {
			x.Status = models.StatusError
			x.LastError = "Could not read this image."
		})
		return
	}

	var persona string
	if c.retoucher != nil && c.persona {
		ctx, cancel := c.remoteContext()
		persona = c.retoucher.SuggestPersona(ctx, out)
		cancel()
	}

	if c.apply(e.ID, e.Revision, func(x *models.Entry) {
		x.Output = out
		x.Persona = persona
		x.Status = models.StatusReady
		x.LastError = ""
	}) {
		slog.Info("Image processed", "id", e.ID, "name", e.OriginalName, "persona", persona)
	}
}

func (c *Controller) recomposite(e models.Entry, t compositor.Transform) {
	out, err := compositor.CircleBytes(e.Source, t)
	if err != nil {
		slog.Error("Failed to re-crop image", "id", e.ID, "err", err)
		c.apply(e.ID, e.Revision, func(x *models.Entry) {
			x.LastError = "Could not re-crop this image."
		})
		return
	}

	c.apply(e.ID, e.Revision, func(x *models.Entry) {
		x.Output = out
		x.LastError = ""
	})
}

func (c *Controller) retouch(id, label string, call func(context.Context, []byte) ([]byte, error), check func(*models.Entry) error) (*Task, error) {
	started, err := c.store.Update(id, func(e *models.Entry) error {
		if e.Status != models.StatusReady || len(e.Output) == 0 {
			return fmt.Errorf("%w: %s", ErrNotReady, e.Status)
		}
		if check != nil {
			if err := check(e); err != nil {
				return err
			}
		}
		e.Status = models.StatusFilling
		e.Revision++
		return nil
	})
	if err != nil {
		return nil, err
	}

	task := newTask()
	c.spawn(func() { task.finish(c.runRetouch(started, label, call)) })
	return task, nil
}

func (c *Controller) runRetouch(e models.Entry, label string, call func(context.Context, []byte) ([]byte, error)) error {
	ctx, cancel := c.remoteContext()
	defer cancel()

	// A re-crop for the latest transform may not have landed yet, and the
	// retouch bumped the revision past it. Crop again so the service sees
	// what the user sees and a failure leaves a matching badge behind.
	current, err := compositor.CircleBytes(e.Source, e.Transform())
	if err != nil {
		current = e.Output
	} else {
		var result []byte
		result, err = call(ctx, current)
		if err == nil {
			// The remote result is a new raw baseline, not a finished badge.
			var out []byte
			out, err = compositor.CircleBytes(result, compositor.DefaultTransform())
			if err == nil {
				c.apply(e.ID, e.Revision, func(x *models.Entry) {
					x.Source = result
					x.Output = out
					x.Scale = 1.0
					x.Position = models.Position{}
					x.Status = models.StatusReady
					x.LastError = ""
				})
				slog.Info("Retouch complete", "id", e.ID, "op", label)
				return nil
			}
		}
	}

	slog.Error("Retouch failed", "id", e.ID, "op", label, "err", err)
	alert := label + " failed."
	c.apply(e.ID, e.Revision, func(x *models.Entry) {
		x.Output = current
		x.Status = models.StatusReady
		x.LastError = alert
	})
	return &RetouchError{Alert: alert, Err: err}
}

// RetouchError is the user-facing failure of a fill or enhance request.
type RetouchError struct {
	Alert string
	Err   error
}

func (e *RetouchError) Error() string {
	return fmt.Sprintf("%s %v", e.Alert, e.Err)
}

func (e *RetouchError) Unwrap() error {
	return e.Err
}

// Task tracks a background retouch.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done. Giving up on the
// wait does not cancel the task.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
