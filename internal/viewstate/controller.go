package viewstate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/dispatch"
	"github.com/nibzard/todo-go/internal/task"
	"github.com/nibzard/todo-go/internal/usecase"
)

// Options configures a Controller.
type Options struct {
	// Linger keeps the subscription alive after the last observer leaves.
	// Zero means DefaultLinger.
	Linger time.Duration
	// Executor runs intents. When nil the controller owns a single-worker one.
	Executor *dispatch.Executor
	Logger   *log.Logger
}

// Controller holds the screen state for the task list.
//
// The task subscription is shared by all observers. It starts with the
// first observer and stops Linger after the last one leaves; an observer
// arriving within that window reuses it.
type Controller struct {
	uc        usecase.Set
	linger    time.Duration
	exec      *dispatch.Executor
	ownsExec  bool
	logger    *log.Logger
	collector sync.WaitGroup

	mu        sync.Mutex
	state     State
	dialog    Dialog
	observers map[chan State]struct{}
	cancel    context.CancelFunc // non-nil while the subscription is live
	gen       uint64             // bumped on every subscription stop
	timer     *time.Timer
	timerGen  uint64
	closed    bool
	done      chan struct{}
}

// New creates a Controller over the given use cases.
func New(uc usecase.Set, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	linger := opts.Linger
	if linger <= 0 {
		linger = DefaultLinger
	}
	exec := opts.Executor
	ownsExec := false
	if exec == nil {
		exec = dispatch.New(1, logger)
		ownsExec = true
	}
	return &Controller{
		uc:        uc,
		linger:    linger,
		exec:      exec,
		ownsExec:  ownsExec,
		logger:    logger,
		state:     Loading{},
		observers: make(map[chan State]struct{}),
		done:      make(chan struct{}),
	}
}

// State returns the current screen state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Observe returns a channel carrying the current state and then every
// change. Only the newest unread state is kept. The channel closes when
// ctx is done or the controller is closed.
func (c *Controller) Observe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch
	}
	c.observers[ch] = struct{}{}
	c.stopLingerLocked()
	if c.cancel == nil {
		c.startLocked()
	}
	offer(ch, c.state)
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		c.detach(ch)
	}()
	return ch
}

func (c *Controller) detach(ch chan State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.observers[ch]; !ok {
		return
	}
	delete(c.observers, ch)
	close(ch)

	if len(c.observers) == 0 && c.cancel != nil && !c.closed {
		c.startLingerLocked()
	}
}

func (c *Controller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = Loading{}
	gen := c.gen

	c.logger.Debug("task subscription started")
	c.collector.Add(1)
	go c.collect(ctx, gen)
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Controller) collect(ctx context.Context, gen uint64) {
	defer c.collector.Done()

	for snap := range c.uc.Get(ctx) {
		var s State = Success{Tasks: snap.Tasks}
		if snap.Err != nil {
			c.logger.Error("task subscription failed", "err", snap.Err)
			s = Error{Err: snap.Err}
		}
		if !c.publish(gen, s) {
			return
		}
		if snap.Err != nil {
			return
		}
	}
}

// publish sets the state if the subscription gen is still current.
func (c *Controller) publish(gen uint64, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		return false
	}
	c.state = s
	for ch := range c.observers {
		offer(ch, s)
	}
	return true
}

// offer replaces any unread state in ch with s. Callers hold c.mu, so the
// controller is the only sender.
func offer(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func (c *Controller) startLingerLocked() {
	c.stopLingerLocked()
	timerGen := c.timerGen
	c.timer = time.AfterFunc(c.linger, func() { c.lingerExpired(timerGen) })
}

func (c *Controller) stopLingerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) lingerExpired(timerGen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || timerGen != c.timerGen || len(c.observers) > 0 {
		return
	}
	c.timer = nil
	c.stopLocked()
	c.state = Loading{}
	c.logger.Debug("task subscription stopped", "linger", c.linger)
}

// Dialog returns the add-task dialog state.
func (c *Controller) Dialog() Dialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialog
}

// OpenAddDialog shows the add-task dialog with an empty draft.
func (c *Controller) OpenAddDialog() {
	c.mu.Lock()
	c.dialog = Dialog{Open: true}
	c.mu.Unlock()
}

// CancelAddDialog hides the dialog and discards the draft.
func (c *Controller) CancelAddDialog() {
	c.mu.Lock()
	c.dialog = Dialog{}
	c.mu.Unlock()
}

// EditDraft stores the text typed into the dialog.
func (c *Controller) EditDraft(text string) {
	c.mu.Lock()
	c.dialog.Draft = text
	c.mu.Unlock()
}

// SubmitAdd schedules adding a task with the trimmed text and closes the
// dialog. Blank text, or an add that cannot be scheduled, leaves the
// dialog and its draft as they were.
func (c *Controller) SubmitAdd(text string) bool {
	text = strings.TrimSpace(text)
	if task.IsBlank(text) {
		return false
	}

	ok := c.schedule("add task", func(ctx context.Context) error {
		return c.uc.Add(ctx, task.Model{Task: text})
	})
	if ok {
		c.mu.Lock()
		c.dialog = Dialog{}
		c.mu.Unlock()
	}
	return ok
}

// ToggleSelection schedules flipping the task's completion flag.
func (c *Controller) ToggleSelection(t task.Model) {
	toggled := t.Toggled()
	c.schedule("toggle task", func(ctx context.Context) error {
		return c.uc.Update(ctx, toggled)
	})
}

// Delete schedules removing the task.
func (c *Controller) Delete(t task.Model) {
	c.schedule("delete task", func(ctx context.Context) error {
		return c.uc.Delete(ctx, t)
	})
}

func (c *Controller) schedule(name string, fn dispatch.Job) bool {
	if ok := c.exec.Submit(name, fn); !ok {
		c.logger.Warn("intent dropped", "intent", name)
		return false
	}
	return true
}

// Close stops the subscription, closes every observer channel and waits
// for scheduled intents.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.stopLingerLocked()
	c.stopLocked()
	for ch := range c.observers {
		delete(c.observers, ch)
		close(ch)
	}
	c.mu.Unlock()

	if c.ownsExec {
		c.exec.Close()
	} else {
		c.exec.Wait()
	}
	c.collector.Wait()
}
