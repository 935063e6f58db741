package typing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"sudooom.im.typing/internal/people"
	imErrors "sudooom.im.typing/pkg/errors"
	"sudooom.im.typing/pkg/proto"
)

// Display 展示当前视图下正在输入的用户
type Display interface {
	ShowTyping(update *proto.TypingUpdate)
}

// ChangeListener 订阅每个会话的输入集合变化
type ChangeListener interface {
	OnTypingChanged(key RecipientKey, users []int64)
}

// Options Coordinator 依赖
type Options struct {
	Config    Config
	Directory *people.Directory
	Sender    Sender
	Timers    Timers
	Clock     Clock
	Displays  []Display
	Listeners []ChangeListener
	InboxSize int
}

// Coordinator 输入状态协调器
// 所有状态只在 Run 的事件循环中修改，每个事件执行完毕后才处理下一个
type Coordinator struct {
	cfg       Config
	self      int64
	directory *people.Directory
	compose   *ComposeBox
	debouncer *Debouncer
	registry  *Registry
	displays  []Display
	listeners []ChangeListener
	logger    *slog.Logger

	narrow       Narrow
	rendered     bool
	lastRendered []int64

	inbox   chan func()
	done    chan struct{}
	started atomic.Bool
	running atomic.Bool
}

// NewCoordinator 创建协调器，每个客户端会话一个
func NewCoordinator(opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}

	self := opts.Directory.Self().UserID
	c := &Coordinator{
		cfg:       opts.Config,
		self:      self,
		directory: opts.Directory,
		compose:   NewComposeBox(self),
		displays:  opts.Displays,
		listeners: opts.Listeners,
		logger:    slog.Default(),
		narrow:    Narrow{Kind: NarrowStream},
		inbox:     make(chan func(), opts.InboxSize),
		done:      make(chan struct{}),
	}

	timers := &loopTimers{inner: opts.Timers, post: c.post}
	c.debouncer = NewDebouncer(opts.Config, self, c.compose, opts.Sender, timers, opts.Clock)
	c.registry = NewRegistry(self, opts.Config.StartedExpiryPeriod, timers, c.onRegistryChange)

	return c
}

// Run 运行事件循环直到 ctx 结束；退出时发送 stop 并取消所有定时器
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("coordinator already started")
	}
	c.running.Store(true)
	c.logger.Info("Typing coordinator started", "userId", c.self)

	defer func() {
		c.teardown()
		c.running.Store(false)
		close(c.done)
		c.logger.Info("Typing coordinator stopped", "userId", c.self)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.inbox:
			fn()
		}
	}
}

// Running 事件循环是否在运行
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

func (c *Coordinator) teardown() {
	c.debouncer.OnComposeClosed()
	c.debouncer.Close()
	c.registry.Close()
}

// post 投递到事件循环，不等待执行
func (c *Coordinator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// do 投递到事件循环并等待执行完成
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.inbox <- wrapped:
	case <-c.done:
		return imErrors.ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-c.done:
		return imErrors.ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ComposeInput 输入框内容变化
func (c *Coordinator) ComposeInput(ctx context.Context, recipientIDs []int64, content string) error {
	return c.do(ctx, func() {
		c.compose.SetRecipient(recipientIDs)
		c.compose.SetContent(content)
		c.debouncer.OnComposeInput()
	})
}

// SetComposeRecipient 收件人变化
func (c *Coordinator) SetComposeRecipient(ctx context.Context, recipientIDs []int64) error {
	return c.do(ctx, func() {
		c.compose.SetRecipient(recipientIDs)
		c.debouncer.OnComposeRecipientChanged()
	})
}

// ComposeClosed 输入框关闭或消息已发送
func (c *Coordinator) ComposeClosed(ctx context.Context) error {
	return c.do(ctx, func() {
		c.debouncer.OnComposeClosed()
		c.compose.Clear()
	})
}

// Outstanding 当前已发出 start 的收件人
func (c *Coordinator) Outstanding(ctx context.Context) (RecipientKey, error) {
	var key RecipientKey
	err := c.do(ctx, func() {
		key, _ = c.debouncer.Outstanding()
	})
	return key, err
}

// HandleRemoteEvent 处理远端输入状态事件，格式错误的事件被忽略
func (c *Coordinator) HandleRemoteEvent(ctx context.Context, event *proto.TypingEvent) error {
	return c.do(ctx, func() {
		c.handleRemoteEvent(event)
	})
}

func (c *Coordinator) handleRemoteEvent(event *proto.TypingEvent) {
	if event == nil || !event.Op.Valid() {
		c.logger.Debug("Ignoring malformed typing event")
		return
	}

	sender, ok := c.resolve(event.Sender)
	if !ok {
		c.logger.Debug("Ignoring typing event from unknown sender", "email", event.Sender.Email)
		return
	}

	// 任一收件人无法识别时丢弃整条事件
	ids := make([]int64, 0, len(event.Recipients))
	for _, ref := range event.Recipients {
		id, ok := c.resolve(ref)
		if !ok {
			c.logger.Debug("Ignoring typing event with unknown recipient", "sender", sender, "email", ref.Email)
			return
		}
		ids = append(ids, id)
	}
	key := NewRecipientKey(ids...)
	if key.IsZero() {
		c.logger.Debug("Ignoring typing event without recipients", "sender", sender)
		return
	}

	switch event.Op {
	case proto.OpStart:
		c.registry.Start(sender, key)
	case proto.OpStop:
		c.registry.Stop(sender, key)
	}
}

func (c *Coordinator) resolve(ref proto.TypingUserRef) (int64, bool) {
	if ref.UserID > 0 {
		return ref.UserID, true
	}
	if ref.Email != "" {
		if p, ok := c.directory.ByEmail(ref.Email); ok {
			return p.UserID, true
		}
	}
	return 0, false
}

// SetNarrow 切换当前视图并重新展示
func (c *Coordinator) SetNarrow(ctx context.Context, n Narrow) error {
	return c.do(ctx, func() {
		c.narrow = n
		c.rendered = false
		c.render()
	})
}

// ActiveTypists 指定视图中正在输入的用户
func (c *Coordinator) ActiveTypists(ctx context.Context, n Narrow) ([]people.Person, error) {
	var persons []people.Person
	err := c.do(ctx, func() {
		persons = c.persons(c.registry.ActiveTypists(n))
	})
	return persons, err
}

// CurrentTypists 当前视图中正在输入的用户
func (c *Coordinator) CurrentTypists(ctx context.Context) (*proto.TypingUpdate, error) {
	var update *proto.TypingUpdate
	err := c.do(ctx, func() {
		update = c.update(c.registry.ActiveTypists(c.narrow))
	})
	return update, err
}

func (c *Coordinator) onRegistryChange(key RecipientKey, users []int64) {
	for _, l := range c.listeners {
		l.OnTypingChanged(key, users)
	}
	c.render()
}

func (c *Coordinator) render() {
	ids := c.registry.ActiveTypists(c.narrow)
	if c.rendered && slices.Equal(ids, c.lastRendered) {
		return
	}
	c.rendered = true
	c.lastRendered = ids

	update := c.update(ids)
	for _, d := range c.displays {
		d.ShowTyping(update)
	}
}

func (c *Coordinator) update(ids []int64) *proto.TypingUpdate {
	persons := c.persons(ids)
	users := make([]proto.TypingUser, 0, len(persons))
	for _, p := range persons {
		users = append(users, proto.TypingUser{UserID: p.UserID, Email: p.Email, FullName: p.FullName})
	}
	return &proto.TypingUpdate{Narrow: c.narrow.String(), Users: users}
}

func (c *Coordinator) persons(ids []int64) []people.Person {
	persons := make([]people.Person, 0, len(ids))
	for _, id := range ids {
		persons = append(persons, c.directory.Resolve(id))
	}
	return persons
}

// loopTimers 把定时器回调转回事件循环执行
type loopTimers struct {
	inner Timers
	post  func(func())
}

func (t *loopTimers) Schedule(delay time.Duration, fn func()) TimerHandle {
	return t.inner.Schedule(delay, func() { t.post(fn) })
}

func (t *loopTimers) Cancel(h TimerHandle) {
	t.inner.Cancel(h)
}
