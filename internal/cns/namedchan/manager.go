package namedchan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-cns/internal/core/channel"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/lib/log"
	"github.com/dep2p/go-cns/pkg/types"
)

var logger = log.Logger("cns/namedchan")

// ErrWrongOwner 通道端不是由该 Manager 创建的
var ErrWrongOwner = errors.New("namedchan: end not created by this manager")

// Naming Manager 所需的名称服务操作，*client.Proxy 实现该接口
type Naming interface {
	Resolve(ctx context.Context, name types.Name, level types.AccessLevel) (types.Location, error)
	Register(ctx context.Context, name types.Name, level types.AccessLevel, loc types.Location, key types.RegistrationKey) (types.RegistrationKey, error)
	Deregister(ctx context.Context, name types.Name, level types.AccessLevel, key types.RegistrationKey) error
}

// End 命名通道端
type End interface {
	// Name 返回名称
	Name() types.Name

	// Level 返回作用域
	Level() types.AccessLevel
}

// Input 命名输入端
type Input struct {
	*channel.Input
	name  types.Name
	level types.AccessLevel
	key   types.RegistrationKey
}

// Name 实现 End
func (in *Input) Name() types.Name { return in.name }

// Level 实现 End
func (in *Input) Level() types.AccessLevel { return in.level }

// Key 返回注册凭证
func (in *Input) Key() types.RegistrationKey { return in.key }

// Output 命名输出端
type Output struct {
	*channel.Output
	name  types.Name
	level types.AccessLevel
}

// Name 实现 End
func (out *Output) Name() types.Name { return out.name }

// Level 实现 End
func (out *Output) Level() types.AccessLevel { return out.level }

// Manager 命名通道端管理器
type Manager struct {
	host    pkgif.Host
	naming  Naming
	bufSize int

	mu   sync.Mutex
	ends map[End]struct{}
}

// NewManager 创建管理器
//
// bufSize 为输入端缓冲大小，<=0 时使用 channel.DefaultBufferSize。
func NewManager(h pkgif.Host, naming Naming, bufSize int) *Manager {
	return &Manager{
		host:    h,
		naming:  naming,
		bufSize: bufSize,
		ends:    make(map[End]struct{}),
	}
}

// CreateInput 创建输入端并以 (name, level) 注册
func (m *Manager) CreateInput(ctx context.Context, name types.Name, level types.AccessLevel) (*Input, error) {
	ch, err := channel.NewInput(m.host, m.bufSize)
	if err != nil {
		return nil, err
	}

	key, err := m.naming.Register(ctx, name, level, ch.Location(), types.NoKey)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("namedchan: register %q: %w", name, err)
	}

	in := &Input{Input: ch, name: name, level: level, key: key}
	m.track(in)

	logger.Debug("命名输入端已创建", "name", name, "level", level.String(), "loc", ch.Location().String())
	return in, nil
}

// CreateOutput 解析 (name, level) 并创建写向该位置的输出端
//
// 名称尚未注册时阻塞，直到注册到达或 ctx 结束。
func (m *Manager) CreateOutput(ctx context.Context, name types.Name, level types.AccessLevel) (*Output, error) {
	loc, err := m.naming.Resolve(ctx, name, level)
	if err != nil {
		return nil, fmt.Errorf("namedchan: resolve %q: %w", name, err)
	}

	out := &Output{Output: channel.NewOutput(m.host, loc), name: name, level: level}
	m.track(out)
	return out, nil
}

// Destroy 销毁通道端
//
// 输入端先注销再释放端口；注销失败时端口仍会释放并返回错误。
func (m *Manager) Destroy(ctx context.Context, end End) error {
	m.mu.Lock()
	_, ok := m.ends[end]
	delete(m.ends, end)
	m.mu.Unlock()

	if !ok {
		return ErrWrongOwner
	}
	return destroy(ctx, m.naming, end)
}

// DestroyAll 销毁全部通道端
//
// 每个端独立尝试，错误汇总返回，不会因一个失败留下其余端。
func (m *Manager) DestroyAll(ctx context.Context) error {
	m.mu.Lock()
	ends := make([]End, 0, len(m.ends))
	for end := range m.ends {
		ends = append(ends, end)
	}
	m.ends = make(map[End]struct{})
	m.mu.Unlock()

	var err error
	for _, end := range ends {
		err = multierr.Append(err, destroy(ctx, m.naming, end))
	}
	return err
}

// Len 返回当前管理的通道端数量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ends)
}

func (m *Manager) track(end End) {
	m.mu.Lock()
	m.ends[end] = struct{}{}
	m.mu.Unlock()
}

func destroy(ctx context.Context, naming Naming, end End) error {
	switch e := end.(type) {
	case *Input:
		var err error
		if derr := naming.Deregister(ctx, e.name, e.level, e.key); derr != nil {
			err = fmt.Errorf("namedchan: deregister %q: %w", e.name, derr)
		}
		return multierr.Append(err, e.Input.Close())
	case *Output:
		return e.Output.Close()
	default:
		return ErrWrongOwner
	}
}
