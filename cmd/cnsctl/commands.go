package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli"

	cns "github.com/dep2p/go-cns"
	"github.com/dep2p/go-cns/internal/cns/client"
	"github.com/dep2p/go-cns/pkg/types"
)

// target 子命令操作的 (名称, 级别, 密钥)
type target struct {
	name  types.Name
	level types.AccessLevel
	key   types.RegistrationKey
}

// parseTarget 解析位置参数与 --level/--key
func parseTarget(c *cli.Context) (target, error) {
	var t target
	if c.NArg() != 1 {
		return t, fmt.Errorf("%s: expected exactly one <name>", c.Command.Name)
	}
	t.name = types.Name(c.Args().First())
	if err := t.name.Validate(); err != nil {
		return t, err
	}

	level, err := types.ParseAccessLevel(c.String("level"))
	if err != nil {
		return t, err
	}
	t.level = level

	if s := c.String("key"); s != "" {
		if t.key, err = types.ParseRegistrationKey(s); err != nil {
			return t, err
		}
	}
	return t, nil
}

// serverAddrs 解析 --server
func serverAddrs(c *cli.Context) ([]string, error) {
	var addrs []string
	for _, a := range strings.Split(c.GlobalString("server"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("no server address, use --server or CNS_SERVER_ADDRS")
	}
	return addrs, nil
}

// withProxy 启动临时客户端节点并在其代理上执行 fn
func withProxy(c *cli.Context, fn func(ctx context.Context, p *client.Proxy, t target) error) error {
	t, err := parseTarget(c)
	if err != nil {
		return err
	}
	addrs, err := serverAddrs(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.GlobalDuration("timeout"))
	defer cancel()

	node, err := cns.StartClient(ctx, addrs)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	p, err := node.Proxy()
	if err != nil {
		return err
	}
	return fn(ctx, p, t)
}

func resolveCommand(c *cli.Context) error {
	return withProxy(c, func(ctx context.Context, p *client.Proxy, t target) error {
		loc, err := p.Resolve(ctx, t.name, t.level)
		if err != nil {
			return err
		}
		fmt.Println(loc)
		return nil
	})
}

func registerCommand(c *cli.Context) error {
	return withProxy(c, func(ctx context.Context, p *client.Proxy, t target) error {
		loc, err := types.ParseLocation(c.String("loc"))
		if err != nil {
			return err
		}
		key, err := p.Register(ctx, t.name, t.level, loc, t.key)
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	})
}

func leaseCommand(c *cli.Context) error {
	return withProxy(c, func(ctx context.Context, p *client.Proxy, t target) error {
		key, err := p.Lease(ctx, t.name, t.level, t.key)
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	})
}

func deregisterCommand(c *cli.Context) error {
	return withProxy(c, func(ctx context.Context, p *client.Proxy, t target) error {
		return p.Deregister(ctx, t.name, t.level, t.key)
	})
}
