// Package main 提供名称服务运维客户端
//
// 示例：
//
//	cnsctl --server 127.0.0.1:7300 lease svc.echo --level /dc1
//	cnsctl --server 127.0.0.1:7300 register svc.echo --loc <node>@<addr>/<port> --key <key>
//	cnsctl --server 127.0.0.1:7300 resolve svc.echo --level /dc1/rack2
//	cnsctl --server 127.0.0.1:7300 deregister svc.echo --key <key>
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	cns "github.com/dep2p/go-cns"
)

const defaultTimeout = 10 * time.Second

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "server, s",
		Usage:  "名称服务地址，多个地址以逗号分隔",
		EnvVar: "CNS_SERVER_ADDRS",
	},
	cli.DurationFlag{
		Name:  "timeout, t",
		Value: defaultTimeout,
		Usage: "单次操作超时",
	},
}

var levelFlag = cli.StringFlag{
	Name:  "level, l",
	Value: "/",
	Usage: "访问级别，例如 /dc1/rack2（默认全局）",
}

var keyFlag = cli.StringFlag{
	Name:  "key, k",
	Usage: "注册密钥（lease/register 的输出）",
}

func main() {
	app := cli.NewApp()
	app.Name = "cnsctl"
	app.Usage = "查询和维护名称服务绑定"
	app.Version = cns.Version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		cli.Command{
			Name:      "resolve",
			Usage:     "解析名称（等待直到名称在可见级别上注册）",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{levelFlag},
			Action:    resolveCommand,
		},
		cli.Command{
			Name:      "register",
			Usage:     "将名称绑定到位置",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				levelFlag,
				keyFlag,
				cli.StringFlag{
					Name:  "loc",
					Usage: "通道位置，格式 <node>@<addr>/<port>",
				},
			},
			Action: registerCommand,
		},
		cli.Command{
			Name:      "lease",
			Usage:     "为名称预留租约",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{levelFlag, keyFlag},
			Action:    leaseCommand,
		},
		cli.Command{
			Name:      "deregister",
			Usage:     "删除绑定或租约",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{levelFlag, keyFlag},
			Action:    deregisterCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cnsctl: %v\n", err)
		os.Exit(1)
	}
}
