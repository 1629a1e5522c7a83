package main

import (
	"expvar"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gowvp/review/internal/app"
	"github.com/gowvp/review/internal/conf"
	"github.com/ixugo/goddd/pkg/system"
)

var (
	buildVersion = "0.0.1" // 构建版本号
	gitBranch    = "dev"   // git 分支
	gitHash      = "debug" // git 提交点哈希值
)

var configDir = flag.String("conf", "./configs", "config directory, eg: -conf /configs/")

func main() {
	flag.Parse()

	expvar.NewString("git_branch").Set(gitBranch)
	expvar.NewString("git_hash").Set(gitHash)

	dir := *configDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(system.Getwd(), dir)
	}
	bc, err := conf.SetupConfig(filepath.Join(dir, "config.toml"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup config:", err)
		os.Exit(1)
	}
	bc.BuildVersion = buildVersion

	if err := app.Run(&bc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
