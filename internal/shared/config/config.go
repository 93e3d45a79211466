package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigRelPath = "configs/conf.yml"

// Load 读取配置。
//
// 约定：
// 1) 传入 cfgName（相对/绝对路径）则优先使用；
// 2) 否则从当前目录开始向上查找 `configs/conf.yml`；
// 3) 环境变量 CLIPFUSION_<SECTION>_<KEY> 覆盖文件中的值（例如 CLIPFUSION_REDIS_URL）。
//
// 配置在进程启动时读取一次，之后视为只读输入，不做热更新。
func Load(cfgName string) (Config, error) {
	curDir, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	if cfgName != "" {
		if !filepath.IsAbs(cfgName) {
			cfgName = filepath.Join(curDir, cfgName)
		}
		return load(cfgName)
	}
	path, err := findConfigUpward(curDir)
	if err != nil {
		return Config{}, err
	}
	return load(path)
}

// MustLoad 与 Load 相同，失败直接 panic，用于 main 启动阶段。
func MustLoad(cfgName string) Config {
	cfg, err := Load(cfgName)
	if err != nil {
		panic(err)
	}
	return cfg
}

func findConfigUpward(startDir string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, defaultConfigRelPath)
		if fileExist(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config file not exist, searched %s from: %s", defaultConfigRelPath, startDir)
		}
		dir = parent
	}
}
