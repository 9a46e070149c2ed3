// Package config 读取与保存 dexopt 的 TOML 配置
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/tangzhangming/dexopt/internal/arraylit"
	"github.com/tangzhangming/dexopt/internal/logging"
)

// 常量定义
const (
	ConfigFileName = "dexopt.toml" // 配置文件名
)

// Config 全局配置
type Config struct {
	Redex  RedexOptions `toml:"redex"`
	Passes PassesConfig `toml:"passes"`
	Log    LogConfig    `toml:"log"`
}

// RedexOptions 目标平台
type RedexOptions struct {
	// MinSdk 应用支持的最低 Android API 级别
	MinSdk int `toml:"min_sdk"`

	// Arch 目标架构（unknown、x86、x86_64、arm、armv7、arm64、mips）
	Arch string `toml:"arch"`
}

// PassesConfig 各 pass 的参数
type PassesConfig struct {
	ReduceArrayLiterals ReduceArrayLiteralsConfig `toml:"ReduceArrayLiteralsPass"`
}

// ReduceArrayLiteralsConfig 数组字面量 pass 的参数
type ReduceArrayLiteralsConfig struct {
	// MaxFilledElements 单条 filled-new-array 的最大元素数，必须小于 255
	MaxFilledElements int `toml:"max_filled_elements"`

	// Debug 单线程运行
	Debug bool `toml:"debug"`

	// Threads 工作协程数，0 表示 CPU 数
	Threads int `toml:"threads"`
}

// LogConfig 日志
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Redex: RedexOptions{
			MinSdk: 0,
			Arch:   arraylit.ArchUnknown.String(),
		},
		Passes: PassesConfig{
			ReduceArrayLiterals: ReduceArrayLiteralsConfig{
				MaxFilledElements: arraylit.DefaultMaxFilledElements,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// LoadConfig 从文件加载配置，未出现的键保持默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse 解析 TOML 内容并校验
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查全部配置项，返回所有问题
func (c *Config) Validate() error {
	var err error
	if c.Redex.MinSdk < 0 {
		err = multierr.Append(err, errors.Newf("redex.min_sdk must not be negative, got %d", c.Redex.MinSdk))
	}
	if _, archErr := arraylit.ParseArchitecture(c.Redex.Arch); archErr != nil {
		err = multierr.Append(err, errors.Wrap(archErr, "redex.arch"))
	}
	ral := c.Passes.ReduceArrayLiterals
	if ral.MaxFilledElements < 1 || ral.MaxFilledElements >= 0xff {
		err = multierr.Append(err, errors.Newf(
			"passes.ReduceArrayLiteralsPass.max_filled_elements must be in [1, 255), got %d", ral.MaxFilledElements))
	}
	if ral.Threads < 0 {
		err = multierr.Append(err, errors.Newf(
			"passes.ReduceArrayLiteralsPass.threads must not be negative, got %d", ral.Threads))
	}
	if _, lvlErr := logging.ParseLevel(c.Log.Level); lvlErr != nil {
		err = multierr.Append(err, errors.Wrap(lvlErr, "log.level"))
	}
	if !logging.ValidFormat(c.Log.Format) {
		err = multierr.Append(err, errors.Newf("log.format must be console or json, got %q", c.Log.Format))
	}
	return err
}

// Architecture 解析后的目标架构
func (c *Config) Architecture() arraylit.Architecture {
	a, err := arraylit.ParseArchitecture(c.Redex.Arch)
	if err != nil {
		return arraylit.ArchUnknown
	}
	return a
}

// ArrayLiteralOptions 数组字面量 pass 的改写参数
func (c *Config) ArrayLiteralOptions() arraylit.Options {
	return arraylit.Options{
		MaxFilledElements: c.Passes.ReduceArrayLiterals.MaxFilledElements,
		MinSdk:            c.Redex.MinSdk,
		Arch:              c.Architecture(),
	}
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	// 生成带注释的配置文件内容
	content := generateConfigWithComments(c)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) string {
	var sb strings.Builder
	ral := c.Passes.ReduceArrayLiterals

	sb.WriteString("[redex]\n")
	sb.WriteString("# 最低 Android API 级别（低于 24 时不做数组改写）\n")
	sb.WriteString(fmt.Sprintf("min_sdk = %d\n\n", c.Redex.MinSdk))
	sb.WriteString("# 目标架构：unknown、x86、x86_64、arm、armv7、arm64、mips\n")
	sb.WriteString(fmt.Sprintf("arch = %q\n\n", c.Redex.Arch))

	sb.WriteString("[passes.ReduceArrayLiteralsPass]\n")
	sb.WriteString("# 单条 filled-new-array 的最大元素数（1-254）\n")
	sb.WriteString(fmt.Sprintf("max_filled_elements = %d\n\n", ral.MaxFilledElements))
	sb.WriteString("# 单线程运行，便于阅读调试日志\n")
	sb.WriteString(fmt.Sprintf("debug = %t\n\n", ral.Debug))
	sb.WriteString("# 工作协程数，0 表示 CPU 数\n")
	sb.WriteString(fmt.Sprintf("threads = %d\n\n", ral.Threads))

	sb.WriteString("[log]\n")
	sb.WriteString("# debug、info、warn、error\n")
	sb.WriteString(fmt.Sprintf("level = %q\n\n", c.Log.Level))
	sb.WriteString("# console 或 json\n")
	sb.WriteString(fmt.Sprintf("format = %q\n", c.Log.Format))

	return sb.String()
}

// FindConfigFile 从程序文件所在目录向上查找名为 name 的配置文件
//
// input 也可以是目录。同名目录被跳过；找不到时返回空字符串。
func FindConfigFile(input, name string) string {
	dir, err := filepath.Abs(input)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(dir); err != nil {
		return ""
	} else if !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for ; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
		if filepath.Dir(dir) == dir {
			return ""
		}
	}
}
