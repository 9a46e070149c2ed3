// Package logging 构建全局使用的 zap 日志器
package logging

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 日志格式
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel 解析日志级别（debug/info/warn/error）
func ParseLevel(s string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, errors.Wrapf(err, "log level %q", s)
	}
	return lvl, nil
}

// ValidFormat 格式是否受支持
func ValidFormat(format string) bool {
	return format == FormatConsole || format == FormatJSON
}

// New 创建写到标准错误的日志器；终端上使用彩色级别
func New(level, format string) (*zap.Logger, error) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return NewWithWriter(os.Stderr, level, format, color)
}

// NewWithWriter 创建写到 w 的日志器
func NewWithWriter(w io.Writer, level, format string, color bool) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	var enc zapcore.Encoder
	switch format {
	case FormatConsole, "":
		if color {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	case FormatJSON:
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, errors.Newf("unknown log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
