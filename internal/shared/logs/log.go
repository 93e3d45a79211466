package logs

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像里不一定带 zoneinfo

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ClipFusion/internal/shared/config"
	"ClipFusion/modules/kit/logx"
)

const defaultTimezone = "Asia/Shanghai"

var logger *zap.Logger = zap.NewNop()

// Init 构建进程级 logger 并替换全局实例。
func Init(appName string, cfg config.LogConfig) error {
	l, err := New(appName, cfg, os.Stderr)
	if err != nil {
		return err
	}
	// 替换全局 logger：如果之前初始化过，先 Sync 刷盘
	if logger != nil {
		_ = logger.Sync()
	}
	logger = l
	return nil
}

// New 构建 logger：
// - 控制台：logx 行格式，固定字段顺序，统一展示时区
// - 文件（可选）：JSON 结构化输出，lumberjack 切割
func New(appName string, cfg config.LogConfig, console io.Writer) (*zap.Logger, error) {
	// 1) 解析日志级别：默认是 info，大小写不敏感
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	// 使用 AtomicLevel 方便未来动态调整日志级别
	atomicLevel := zap.NewAtomicLevelAt(lvl)

	// 2) 展示时区：所有时间先转换再输出
	tzName := cfg.Timezone
	if tzName == "" {
		tzName = defaultTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load log timezone %q: %w", tzName, err)
	}

	// 3) 控制台编码器：行格式，可读性优先
	consoleEncoder := logx.NewLineEncoder(logx.LineEncoderConfig{Location: loc})
	if console == nil {
		console = os.Stderr
	}
	consoleSyncer := zapcore.Lock(zapcore.AddSync(console))
	core := zapcore.NewCore(consoleEncoder, consoleSyncer, atomicLevel)

	// 4) 文件编码器：JSON 结构化输出，带切割
	if cfg.FileDir != "" {
		fileCfg := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     logx.TimeEncoder(loc),
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FileDir,
			MaxSize:    max(1, cfg.MaxSize),    // 单个文件最大大小（MB），至少 1
			MaxBackups: max(0, cfg.MaxBackups), // 最多保留多少个旧文件
			MaxAge:     max(0, cfg.MaxAge),     // 最多保留多少天的旧文件
			Compress:   cfg.Compress,
		}
		// 不会把控制台格式写进日志文件
		core = zapcore.NewTee(
			core,
			zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(fileWriter), atomicLevel),
		)
	}

	// 5) zap 选项：每条日志带调用位置；开发模式下 warn 及以上带堆栈
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Dev {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...).Named(appName), nil
}

// Logger 返回全局 logger，未初始化时是 Nop。
func Logger() *zap.Logger {
	return logger
}

// Sync 在进程退出前刷盘。
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// 常用日志级别的辅助函数，只用于 main 启动/退出阶段；业务代码通过注入的 logx.Logger 打日志。

func Info(msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Error(msg, fields...)
	}
}

// Fatal：输出 Fatal 级别日志，然后退出程序（os.Exit(1)）。
func Fatal(msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Fatal(msg, fields...)
	}
}
