package storage

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

// Logger 日志记录器，底层为 zap
// 同时写入日志文件(JSON)与控制台
type Logger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
	file  *os.File
}

// NewLogger 创建新的日志记录器
// filename 为空时只输出到控制台
func NewLogger(filename string, level LogLevel) (*Logger, error) {
	atom := zap.NewAtomicLevelAt(level.zapLevel())

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), atom),
	}

	var file *os.File
	if filename != "" {
		var err error
		file, err = os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), atom))
	}

	return &Logger{
		sugar: zap.New(zapcore.NewTee(cores...)).Sugar(),
		level: atom,
		file:  file,
	}, nil
}

// NewNopLogger 不输出任何内容，测试使用
func NewNopLogger() *Logger {
	return &Logger{
		sugar: zap.NewNop().Sugar(),
		level: zap.NewAtomicLevel(),
	}
}

// Close 刷新缓冲并关闭日志文件
func (l *Logger) Close() error {
	_ = l.sugar.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetLevel 运行时调整日志级别
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// With 返回附带固定字段的子记录器
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar: l.sugar.With(keysAndValues...),
		level: l.level,
	}
}

// Log 记录日志
// keysAndValues 为结构化字段，如 "rows", 10
func (l *Logger) Log(level LogLevel, message string, keysAndValues ...interface{}) {
	switch level {
	case DEBUG:
		l.sugar.Debugw(message, keysAndValues...)
	case INFO:
		l.sugar.Infow(message, keysAndValues...)
	case WARNING:
		l.sugar.Warnw(message, keysAndValues...)
	case ERROR:
		l.sugar.Errorw(message, keysAndValues...)
	case FATAL:
		l.sugar.Fatalw(message, keysAndValues...)
	default:
		l.sugar.Infow(message, keysAndValues...)
	}
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel 解析配置中的级别名称，无法识别时返回 INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, kv ...interface{})   { l.Log(DEBUG, msg, kv...) }   // 记录调试信息
func (l *Logger) Info(msg string, kv ...interface{})    { l.Log(INFO, msg, kv...) }    // 记录普通信息
func (l *Logger) Warning(msg string, kv ...interface{}) { l.Log(WARNING, msg, kv...) } // 记录警告信息
func (l *Logger) Error(msg string, kv ...interface{})   { l.Log(ERROR, msg, kv...) }   // 记录错误信息
func (l *Logger) Fatal(msg string, kv ...interface{})   { l.Log(FATAL, msg, kv...) }   // 记录致命错误
