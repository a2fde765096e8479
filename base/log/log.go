package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type (
	Level   string
	OutType int
)

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"

	infoFileOutName  = "netclient"
	errorFileOutName = "error"
	panicFileOutName = "panic"

	// ConsoleOut 控制台输出
	ConsoleOut OutType = 1
	// InfoFileOut 一般日志
	InfoFileOut OutType = 2
	// ErrorFileOut 错误日志，只记录warn以上
	ErrorFileOut OutType = 4

	// FileOut 文件输出
	FileOut = InfoFileOut | ErrorFileOut
)

var (
	// Builder 初始化全局日志，只能Build一次
	Builder      = &builder{cfg: &config{}}
	levelMapping = map[Level]zapcore.Level{
		LevelDebug: zap.DebugLevel,
		LevelInfo:  zap.InfoLevel,
		LevelWarn:  zap.WarnLevel,
		LevelError: zap.ErrorLevel,
	}
	aliasMap = map[string]OutType{
		"console": ConsoleOut,
		"file":    FileOut,
		"error":   ErrorFileOut,
	}
	proxy *loggerProxy
	once  sync.Once
)

// OutTypeAlias 文本形式的输出配置，用|分割，如"console|file"
func OutTypeAlias(name string) OutType {
	var r OutType
	for _, s := range strings.Split(strings.ToLower(name), "|") {
		r |= aliasMap[strings.TrimSpace(s)]
	}
	return lo.Ternary(r == 0, ConsoleOut, r)
}

type config struct {
	name         string
	path         string
	level        Level
	out          OutType
	maxSize      int //单位Mb，默认100
	maxAge       int //单位天，默认无限
	maxBackUps   int //最大保留旧日志个数，默认无限
	enableRotate bool
}

type loggerProxy struct {
	zapLevel zap.AtomicLevel
	current  atomic.Pointer[zap.SugaredLogger]
	// debug模式下带caller
	dLogger *zap.SugaredLogger
	nLogger *zap.SugaredLogger
}

func (lp *loggerProxy) changeLevel(level Level) {
	if level == LevelDebug {
		lp.zapLevel.SetLevel(zapcore.DebugLevel)
		lp.current.Store(lp.dLogger)
		return
	}
	lp.zapLevel.SetLevel(levelMapping[level])
	lp.current.Store(lp.nLogger)
}

// ChangeLogLevel 运行时切换日志级别
func ChangeLogLevel(level Level) {
	if _, ok := levelMapping[level]; !ok {
		Warn("unknown log level %s, ignored", level)
		return
	}
	proxy.changeLevel(level)
}

// IsDebugEnabled 是否打开了debug
func IsDebugEnabled() bool {
	return proxy.zapLevel.Enabled(zapcore.DebugLevel)
}

type builder struct {
	cfg *config
}

func (b *builder) Name(name string) *builder {
	b.cfg.name = name
	return b
}

// Path 日志文件目录
func (b *builder) Path(path string) *builder {
	b.cfg.path = path
	return b
}

func (b *builder) Level(level Level) *builder {
	b.cfg.level = level
	return b
}

func (b *builder) OutType(out OutType) *builder {
	b.cfg.out = lo.Ternary(out <= 0, ConsoleOut, out)
	return b
}

func (b *builder) MaxSize(size int) *builder {
	b.cfg.maxSize = size
	return b
}

func (b *builder) MaxAge(age int) *builder {
	b.cfg.maxAge = age
	return b
}

func (b *builder) MaxBackUps(count int) *builder {
	b.cfg.maxBackUps = count
	return b
}

func (b *builder) EnableRotate(enable bool) *builder {
	b.cfg.enableRotate = enable
	return b
}

func (b *builder) fileName(base string) string {
	if b.cfg.name == "" {
		return base + ".log"
	}
	if base == infoFileOutName {
		return b.cfg.name + ".log"
	}
	return b.cfg.name + "-" + base + ".log"
}

// Build 按配置替换默认的控制台日志
func (b *builder) Build() {
	once.Do(func() {
		c := b.cfg
		if c.out == 0 {
			c.out = ConsoleOut
		}
		if c.level == "" {
			c.level = LevelDebug
		}
		if c.out&FileOut > 0 {
			if c.path == "" {
				c.path = "./log"
			}
			if !exists(c.path) && os.MkdirAll(c.path, 0755) != nil {
				panic("fail to create log directory")
			}
			// 将panic日志重定向到文件，不然的话都会打到stderr里
			if err := redirectStderr(filepath.Join(c.path, b.fileName(panicFileOutName))); err != nil {
				panic("fail to redirect panic log to file:" + err.Error())
			}
		}
		p := &loggerProxy{zapLevel: zap.NewAtomicLevelAt(levelMapping[c.level])}
		encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		// 高优先级
		hp := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.WarnLevel
		})
		cores := make([]zapcore.Core, 0, 3)
		if c.out&ConsoleOut > 0 {
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), p.zapLevel))
		}
		if c.out&InfoFileOut > 0 {
			cores = append(cores, zapcore.NewCore(encoder,
				zapcore.AddSync(b.getWriter(b.fileName(infoFileOutName))), p.zapLevel))
		}
		if c.out&ErrorFileOut > 0 {
			cores = append(cores, zapcore.NewCore(encoder,
				zapcore.AddSync(b.getWriter(b.fileName(errorFileOutName))), hp))
		}
		p.install(zap.New(zapcore.NewTee(cores...)))
		p.changeLevel(c.level)
		proxy = p
	})
}

func (lp *loggerProxy) install(lg *zap.Logger) {
	lp.nLogger = lg.Sugar()
	lp.dLogger = lg.WithOptions(zap.AddCaller(), zap.AddCallerSkip(callerSkip)).Sugar()
}

// 判断所给路径文件/文件夹是否存在
func exists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

func (b *builder) getWriter(name string) io.Writer {
	fullName := filepath.Join(b.cfg.path, name)
	if !b.cfg.enableRotate {
		f, err := os.OpenFile(fullName, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			panic("fail to open log file")
		}
		return f
	}
	return &lumberjack.Logger{
		Filename:   fullName,
		MaxSize:    b.cfg.maxSize,
		MaxAge:     b.cfg.maxAge,
		MaxBackups: b.cfg.maxBackUps,
	}
}

// 跳过包级别的Debug/Info等函数
const callerSkip = 1

func output() *zap.SugaredLogger {
	return proxy.current.Load()
}

// Debug 调试模式下会打印caller
func Debug(format string, a ...any) {
	output().Debugf(format, a...)
}

func Info(format string, a ...any) {
	output().Infof(format, a...)
}

func Warn(format string, a ...any) {
	output().Warnf(format, a...)
}

func Error(format string, a ...any) {
	output().Errorf(format, a...)
}

func Fatal(format string, a ...any) {
	output().Fatalf(format, a...)
}

// FormatPanic 格式化recover到的值和当前堆栈
// 注意recover必须在当前函数调用
func FormatPanic(prefix string, r any) string {
	buf := make([]byte, 4096)
	l := runtime.Stack(buf, false)
	return fmt.Sprintf("%s: %v-> %s", prefix, r, buf[:l])
}

// PanicStack 从panic中恢复并打印日志
func PanicStack(prefix string, r any) {
	Error("%s", FormatPanic(prefix, r))
}

func Flush() {
	_ = proxy.dLogger.Sync()
	_ = proxy.nLogger.Sync()
}

func init() {
	// 默认情况下初始化一个仅输出到控制台的日志方便测试
	proxy = &loggerProxy{zapLevel: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout), proxy.zapLevel)
	proxy.install(zap.New(core))
	proxy.current.Store(proxy.dLogger)
}
