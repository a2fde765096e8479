package log

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Logger 是可注入的日志接口，组件都依赖它而不是包级别函数
type Logger interface {
	Debug(format string, a ...any)
	Info(format string, a ...any)
	Warn(format string, a ...any)
	Error(format string, a ...any)
}

// Fields 上下文结构，方便在结构体之间传递信息
// 创建后不要直接修改，用WithFields生成新的
type Fields map[string]any

const (
	prefixKey = "__prefix__"
)

var _ Logger = Fields{}

func (f Fields) String() string {
	keys := lo.Filter(lo.Keys(f), func(k string, _ int) bool {
		return k != prefixKey
	})
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	if prefix := f.Prefix(); prefix != "" {
		parts = append(parts, "["+prefix+"]")
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%+v", k, f[k]))
	}
	return strings.Join(parts, " ")
}

func (f Fields) prepend(format string) string {
	if len(f) == 0 {
		return format
	}
	return strings.ReplaceAll(f.String(), "%", "%%") + " " + format
}

func (f Fields) WithPrefix(prefix string) Fields {
	return MergeFields(f, Fields{prefixKey: prefix})
}

// MergeFields 合并，结果不影响原来的数据
func MergeFields(f Fields, fields ...Fields) Fields {
	all := make(Fields, len(f))
	for k, v := range f {
		all[k] = v
	}
	for _, field := range fields {
		for k, v := range field {
			all[k] = v
		}
	}
	return all
}

func (f Fields) WithFields(fields ...Fields) Fields {
	return MergeFields(f, fields...)
}

func (f Fields) WithField(key string, value any) Fields {
	return MergeFields(f, Fields{key: value})
}

func (f Fields) Prefix() string {
	prefix, ok := f[prefixKey].(string)
	return lo.Ternary(ok, prefix, "")
}

func (f Fields) Debug(format string, a ...any) {
	output().Debugf(f.prepend(format), a...)
}

func (f Fields) Info(format string, a ...any) {
	output().Infof(f.prepend(format), a...)
}

func (f Fields) Warn(format string, a ...any) {
	output().Warnf(f.prepend(format), a...)
}

func (f Fields) Error(format string, a ...any) {
	output().Errorf(f.prepend(format), a...)
}

func (f Fields) Fatal(format string, a ...any) {
	output().Fatalf(f.prepend(format), a...)
}

// With 给任意Logger追加上下文，Fields直接合并，其他实现包一层
func With(logger Logger, fields Fields) Logger {
	if logger == nil {
		return fields
	}
	if f, ok := logger.(Fields); ok {
		return f.WithFields(fields)
	}
	return &prefixed{inner: logger, fields: fields}
}

type prefixed struct {
	inner  Logger
	fields Fields
}

func (p *prefixed) Debug(format string, a ...any) {
	p.inner.Debug(p.fields.prepend(format), a...)
}

func (p *prefixed) Info(format string, a ...any) {
	p.inner.Info(p.fields.prepend(format), a...)
}

func (p *prefixed) Warn(format string, a ...any) {
	p.inner.Warn(p.fields.prepend(format), a...)
}

func (p *prefixed) Error(format string, a ...any) {
	p.inner.Error(p.fields.prepend(format), a...)
}
