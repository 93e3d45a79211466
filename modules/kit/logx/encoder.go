package logx

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// TimeLayout 是日志展示用的时间格式，带时区偏移方便跨时区排查。
const TimeLayout = "2006-01-02 15:04:05.000 -0700"

// stackField 由 ReportSysError 写入，多行内容放在消息之后单独输出。
const stackField = "stack_origin"

// DefaultQuietComponents 是高频且自描述的组件，不输出调用位置。
var DefaultQuietComponents = []string{"api", "http", "server_error"}

type knownField struct {
	key   string
	label string
}

// 固定输出顺序，便于 grep。label 为空表示只输出值本身。
var knownFields = []knownField{
	{FieldTenantID, "tenant"},
	{FieldUserID, "user"},
	{FieldRequestID, "req"},
	{FieldComponent, ""},
	{FieldMethod, ""},
	{FieldPath, ""},
	{FieldStatus, ""},
	{FieldError, ""},
	{FieldParams, "params"},
	{FieldDuration, "duration"},
}

var linePool = buffer.NewPool()

// LineEncoderConfig 配置行格式编码器。
type LineEncoderConfig struct {
	// Location 是展示时区，nil 时使用 UTC。
	Location *time.Location
	// QuietComponents 中的组件不输出调用位置，nil 时使用 DefaultQuietComponents。
	QuietComponents []string
}

// lineEncoder 输出形如：
//
//	2026-01-02 11:04:05.006 +0800 | WARN | tenant=t1 req=r1 api 422 duration=1.50ms | user_email=x - 请求验证失败
//
// 空值、"-"、空集合一律不输出。
type lineEncoder struct {
	*zapcore.MapObjectEncoder
	loc   *time.Location
	quiet map[string]struct{}
}

func NewLineEncoder(cfg LineEncoderConfig) zapcore.Encoder {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	quietList := cfg.QuietComponents
	if quietList == nil {
		quietList = DefaultQuietComponents
	}
	quiet := make(map[string]struct{}, len(quietList))
	for _, c := range quietList {
		quiet[c] = struct{}{}
	}
	return &lineEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder(), loc: loc, quiet: quiet}
}

// TimeEncoder 把时间转换到展示时区后输出，供 JSON 文件编码器复用。
func TimeEncoder(loc *time.Location) zapcore.TimeEncoder {
	if loc == nil {
		loc = time.UTC
	}
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(TimeLayout))
	}
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	return &lineEncoder{MapObjectEncoder: cloneFields(e.MapObjectEncoder), loc: e.loc, quiet: e.quiet}
}

func (e *lineEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	m := cloneFields(e.MapObjectEncoder)
	for _, f := range fields {
		f.AddTo(m)
	}

	buf := linePool.Get()
	buf.AppendString(ent.Time.In(e.loc).Format(TimeLayout))
	buf.AppendString(" | ")
	buf.AppendString(ent.Level.CapitalString())

	parts := make([]string, 0, len(knownFields))
	for _, kf := range knownFields {
		v, ok := m.Fields[kf.key]
		if !ok {
			continue
		}
		delete(m.Fields, kf.key)
		if isEmptyValue(v) {
			continue
		}
		parts = append(parts, renderKnown(kf, v))
	}
	if len(parts) != 0 {
		buf.AppendString(" | ")
		buf.AppendString(strings.Join(parts, " "))
	}

	stack, _ := m.Fields[stackField].(string)
	delete(m.Fields, stackField)
	if extras := renderExtras(m.Fields); extras != "" {
		buf.AppendString(" | ")
		buf.AppendString(extras)
	}

	component, _ := fieldString(e.MapObjectEncoder, fields, FieldComponent)
	if _, quiet := e.quiet[component]; ent.Caller.Defined && !quiet {
		buf.AppendString(" | ")
		buf.AppendString(ent.Caller.TrimmedPath())
	}

	buf.AppendString(" - ")
	buf.AppendString(ent.Message)
	if stack != "" {
		buf.AppendByte('\n')
		buf.AppendString(stack)
	}
	if ent.Stack != "" {
		buf.AppendByte('\n')
		buf.AppendString(ent.Stack)
	}
	buf.AppendString(zapcore.DefaultLineEnding)
	return buf, nil
}

func renderKnown(kf knownField, v any) string {
	if kf.key == FieldDuration {
		return kf.label + "=" + formatMillis(v)
	}
	if kf.label == "" {
		return formatValue(v)
	}
	return kf.label + "=" + formatValue(v)
}

func renderExtras(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if isEmptyValue(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(fields[k]))
	}
	return strings.Join(parts, " ")
}

// formatMillis 统一以 ms 为单位输出耗时；数值类型视为已经是毫秒。
func formatMillis(v any) string {
	switch d := v.(type) {
	case time.Duration:
		return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64) + "ms"
	case float64:
		return strconv.FormatFloat(d, 'f', 2, 64) + "ms"
	default:
		return formatValue(v) + "ms"
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == "" || s == "-"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func fieldString(base *zapcore.MapObjectEncoder, fields []zapcore.Field, key string) (string, bool) {
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i].Key == key && fields[i].Type == zapcore.StringType {
			return fields[i].String, true
		}
	}
	s, ok := base.Fields[key].(string)
	return s, ok
}

func cloneFields(src *zapcore.MapObjectEncoder) *zapcore.MapObjectEncoder {
	m := zapcore.NewMapObjectEncoder()
	for k, v := range src.Fields {
		m.Fields[k] = v
	}
	return m
}
