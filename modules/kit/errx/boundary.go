package errx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CodeInvalidRequest 是请求结构校验失败（边界层）的固定错误码。
const CodeInvalidRequest Code = "invalid_request"

const (
	defaultBoundaryMessage = "请求验证失败，请检查输入字段"
	rootField              = "__root__"
)

// 协议层位置标记，出现在字段路径开头时剥离。
var framingMarkers = map[string]struct{}{
	"body":   {},
	"query":  {},
	"path":   {},
	"header": {},
	"form":   {},
	"uri":    {},
}

// FieldError 是单个字段的校验错误。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BoundaryError 表示请求在进入业务逻辑之前（绑定/校验阶段）就失败了。
// 它不属于服务层分类：状态码固定 422，响应体携带逐字段错误。
type BoundaryError struct {
	msg    string
	fields []FieldError
	cause  error
}

// NewBoundary 创建边界错误；传入的字段路径会剥离协议前缀后再保存。
func NewBoundary(msg string, fields ...FieldError) *BoundaryError {
	if msg == "" {
		msg = defaultBoundaryMessage
	}
	out := make([]FieldError, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldError{Field: StripFieldPath(f.Field), Message: f.Message})
	}
	return &BoundaryError{msg: msg, fields: out}
}

func (e *BoundaryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %s", CodeInvalidRequest, e.msg)
	}
	return fmt.Sprintf("%s: %s: %s", CodeInvalidRequest, e.msg, strings.Join(parts, "; "))
}

func (e *BoundaryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *BoundaryError) CodeText() string { return string(CodeInvalidRequest) }

func (e *BoundaryError) Msg() string {
	if e == nil {
		return ""
	}
	return e.msg
}

func (e *BoundaryError) Status() int { return http.StatusUnprocessableEntity }

// Fields 返回字段错误的拷贝。
func (e *BoundaryError) Fields() []FieldError {
	if e == nil || len(e.fields) == 0 {
		return nil
	}
	out := make([]FieldError, len(e.fields))
	copy(out, e.fields)
	return out
}

// Envelope 生成 422 响应体。
func (e *BoundaryError) Envelope() ValidationEnvelope {
	detail := e.Fields()
	if detail == nil {
		detail = []FieldError{}
	}
	return ValidationEnvelope{Code: string(CodeInvalidRequest), Message: e.Msg(), Detail: detail}
}

// ValidationEnvelope 是字段校验失败的响应体。
type ValidationEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Detail  []FieldError `json:"detail"`
}

// StripFieldPath 剥离字段路径的协议前缀：先去掉开头的位置标记（body/query/...），
// 再去掉绑定的请求对象根节点，只保留对客户端有意义的字段路径。
//
//	body.user.email -> email
//	user.email      -> email
//	query.page      -> page
func StripFieldPath(path string) string {
	segs := strings.Split(strings.Trim(strings.TrimSpace(path), "."), ".")
	if _, ok := framingMarkers[strings.ToLower(segs[0])]; ok {
		segs = segs[1:]
	}
	if len(segs) > 1 {
		segs = segs[1:]
	}
	out := strings.Join(segs, ".")
	if out == "" {
		return rootField
	}
	return out
}

// FromBinding 把 gin 绑定阶段的错误转换为 BoundaryError。
//
// validator 的 Namespace 形如 RegisterReq.user.email，根节点是结构体名，
// 由 StripFieldPath 统一剥离。
func FromBinding(err error) *BoundaryError {
	if err == nil {
		return nil
	}
	var be *BoundaryError
	if errors.As(err, &be) {
		return be
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Namespace(), Message: validatorMessage(fe)})
		}
		out := NewBoundary("", fields...)
		out.cause = err
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field != "" {
			// UnmarshalTypeError.Field 不带根节点，补一个占位根节点保持剥离规则一致。
			field = rootField + "." + field
		}
		out := NewBoundary("", FieldError{Field: field, Message: "类型应为 " + typeErr.Type.String()})
		out.cause = err
		return out
	}

	out := NewBoundary("", FieldError{Field: rootField, Message: "请求体格式不合法"})
	out.cause = err
	return out
}

func validatorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "email":
		return "邮箱格式不合法"
	case "min", "gte":
		return "不能小于 " + fe.Param()
	case "max", "lte":
		return "不能大于 " + fe.Param()
	case "gt":
		return "必须大于 " + fe.Param()
	case "lt":
		return "必须小于 " + fe.Param()
	case "oneof":
		return "必须是以下之一: " + fe.Param()
	case "len":
		return "长度必须为 " + fe.Param()
	default:
		return "不满足校验规则 " + fe.Tag()
	}
}
