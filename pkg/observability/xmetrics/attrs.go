package xmetrics

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Attr 观测属性，与 OTel 的 KeyValue 相同，可直接传给 span。
type Attr = attribute.KeyValue

func String(key, value string) Attr { return attribute.String(key, value) }

func Bool(key string, value bool) Attr { return attribute.Bool(key, value) }

func Int(key string, value int) Attr { return attribute.Int(key, value) }

// Duration 以毫秒记录，key 建议带 _ms 后缀。
func Duration(key string, value time.Duration) Attr {
	return attribute.Int64(key, value.Milliseconds())
}

// validAttrs 过滤空 key 与零值 Attr。
func validAttrs(attrs []Attr) []Attr {
	out := attrs[:0:0]
	for _, a := range attrs {
		if a.Valid() {
			out = append(out, a)
		}
	}
	return out
}
