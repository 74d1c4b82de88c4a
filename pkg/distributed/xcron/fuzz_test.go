package xcron

import (
	"testing"
	"time"
)

func FuzzParse(f *testing.F) {
	seeds := []string{
		"*/5 * *",
		"12 * *",
		"0 30 9 * * mon-fri",
		"0 0 0 1 Jan,March,dec *",
		"1-2,3 4 5 6 7 1",
		"*/0 * *",
		"",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.Fuzz(func(t *testing.T, expr string) {
		s, err := Parse(expr)
		if err != nil {
			return
		}
		// 规范化后的表达式必须能再次解析，且语义一致
		again, err := Parse(s.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", s.String(), err)
		}
		if s.Matches(at) != again.Matches(at) {
			t.Fatalf("reparse of %q changed semantics", expr)
		}
		_ = s.Next(at)
	})
}
