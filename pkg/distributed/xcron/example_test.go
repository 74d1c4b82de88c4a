package xcron_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xtick/pkg/distributed/xcron"
)

func ExampleParse() {
	s, err := xcron.Parse("0 30 9 * * mon-fri")
	if err != nil {
		fmt.Println(err)
		return
	}
	monday := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	sunday := time.Date(2024, 1, 7, 9, 30, 0, 0, time.UTC)
	fmt.Println(s.Matches(monday), s.Matches(sunday))
	// Output: true false
}

func ExampleParse_error() {
	_, err := xcron.Parse("*/0 * *")
	fmt.Println(errors.Is(err, xcron.ErrInvalidStep))
	// Output: true
}

func ExampleSchedule_NextN() {
	s := xcron.MustParse("12 * *")
	from := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, ts := range s.NextN(from, 2) {
		fmt.Println(ts.Format(time.TimeOnly))
	}
	// Output:
	// 10:00:12
	// 10:01:12
}
