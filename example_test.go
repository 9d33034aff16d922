package onceflight_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prasastio/onceflight"
)

func ExampleDo() {
	exec := onceflight.New()

	val, err := onceflight.Do(context.Background(), exec, "greeting", func(ctx context.Context) (string, error) {
		return "hello", nil
	})
	fmt.Println(val, err)
	// Output: hello <nil>
}

func ExampleDo_retries() {
	exec := onceflight.New()

	attempts := 0
	val, err := onceflight.Do(context.Background(), exec, "flaky", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	},
		onceflight.WithRetries(3),
		onceflight.WithRetryDelay(time.Millisecond),
		onceflight.WithMaxRetryDelay(5*time.Millisecond),
	)
	fmt.Println(val, err, attempts)
	// Output: 42 <nil> 3
}

func ExampleExecutor_Stats() {
	exec := onceflight.New()

	onceflight.Do(context.Background(), exec, "warm", func(ctx context.Context) (string, error) {
		return "done", nil
	})

	stats := exec.Stats()
	fmt.Println(stats.InFlight)
	// Output: 0
}
