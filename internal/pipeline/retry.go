package pipeline

import "context"

// AdapterFunc is one external stage call: prior stage output in, next stage
// input out, or an error.
type AdapterFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Retry wraps fn with a bounded attempt count and no backoff. attempts <= 1
// leaves fn unchanged. The wrapper stops early when ctx is done and returns
// the last attempt's error otherwise.
func Retry[In, Out any](attempts int, fn AdapterFunc[In, Out]) AdapterFunc[In, Out] {
	if attempts <= 1 {
		return fn
	}
	return func(ctx context.Context, in In) (Out, error) {
		var out Out
		var err error
		for i := 0; i < attempts; i++ {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			out, err = fn(ctx, in)
			if err == nil {
				return out, nil
			}
		}
		return out, err
	}
}
