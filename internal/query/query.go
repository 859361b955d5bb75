package query

import (
	"context"
	"fmt"
	"time"
)

// ErrorColumn is the single column of a failed execution's result.
const ErrorColumn = "Error"

type Row map[string]any

type Result struct {
	Columns  []string
	Rows     []Row
	Failed   bool
	Duration time.Duration
}

type Engine interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}

func ErrorResult(err error) Result {
	message := "query execution failed"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return Result{
		Columns: []string{ErrorColumn},
		Rows:    []Row{{ErrorColumn: message}},
		Failed:  true,
	}
}

// Run executes sqlText on engine and never fails: any error, including a
// panic inside the driver, comes back as a one-row result holding the
// message under ErrorColumn.
func Run(ctx context.Context, engine Engine, sqlText string) (result Result) {
	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			result = ErrorResult(fmt.Errorf("query execution panicked: %v", recovered))
		}
		result.Duration = time.Since(start)
	}()

	if engine == nil {
		return ErrorResult(fmt.Errorf("query engine is not configured"))
	}
	executed, err := engine.Execute(ctx, sqlText)
	if err != nil {
		return ErrorResult(err)
	}
	return executed
}
