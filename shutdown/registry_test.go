package shutdown

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestRegistry_RunsInPriorityOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	add := func(name string, priority int) {
		r.Register(name, priority, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	add("database", PriorityStorage)
	add("http server", PriorityServer)
	add("history", PriorityHistory)
	add("tickers", PriorityBackground)
	add("scheduler", PriorityBackground)

	want := []string{"http server", "tickers", "scheduler", "history", "database"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	if errs := r.Run(context.Background()); len(errs) != 0 {
		t.Fatalf("Run() errors = %v", errs)
	}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("run order = %v, want %v", order, want)
	}
}

func TestRegistry_CollectsErrorsAndContinues(t *testing.T) {
	r := NewRegistry()
	ran := 0
	r.Register("first", 1, func(context.Context) error { ran++; return errors.New("boom") })
	r.Register("second", 2, func(context.Context) error { ran++; return nil })
	r.Register("third", 3, func(context.Context) error { ran++; return errors.New("bang") })

	errs := r.Run(context.Background())
	if ran != 3 {
		t.Errorf("ran %d hooks, want 3", ran)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2", len(errs))
	}
	if !strings.HasPrefix(errs[0].Error(), "first: ") || !strings.HasPrefix(errs[1].Error(), "third: ") {
		t.Errorf("errors not prefixed with hook names: %v", errs)
	}
}

func TestRegistry_RunOnce(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register("once", 1, func(context.Context) error { calls++; return nil })

	r.Run(context.Background())
	r.Run(context.Background())
	r.Register("late", 1, func(context.Context) error { calls++; return nil })
	r.Run(context.Background())

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1 (late registration ignored)", r.Count())
	}
}

func TestRegistry_PassesContext(t *testing.T) {
	r := NewRegistry()
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var got any
	r.Register("ctx", 1, func(ctx context.Context) error {
		got = ctx.Value(key{})
		return nil
	})
	r.Run(ctx)

	if got != "v" {
		t.Errorf("hook saw %v, want the caller's context", got)
	}
}
