package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDrain_OrderAcrossProducers(t *testing.T) {
	q, _ := New[string](Options{})
	ctx := context.Background()

	// Two producers push in a fixed interleaving; the consumer must see
	// that exact order and never overlap two handlers.
	var order []string
	var active, overlaps int
	var mu sync.Mutex

	handle := func(_ context.Context, item string) {
		mu.Lock()
		active++
		if active > 1 {
			overlaps++
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		order = append(order, item)
		active--
		mu.Unlock()
	}

	done := make(chan error, 1)
	go func() { done <- Drain(ctx, q, handle, nil) }()

	var want []string
	for i := 0; i < 10; i++ {
		producer := "a"
		if i%2 == 1 {
			producer = "b"
		}
		item := fmt.Sprintf("%s%d", producer, i)
		want = append(want, item)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Push(ctx, item); err != nil {
				t.Errorf("Push(%s) error = %v", item, err)
			}
		}()
		wg.Wait()
	}

	q.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Drain() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Drain() did not return after Close")
	}

	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if overlaps != 0 {
		t.Errorf("handlers overlapped %d times", overlaps)
	}
}

func TestDrain_RecoversPanics(t *testing.T) {
	q, _ := New[int](Options{})
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_ = q.Push(ctx, i)
	}
	q.Close()

	var handled []int
	var panicked []int
	err := Drain(ctx, q, func(_ context.Context, v int) {
		if v == 2 {
			panic("bad frame")
		}
		handled = append(handled, v)
	}, func(v int, r any) {
		panicked = append(panicked, v)
		if r != "bad frame" {
			t.Errorf("recovered = %v, want %q", r, "bad frame")
		}
	})

	if err != nil {
		t.Errorf("Drain() error = %v", err)
	}
	if fmt.Sprint(handled) != "[1 3]" {
		t.Errorf("handled = %v, want [1 3]", handled)
	}
	if fmt.Sprint(panicked) != "[2]" {
		t.Errorf("panicked = %v, want [2]", panicked)
	}
}

func TestDrain_ContextCancel(t *testing.T) {
	q, _ := New[int](Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Drain(ctx, q, func(context.Context, int) {}, nil) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Drain() error = %v, want %v", err, context.Canceled)
		}
	case <-time.After(time.Second):
		t.Fatal("Drain() did not return after cancel")
	}
}
