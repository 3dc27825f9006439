package runloop

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t float64 }

func (c *fakeClock) Now() float64 { return c.t }

func TestAtNeverFiresEarly(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	fired := -1.0
	l.At(1.0, func() { fired = clk.t })

	for _, now := range []float64{0.5, 0.999} {
		clk.t = now
		l.RunDue()
		if fired >= 0 {
			t.Fatalf("At(1.0) fired at %v", now)
		}
	}
	clk.t = 1.02
	l.RunDue()
	if fired != 1.02 {
		t.Fatalf("At(1.0) fired at %v, want first pass after 1.0 (1.02)", fired)
	}
	clk.t = 2
	fired = -1
	l.RunDue()
	if fired >= 0 {
		t.Fatalf("one-shot timer fired twice")
	}
}

func TestEveryKeepsCadenceWithoutCatchUp(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	count := 0
	timer := l.Every(0.025, func() { count++ })

	for i := 1; i <= 4; i++ {
		clk.t = float64(i)*0.025 + 1e-9
		l.RunDue()
	}
	if count != 4 {
		t.Fatalf("count = %d after 4 cadences, want 4", count)
	}

	// a long stall runs the timer once, not once per missed interval
	clk.t = 5
	l.RunDue()
	if count != 5 {
		t.Fatalf("count = %d after stall, want 5", count)
	}
	if got, want := timer.Due(), 5.025; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("next due = %v, want %v", got, want)
	}
}

func TestStopCancelsTimer(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	count := 0
	timer := l.Every(0.01, func() { count++ })
	if !timer.Stop() {
		t.Fatalf("Stop on active timer returned false")
	}
	if timer.Stop() {
		t.Fatalf("second Stop returned true")
	}
	clk.t = 1
	l.RunDue()
	if count != 0 || l.Pending() != 0 {
		t.Fatalf("stopped timer ran (count=%d pending=%d)", count, l.Pending())
	}
}

func TestTimerCanStopItself(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	count := 0
	var timer *Timer
	timer = l.Every(0.1, func() {
		count++
		if count == 2 {
			timer.Stop()
		}
	})
	for i := 1; i <= 5; i++ {
		clk.t = float64(i)*0.1 + 1e-9
		l.RunDue()
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestTimersRunInDueOrder(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	var order []int
	l.At(0.3, func() { order = append(order, 3) })
	l.At(0.1, func() { order = append(order, 1) })
	l.At(0.2, func() { order = append(order, 2) })
	l.At(0.1, func() { order = append(order, 4) })
	clk.t = 1
	l.RunDue()
	want := []int{1, 4, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestPostedTasksRunBeforeTimers(t *testing.T) {
	clk := &fakeClock{t: 1}
	l := New(clk)
	var order []string
	l.At(0.5, func() { order = append(order, "timer") })
	l.Post(func() { order = append(order, "task") })
	l.RunDue()
	if len(order) != 2 || order[0] != "task" || order[1] != "timer" {
		t.Fatalf("order = %v", order)
	}
}

func TestCallRunsOnLoop(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	l.Resolution = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	ran := false
	if err := l.Call(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !ran {
		t.Fatalf("Call returned before fn ran")
	}
	cancel()
	<-done
	if err := l.Call(context.Background(), func() {}); err != ErrClosed {
		t.Fatalf("Call after close = %v, want ErrClosed", err)
	}
}

func TestCallAcceptedDuringShutdownStillRuns(t *testing.T) {
	clk := &fakeClock{}
	l := New(clk)
	l.Resolution = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	// hold the loop inside a task that has already cancelled it
	started := make(chan struct{})
	release := make(chan struct{})
	l.Post(func() {
		cancel()
		close(started)
		<-release
	})
	<-started

	ran := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- l.Call(context.Background(), func() { close(ran) })
	}()
	for {
		l.mu.Lock()
		queued := len(l.posted)
		l.mu.Unlock()
		if queued > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Call = %v, want nil once accepted", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Call still blocked after the loop stopped")
	}
	<-ran
	<-done
}
