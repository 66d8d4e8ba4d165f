package order

import "testing"

func TestOrderFillLifecycle(t *testing.T) {
	o := New(1, "AAPL", SideBuy, TypeLimit, 100, 50)
	if o.Status != StatusPending {
		t.Fatalf("expected PENDING got %s", o.Status)
	}
	if !o.IsActive() {
		t.Fatal("new order should be active")
	}

	o.Fill(20)
	if o.Status != StatusPartial {
		t.Fatalf("expected PARTIALLY_FILLED got %s", o.Status)
	}
	if o.RemainingQty() != 30 {
		t.Fatalf("expected remaining 30 got %f", o.RemainingQty())
	}

	o.Fill(30)
	if o.Status != StatusFilled {
		t.Fatalf("expected FILLED got %s", o.Status)
	}
	if o.IsActive() {
		t.Fatal("filled order should not be active")
	}
}

func TestOrderFillIgnoresInvalidQty(t *testing.T) {
	o := New(2, "AAPL", SideSell, TypeLimit, 100, 50)

	o.Fill(0)
	o.Fill(-5)
	o.Fill(100) // 超过剩余数量
	if o.FilledQty != 0 || o.Status != StatusPending {
		t.Fatalf("invalid fills should be ignored, got filled=%f status=%s", o.FilledQty, o.Status)
	}
}

func TestOrderCancel(t *testing.T) {
	o := New(3, "AAPL", SideBuy, TypeLimit, 100, 50)
	o.Cancel()
	if o.Status != StatusCancelled {
		t.Fatalf("expected CANCELLED got %s", o.Status)
	}

	// 终态订单不能再被成交或取消
	o.Fill(10)
	if o.FilledQty != 0 {
		t.Fatal("cancelled order must not fill")
	}

	f := New(4, "AAPL", SideBuy, TypeLimit, 100, 50)
	f.Fill(50)
	f.Cancel()
	if f.Status != StatusFilled {
		t.Fatalf("cancel on filled order must be a no-op, got %s", f.Status)
	}
}

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"pending to partial", StatusPending, StatusPartial, false},
		{"pending to filled", StatusPending, StatusFilled, false},
		{"pending to cancelled", StatusPending, StatusCancelled, false},
		{"pending to rejected", StatusPending, StatusRejected, false},
		{"partial to filled", StatusPartial, StatusFilled, false},
		{"partial to cancelled", StatusPartial, StatusCancelled, false},
		{"same state idempotent", StatusFilled, StatusFilled, false},
		{"filled is terminal", StatusFilled, StatusPending, true},
		{"cancelled is terminal", StatusCancelled, StatusPartial, true},
		{"rejected is terminal", StatusRejected, StatusPending, true},
		{"partial back to pending", StatusPartial, StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%s, %s) err=%v wantErr=%v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestStateMachineClassification(t *testing.T) {
	sm := NewStateMachine()
	for _, s := range []Status{StatusFilled, StatusCancelled, StatusRejected} {
		if !sm.IsFinalState(s) {
			t.Errorf("%s should be final", s)
		}
		if sm.IsActiveState(s) {
			t.Errorf("%s should not be active", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusPartial} {
		if sm.IsFinalState(s) {
			t.Errorf("%s should not be final", s)
		}
		if !sm.IsActiveState(s) {
			t.Errorf("%s should be active", s)
		}
	}
}
