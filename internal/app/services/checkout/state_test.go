package checkout

import (
	"encoding/json"
	"testing"
)

func TestStatus_StringRoundTrip(t *testing.T) {
	for _, status := range []Status{StatusIdle, StatusReconciling, StatusSubmitted, StatusFailed} {
		if got := ParseStatus(status.String()); got != status {
			t.Errorf("ParseStatus(%q) = %v, want %v", status.String(), got, status)
		}
	}
	if got := ParseStatus("nonsense"); got != StatusIdle {
		t.Errorf("unknown status parsed as %v, want idle", got)
	}
}

func TestStatus_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(StatusReconciling)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"reconciling"` {
		t.Fatalf("marshal = %s", data)
	}
	var got Status
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != StatusReconciling {
		t.Fatalf("round trip = %v", got)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusIdle, StatusReconciling},
		{StatusReconciling, StatusSubmitted},
		{StatusReconciling, StatusFailed},
		{StatusFailed, StatusReconciling},
		{StatusSubmitted, StatusReconciling},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusIdle, StatusSubmitted},
		{StatusIdle, StatusFailed},
		{StatusReconciling, StatusReconciling},
		{StatusFailed, StatusSubmitted},
		{StatusSubmitted, StatusFailed},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be denied", tr.from, tr.to)
		}
	}
}

func TestTransitionError_Message(t *testing.T) {
	err := TransitionError{From: StatusIdle, To: StatusSubmitted}
	want := "invalid checkout transition: idle -> submitted"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}
