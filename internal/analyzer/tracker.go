package analyzer

import (
	"strings"
	"sync"
)

// AlertTracker is the edge-triggered scene state for one camera session.
// It fires only on the safe->unsafe transition, never while the condition
// merely persists. Each stream session owns its own tracker.
type AlertTracker struct {
	mu     sync.Mutex
	unsafe bool
}

func NewAlertTracker() *AlertTracker {
	return &AlertTracker{}
}

// Observe feeds one frame's outcome into the tracker and reports whether
// an alert should fire.
func (t *AlertTracker) Observe(unsafeDetected bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if unsafeDetected && !t.unsafe {
		t.unsafe = true
		return true
	}
	if !unsafeDetected && t.unsafe {
		t.unsafe = false
	}
	return false
}

// Unsafe reports the current scene state.
func (t *AlertTracker) Unsafe() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsafe
}

var arabicItemNames = map[string]string{
	"mask":    "الكمامة",
	"gloves":  "القفازات",
	"labcoat": "المعطف",
	"glasses": "النظارات",
}

// VoiceAlertText builds the spoken announcement naming the missing PPE
// items, in Arabic as the deployment's announcements are.
func VoiceAlertText(missing []string) string {
	names := make([]string, 0, len(missing))
	for _, item := range missing {
		if ar, ok := arabicItemNames[item]; ok {
			names = append(names, ar)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "لم يتم ارتداء " + strings.Join(names, " و ")
}
