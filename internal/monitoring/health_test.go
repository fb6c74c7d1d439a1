package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnknownBeforeFirstHeartbeat(t *testing.T) {
	m := NewHealthMonitor()
	assert.Equal(t, StatusUnknown, m.GetStatus("trader"))
}

func TestHealthyAfterHeartbeatNoErrors(t *testing.T) {
	m := NewHealthMonitor()
	m.RecordHeartbeat("trader")
	assert.Equal(t, StatusHealthy, m.GetStatus("trader"))
}

func TestWarningAfterOneRecentError(t *testing.T) {
	m := NewHealthMonitor()
	m.RecordHeartbeat("trader")
	m.RecordError("trader", "boom")
	assert.Equal(t, StatusWarning, m.GetStatus("trader"))
}

func TestErrorAfterFiveRecentErrors(t *testing.T) {
	m := NewHealthMonitor()
	m.RecordHeartbeat("trader")
	for i := 0; i < 5; i++ {
		m.RecordError("trader", "boom")
	}
	assert.Equal(t, StatusError, m.GetStatus("trader"))
}

func TestStaleAfterMissedHeartbeatWindow(t *testing.T) {
	m := NewHealthMonitor()
	m.staleThreshold = 10 * time.Millisecond
	m.RecordHeartbeat("trader")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusStale, m.GetStatus("trader"))
}
