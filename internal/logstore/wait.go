package logstore

import "time"

func (s *Storage) notify() {
	s.notifyMu.Lock()
	close(s.notifyCh)
	s.notifyCh = make(chan struct{})
	s.notifyMu.Unlock()
}

func (s *Storage) closeWaiters() {
	s.closeMu.Do(func() { close(s.closedCh) })
}

// WaitForLogs blocks until a put commits, the storage shuts down or timeout
// elapses. It returns true only when woken by a put. A timeout <= 0 waits
// without limit.
func (s *Storage) WaitForLogs(timeout time.Duration) bool {
	s.notifyMu.Lock()
	ch := s.notifyCh
	s.notifyMu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ch:
		return true
	case <-s.closedCh:
		return false
	case <-expired:
		return false
	}
}
