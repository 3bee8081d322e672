package chat

import "time"

// SetClock fija el reloj del caso de uso.
func SetClock(uc *UseCase, now func() time.Time) { uc.now = now }

// TrackedUsers cantidad de limitadores vivos.
func TrackedUsers(uc *UseCase) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.limiters)
}
