/*
Package resilience provides a circuit breaker for calls into flaky dependencies.

The shell runtime guards PTY spawns with it: when the host keeps refusing to
start processes, attaches fail fast with ErrCircuitOpen instead of forking
again on every browser reconnect.

# Usage

	breaker := resilience.New("pty-spawn", resilience.Settings{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	})

	err := breaker.Do(func() error {
		return start()
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                 ^                      |
	                                 +------[failure]-------+
*/
package resilience
