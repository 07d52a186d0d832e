package clock

import "time"

// Clock provides time to the application.
// Services never call time.Now directly so tests can control timestamps such as joinedAt.
type Clock interface {
	Now() time.Time
}
