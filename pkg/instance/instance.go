package instance

import "github.com/angelmondragon/shopnearby-backend/pkg/env"

// ID names the running process in logs: the platform dyno, then the host
// name, then "local".
func ID() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := env.Get(key, ""); id != "" {
			return id
		}
	}
	return "local"
}
