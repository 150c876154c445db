// Package agent resolves the identity this process uses when claiming and
// locking tasks.
package agent

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
)

// EnvAgentID is the environment variable that pins an agent identity, as set
// by container provisioning.
const EnvAgentID = "FLEET_AGENT_ID"

// idRE constrains agent ids so they survive as filenames and log fields.
var idRE = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9@._-]{0,63}$`)

// Validate rejects agent ids that cannot safely appear in lock records.
func Validate(id string) error {
	if !idRE.MatchString(id) {
		return fmt.Errorf("invalid agent id %q (must match %s)", id, idRE.String())
	}
	return nil
}

// ResolveID returns the agent identity: the explicit override if given,
// else EnvAgentID, else user@hostname.
func ResolveID(override string) (string, error) {
	id := override
	if id == "" {
		id = os.Getenv(EnvAgentID)
	}
	if id == "" {
		id = defaultID()
	}
	if err := Validate(id); err != nil {
		return "", err
	}
	return id, nil
}

func defaultID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	username := "agent"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	return fmt.Sprintf("%s@%s", username, hostname)
}
