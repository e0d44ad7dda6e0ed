package duffle

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

const homeEnvVar = "DUFFLE_HOME"

// Home returns the duffle home directory: $DUFFLE_HOME when set,
// otherwise ~/.duffle under the current user's home.
func Home() (string, error) {
	if home := os.Getenv(homeEnvVar); home != "" {
		return home, nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("could not get current user: %v", err)
	}
	return filepath.Join(currentUser.HomeDir, ".duffle"), nil
}
