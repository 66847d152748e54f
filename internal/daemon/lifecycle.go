package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// SystemdNotify informs systemd of readiness/status transitions when the
// process was started as a systemd unit (NOTIFY_SOCKET set); a no-op
// otherwise.
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}
	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}
	exec.Command("systemd-notify", args...).Run()
}
