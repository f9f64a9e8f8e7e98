// Package daemon manages the launchd LaunchAgent that runs `veiled run` on
// a daily schedule. Everything here shells out to launchctl; failures carry
// launchctl's stderr so the user sees what the OS said.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Label identifies the LaunchAgent.
const Label = "com.veiled.agent"

func uid() int {
	return os.Getuid()
}

func domainTarget() string {
	return fmt.Sprintf("gui/%d", uid())
}

func serviceTarget() string {
	return fmt.Sprintf("gui/%d/%s", uid(), Label)
}

// PlistPath returns the LaunchAgent plist location for the current user.
func PlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
}

func logDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".config", "veiled"), nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// GeneratePlist renders the LaunchAgent plist for the given binary. The
// agent fires `run` daily at 03:00 and never at load time.
func GeneratePlist(binaryPath string) (string, error) {
	logs, err := logDir()
	if err != nil {
		return "", err
	}

	const tmpl = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>run</string>
    </array>
    <key>StartCalendarInterval</key>
    <dict>
        <key>Hour</key>
        <integer>3</integer>
        <key>Minute</key>
        <integer>0</integer>
    </dict>
    <key>RunAtLoad</key>
    <false/>
    <key>StandardOutPath</key>
    <string>%s/stdout.log</string>
    <key>StandardErrorPath</key>
    <string>%s/stderr.log</string>
</dict>
</plist>
`
	binary := xmlEscaper.Replace(binaryPath)
	log := xmlEscaper.Replace(logs)
	return fmt.Sprintf(tmpl, Label, binary, log, log), nil
}

// IsInstalled reports whether the LaunchAgent plist is present.
func IsInstalled() (bool, error) {
	path, err := PlistPath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// IsRunning reports whether launchd currently knows the service.
func IsRunning() bool {
	return exec.Command("launchctl", "print", serviceTarget()).Run() == nil
}

// Install writes the plist and bootstraps it into the user's gui domain.
// A failed bootstrap removes the plist again so a retry starts clean.
func Install(plistContent string) error {
	path, err := PlistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}
	logs, err := logDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logs, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(plistContent), 0o644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}

	if err := launchctl("bootstrap", domainTarget(), path); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Uninstall boots the service out and removes the plist. Bootout of a
// service launchd does not know is not an error.
func Uninstall() error {
	if err := launchctl("bootout", serviceTarget()); err != nil && IsRunning() {
		return err
	}

	path, err := PlistPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing plist: %w", err)
	}
	return nil
}

// Kickstart triggers an immediate run of the scheduled service.
func Kickstart() error {
	return launchctl("kickstart", serviceTarget())
}

// Restart boots the service out and back in, picking up a replaced binary.
func Restart() error {
	path, err := PlistPath()
	if err != nil {
		return err
	}
	_ = launchctl("bootout", serviceTarget())
	return launchctl("bootstrap", domainTarget(), path)
}

func launchctl(args ...string) error {
	out, err := exec.Command("launchctl", args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("launchctl %s: %s", args[0], msg)
	}
	return nil
}
