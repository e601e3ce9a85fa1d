package infra

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"
)

// LoginItemLabel names the launchd job and the desktop entry.
const LoginItemLabel = "io.chronos.tracker"

// LaunchAgent plist template (runs as user)
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>{{if .ConfigPath}}
        <string>--config</string>
        <string>{{.ConfigPath}}</string>{{end}}
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogDir}}/chronos.stdout.log</string>

    <key>StandardErrorPath</key>
    <string>{{.LogDir}}/chronos.stderr.log</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>
`

// XDG autostart entry, picked up by freedesktop session managers.
const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=chronos
Comment=Desktop activity tracker
Exec="{{.ExecutablePath}}" run{{if .ConfigPath}} --config "{{.ConfigPath}}"{{end}}
Terminal=false
NoDisplay=true
X-GNOME-Autostart-enabled=true
`

type loginItemConfig struct {
	Label          string
	ExecutablePath string
	ConfigPath     string
	LogDir         string
}

// LoginItem registers the tracker to start with the user's desktop
// session: a LaunchAgent on macOS, an XDG autostart entry on Linux.
type LoginItem struct {
	goos   string
	path   string
	logDir string

	// run executes launchctl; replaced in tests.
	run func(name string, args ...string) error
}

// NewLoginItem creates a login item for the current OS and user.
func NewLoginItem(logDir string) (*LoginItem, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewLoginItemFor(runtime.GOOS, home, logDir)
}

// NewLoginItemFor creates a login item for goos under home.
func NewLoginItemFor(goos, home, logDir string) (*LoginItem, error) {
	item := &LoginItem{
		goos:   goos,
		logDir: logDir,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}

	switch goos {
	case "darwin":
		item.path = filepath.Join(home, "Library", "LaunchAgents", LoginItemLabel+".plist")
	case "linux", "freebsd", "openbsd", "netbsd":
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		item.path = filepath.Join(configHome, "autostart", LoginItemLabel+".desktop")
	default:
		return nil, fmt.Errorf("autostart is not supported on %s", goos)
	}
	return item, nil
}

// Path returns the plist or desktop entry location.
func (l *LoginItem) Path() string {
	return l.path
}

// render creates the login item content for the given exec path.
func (l *LoginItem) render(execPath, configPath string) ([]byte, error) {
	tmplStr := desktopEntryTemplate
	if l.goos == "darwin" {
		tmplStr = launchAgentTemplate
	}

	tmpl, err := template.New("login-item").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse login item template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, loginItemConfig{
		Label:          LoginItemLabel,
		ExecutablePath: execPath,
		ConfigPath:     configPath,
		LogDir:         l.logDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute login item template: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the login item and, on macOS, loads it.
func (l *LoginItem) Install(execPath, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}

	content, err := l.render(execPath, configPath)
	if err != nil {
		return err
	}

	if l.goos == "darwin" && l.IsInstalled() {
		// Ignore errors if not loaded
		_ = l.run("launchctl", "unload", l.path)
	}

	if err := os.WriteFile(l.path, content, 0644); err != nil {
		return err
	}

	if l.goos == "darwin" {
		if err := l.run("launchctl", "load", l.path); err != nil {
			return fmt.Errorf("launchctl load: %w", err)
		}
	}
	return nil
}

// Uninstall unloads and removes the login item. Removing an absent item
// is not an error.
func (l *LoginItem) Uninstall() error {
	if !l.IsInstalled() {
		return nil
	}
	if l.goos == "darwin" {
		_ = l.run("launchctl", "unload", l.path)
	}
	return os.Remove(l.path)
}

// IsInstalled checks if the login item file exists.
func (l *LoginItem) IsInstalled() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// NeedsUpdate reports whether an installed item differs from what Install
// would write now, e.g. after the binary moved.
func (l *LoginItem) NeedsUpdate(execPath, configPath string) bool {
	if !l.IsInstalled() {
		return false
	}

	current, err := os.ReadFile(l.path)
	if err != nil {
		return true
	}
	expected, err := l.render(execPath, configPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}
