package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"licensepurge/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", "--app-name", config.AppName, title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptQuote(message), appleScriptQuote(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("%s").Show($toast)
	`, xmlEscape(title), xmlEscape(message), config.AppName)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// Notifier prints run events to the console and mirrors them as desktop
// notifications when enabled
type Notifier struct {
	sender NotificationSender
	prefs  config.NotificationConfig
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(prefs config.NotificationConfig) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewNotifierWithSender(sender, prefs)
}

// NewNotifierWithSender creates a Notifier that delivers through sender.
// A nil sender only prints.
func NewNotifierWithSender(sender NotificationSender, prefs config.NotificationConfig) *Notifier {
	return &Notifier{sender: sender, prefs: prefs}
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil || !n.prefs.Enabled {
		return
	}
	// notifications are best effort
	_ = n.sender.Send(title, message)
}

// SendNotification prints an informational event and notifies
func (n *Notifier) SendNotification(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError prints a failure event and notifies if on_error is set
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	if n.prefs.OnError {
		n.send(title, message)
	}
}

// SendSuccess prints a completion event and notifies if on_complete is set
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Green(title), Green(message))
	if n.prefs.OnComplete {
		n.send(title, message)
	}
}
