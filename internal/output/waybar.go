package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sdpower/copilot-usage/internal/types"
)

const (
	CopilotIcon  = "\uf4b8"
	CopilotColor = "#8b5cf6"
	TimeIcon     = "\U000f051a"
	ErrorColor   = "#ff5555"

	ClassCritical = "critical"

	LabelNoToken   = "No Token"
	LabelAuthError = "Auth Err"
	LabelNetError  = "Net Err"
	LabelFmtError  = "Fmt Err"
	LabelCfgError  = "Cfg Err"
)

// WaybarPayload is the JSON object a Waybar custom module reads.
// Percentage is omitted on error payloads.
type WaybarPayload struct {
	Text       string `json:"text"`
	Tooltip    string `json:"tooltip"`
	Class      string `json:"class"`
	Percentage *int   `json:"percentage,omitempty"`
}

func styled(color, s string) string {
	return fmt.Sprintf("<span foreground='%s' size='large'>%s</span>", color, s)
}

// templateVars are the values available to --format / --tooltip-format.
func templateVars(view types.StatusView) map[string]string {
	return map[string]string{
		"icon":            styled(CopilotColor, CopilotIcon+" "),
		"icon_plain":      CopilotIcon,
		"time_icon":       styled(CopilotColor, TimeIcon),
		"time_icon_plain": TimeIcon,
		"used":            view.UsedLabel,
		"used_str":        view.UsedLabel,
		"quota":           strconv.Itoa(view.Quota),
		"pct":             strconv.Itoa(view.DisplayPercentage),
		"reset":           view.ResetLabel,
	}
}

// Waybar builds the payload for view. Percentages are clamped here.
func (f *Formatter) Waybar(view types.StatusView) WaybarPayload {
	vars := templateVars(view)

	var text, tooltip string
	if f.text != nil {
		text = f.text.Execute(vars)
	} else {
		text = fmt.Sprintf("%s%d%% %s %s", vars["icon"], view.DisplayPercentage, vars["time_icon"], view.ResetLabel)
	}
	if f.tooltip != nil {
		tooltip = f.tooltip.Execute(vars)
	} else {
		tooltip = fmt.Sprintf("GitHub Copilot Premium Requests\n"+
			"━━━━━━━━━━━━━━━━━━━━━━━━\n"+
			"Used:   %s / %d (%d%%)\n"+
			"Reset:  %s (next month)\n"+
			"\nClick to Refresh",
			view.UsedLabel, view.Quota, view.DisplayPercentage, view.ResetLabel)
	}

	pct := view.DisplayPercentage
	return WaybarPayload{
		Text:       text,
		Tooltip:    tooltip,
		Class:      "copilot-" + string(view.Tier),
		Percentage: &pct,
	}
}

// ErrorPayload renders a critical payload with a short label in the bar
// and the details in the tooltip.
func ErrorPayload(label, tooltip string) WaybarPayload {
	return WaybarPayload{
		Text:    fmt.Sprintf("<span foreground='%s'>%s %s</span>", ErrorColor, CopilotIcon, label),
		Tooltip: tooltip,
		Class:   ClassCritical,
	}
}

func MissingTokenPayload(configPath string) WaybarPayload {
	return ErrorPayload(LabelNoToken, fmt.Sprintf("No GITHUB_TOKEN found in %s\n"+
		"Create the file with:\n"+
		"GITHUB_TOKEN=ghp_xxxxx\n"+
		"COPILOT_QUOTA=300", configPath))
}

func FetchErrorPayload(err error) WaybarPayload {
	return ErrorPayload(ClassifyFailure(err), "Error fetching Copilot usage:\n"+err.Error())
}

// ClassifyFailure maps an error to the short bar label: a 401 or 403
// status is an auth problem, anything else is network. Errors that carry
// no types.RemoteError are classified by the status markers in their
// text.
func ClassifyFailure(err error) string {
	var remote types.RemoteError
	if errors.As(err, &remote) {
		if remote.StatusCode == http.StatusUnauthorized || remote.StatusCode == http.StatusForbidden {
			return LabelAuthError
		}
		return LabelNetError
	}
	msg := err.Error()
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return LabelAuthError
	}
	return LabelNetError
}

// EncodeWaybar returns p as a single JSON line without a trailing newline.
func EncodeWaybar(p WaybarPayload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
