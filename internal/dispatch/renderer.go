package dispatch

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/models"
)

// Section is one alert of a notification with its related records fetched up front
type Section struct {
	Alert   *models.Alert
	Device  *models.Device
	Reading *models.Reading
}

type sectionView struct {
	DeviceID    string
	Location    string
	DetectedAt  string
	Score       string
	Label       string
	Diagnostics []Diagnostic
	Note        string
}

type notificationView struct {
	Title        string
	Heading      string
	Color        string
	Background   string
	Icon         string
	GeneratedAt  string
	Count        int
	Sections     []sectionView
	DashboardURL string
}

var notificationTemplate = template.Must(template.New("notification").Parse(`<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 800px; margin: 0 auto; padding: 20px; }
.section { margin-bottom: 25px; border: 1px solid {{.Color}}; padding: 15px; border-radius: 5px; }
.advice { background-color: {{.Background}}; border-left: 4px solid {{.Color}}; padding: 15px; margin: 20px 0; }
.flagged { color: {{.Color}}; }
.normal { color: #28a745; }
</style>
</head>
<body>
<div class="container">
<h1 style="color: {{.Color}};">{{.Heading}}</h1>
<p>As of <strong>{{.GeneratedAt}}</strong>, {{.Count}} monitoring sensor(s) are predicted to exceed water quality standards.</p>
{{range .Sections}}
<div class="section">
<h3 style="color: {{$.Color}}; margin-top: 0;">{{$.Icon}} Sensor {{.DeviceID}}</h3>
<p><strong>Location:</strong> {{.Location}}<br>
<strong>Detected at:</strong> {{.DetectedAt}}<br>
<strong>Predicted index:</strong> {{.Score}} ({{.Label}})</p>
<div style="margin-left: 20px;">
{{range .Diagnostics}}<strong>{{.Metric}}:</strong> <span class="{{if .Flagged}}flagged{{else}}normal{{end}}">{{.Value}}</span>{{if .Standard}} (standard: {{.Standard}}){{end}}{{if .Status}} &rarr; {{.Status}}{{end}}<br>
{{end}}{{if .Note}}<strong>{{.Note}}</strong>{{end}}
</div>
</div>
{{end}}
<div class="advice">
<h3 style="margin-top: 0;">Recommended actions</h3>
<ul>
<li>Inspect the affected sites and run additional water quality tests.</li>
<li>Notify residents and related agencies in advance where needed.</li>
</ul>
</div>
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">Open the detailed prediction report</a></p>{{end}}
<p style="color: #6c757d; font-size: 13px;">This message was sent automatically by the water quality monitoring system.</p>
</div>
</body>
</html>
`))

// Renderer builds one HTML notification per sweep
type Renderer struct {
	dashboardURL string
}

func NewRenderer(dashboardURL string) *Renderer {
	return &Renderer{dashboardURL: dashboardURL}
}

// Render returns the subject and HTML body for the sections of one sweep
func (r *Renderer) Render(severity models.Severity, sections []Section, now time.Time) (string, string, error) {
	view := notificationView{
		GeneratedAt:  now.Format("2006-01-02 15:04"),
		Count:        len(sections),
		DashboardURL: r.dashboardURL,
	}

	var subject string
	if severity == models.SeverityCritical {
		subject = fmt.Sprintf("[URGENT] Water pollution detected - %d sensor(s) (%s)", len(sections), now.Format("01-02 15:04"))
		view.Heading = "Water pollution alert: pollution index expected to rise"
		view.Color, view.Background, view.Icon = "#dc3545", "#f8d7da", "🔴"
	} else {
		subject = fmt.Sprintf("[CAUTION] Water quality advisory - %d sensor(s) (%s)", len(sections), now.Format("01-02 15:04"))
		view.Heading = "Water quality advisory: pollution index may rise"
		view.Color, view.Background, view.Icon = "#ffc107", "#fff3cd", "🟡"
	}
	view.Title = subject

	for _, s := range sections {
		view.Sections = append(view.Sections, buildSection(severity, s))
	}

	var buf bytes.Buffer
	if err := notificationTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render notification: %w", err)
	}
	return subject, buf.String(), nil
}

func buildSection(severity models.Severity, s Section) sectionView {
	v := sectionView{
		DeviceID:   s.Alert.DeviceID,
		Location:   s.Device.DisplayLocation(),
		DetectedAt: s.Alert.DetectedAt.Format("2006-01-02 15:04"),
		Score:      fmt.Sprintf("%.1f", s.Alert.Score),
		Label:      s.Alert.PredictionLabel,
	}

	if s.Reading == nil {
		v.Note = "No measurement data found."
		return v
	}

	v.Diagnostics = Diagnose(severity, s.Reading)
	if severity != models.SeverityCritical && !anyFlagged(v.Diagnostics) {
		v.Note = "No advisory-band metrics detected."
	}
	return v
}

func anyFlagged(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Flagged {
			return true
		}
	}
	return false
}
