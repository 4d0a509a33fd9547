package server

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/twil3akine/gurobilab/internal/logging"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(templateFuncs).Parse(dashboardTemplate))

// handleDashboard serves the main dashboard HTML page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()

	data := DashboardData{
		Title:    "gurobilab",
		Version:  version,
		Uptime:   s.Uptime(),
		Session:  snap,
		Busy:     snap.Status.Busy(),
		Chart:    buildChart(snap.Samples, chartWidth, chartHeight),
		History:  summarize(s.history.Load(), 0),
		Settings: s.settings.Current().Masked(),
		Flash:    r.URL.Query().Get("flash"),
	}
	if s.schedules != nil {
		data.Schedules = s.schedules.List()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("failed to render dashboard template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleDashboardAction backs the dashboard's plain HTML forms. It performs
// the action and redirects back, carrying any rejection as a flash message.
func (s *Server) handleDashboardAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	var err error
	switch r.PathValue("action") {
	case "start":
		if focus := r.FormValue("focus"); focus != "" {
			s.session.SetFocus(focus)
		}
		err = s.session.Start(s.baseContext(), r.FormValue("script"), r.FormValue("args"))
	case "cancel":
		err = s.session.Cancel()
	case "analyze":
		if focus := r.FormValue("focus"); focus != "" {
			s.session.SetFocus(focus)
		}
		ctx := s.baseContext()
		go func() {
			if err := s.session.AskAI(ctx); err != nil {
				s.logger.Warn("analysis rejected", "error", err)
			}
		}()
	case "preview":
		err = s.session.TogglePreview(r.Context())
	case "restore":
		var idx int
		idx, err = strconv.Atoi(r.FormValue("index"))
		if err == nil {
			rec, ok := s.history.Get(idx)
			if !ok {
				err = errors.New("history entry not found")
			} else {
				err = s.session.Restore(rec)
			}
		}
	case "clear":
		if r.FormValue("confirm") != "yes" {
			err = errors.New("type yes to confirm clearing the history")
		} else {
			err = s.history.Clear()
		}
	default:
		http.NotFound(w, r)
		return
	}

	target := "/"
	if err != nil {
		target += "?flash=" + url.QueryEscape(err.Error())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "N/A"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	},
	"statusBadge": func(label string, busy bool) template.HTML {
		class := "badge-secondary"
		switch {
		case busy:
			class = "badge-info"
		case label == "Error":
			class = "badge-danger"
		}
		return template.HTML(`<span class="badge ` + class + `">` + template.HTMLEscapeString(label) + `</span>`)
	},
	"truncate": func(s string, max int) string {
		r := []rune(s)
		if len(r) <= max {
			return s
		}
		return string(r[:max]) + "..."
	},
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    {{if .Busy}}<meta http-equiv="refresh" content="2">{{end}}
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #f5f5f5; color: #333; line-height: 1.6; }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        header { background: #2c3e50; color: white; padding: 20px 0; margin-bottom: 30px; }
        header h1 { font-size: 28px; margin-bottom: 5px; }
        header .meta { font-size: 14px; opacity: 0.8; }
        .section { background: white; padding: 25px; border-radius: 8px; margin-bottom: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .section h2 { font-size: 20px; margin-bottom: 20px; color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
        .grid { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; }
        table { width: 100%; border-collapse: collapse; }
        th { background: #f8f9fa; text-align: left; padding: 12px; font-weight: 600; border-bottom: 2px solid #dee2e6; }
        td { padding: 12px; border-bottom: 1px solid #dee2e6; }
        pre { background: #1e1e1e; color: #d4d4d4; padding: 12px; border-radius: 4px; max-height: 420px; overflow: auto; font-size: 12px; white-space: pre-wrap; }
        input[type=text] { padding: 6px 8px; border: 1px solid #ccc; border-radius: 4px; width: 100%; margin-bottom: 8px; }
        button { padding: 6px 14px; border: 0; border-radius: 4px; background: #3498db; color: white; cursor: pointer; margin-right: 6px; }
        button.danger { background: #c0392b; }
        .badge { display: inline-block; padding: 4px 8px; border-radius: 4px; font-size: 12px; font-weight: 600; text-transform: uppercase; }
        .badge-danger { background: #f8d7da; color: #721c24; }
        .badge-info { background: #d1ecf1; color: #0c5460; }
        .badge-secondary { background: #e2e3e5; color: #383d41; }
        .flash { background: #fff3cd; color: #856404; padding: 10px 14px; border-radius: 4px; margin-bottom: 20px; }
        .empty { text-align: center; padding: 40px; color: #7f8c8d; }
        code { background: #f8f9fa; padding: 2px 6px; border-radius: 3px; font-family: monospace; font-size: 13px; }
        svg .grid-line { stroke: #e0e0e0; }
        svg .axis-label { font-size: 11px; fill: #7f8c8d; }
        svg polyline { fill: none; stroke: #e67e22; stroke-width: 2; }
    </style>
</head>
<body>
    <header>
        <div class="container">
            <h1>{{.Title}}</h1>
            <div class="meta">Version: {{.Version}} | Uptime: {{.Uptime}} | Model: {{.Settings.Model}} | Command: <code>{{.Settings.CommandPrefix}}</code></div>
        </div>
    </header>

    <div class="container">
        {{if .Flash}}<div class="flash">{{.Flash}}</div>{{end}}

        <div class="section">
            <h2>Session {{statusBadge .Session.StatusText .Busy}} {{.Session.Message}}</h2>
            <form method="post" action="/ui/start">
                <input type="text" name="script" placeholder="model.py" value="{{.Session.Script}}">
                <input type="text" name="args" placeholder="arguments" value="{{.Session.Args}}">
                <input type="text" name="focus" placeholder="point to examine in depth" value="{{.Session.Focus}}">
                <button type="submit">Run</button>
                <button type="submit" formaction="/ui/cancel">Cancel</button>
                <button type="submit" formaction="/ui/analyze">Ask AI</button>
                <button type="submit" formaction="/ui/preview">Preview prompt</button>
            </form>
        </div>

        <div class="section">
            <h2>Optimality gap{{if not .Chart.Empty}} ({{.Chart.Count}} samples, last {{.Chart.Last}}){{end}}</h2>
            {{if .Chart.Empty}}
            <div class="empty">No gap readings yet.</div>
            {{else}}
            <svg width="{{.Chart.Width}}" height="{{.Chart.Height}}" viewBox="0 0 {{.Chart.Width}} {{.Chart.Height}}">
                {{range .Chart.Ticks}}
                <line class="grid-line" x1="40" x2="{{$.Chart.Width}}" y1="{{.Y}}" y2="{{.Y}}"></line>
                <text class="axis-label" x="2" y="{{.Y}}">{{.Label}}</text>
                {{end}}
                <polyline points="{{.Chart.Points}}"></polyline>
            </svg>
            {{end}}
        </div>

        <div class="grid">
            <div class="section">
                <h2>Log</h2>
                {{if .Session.Log}}<pre>{{.Session.Log}}</pre>{{else}}<div class="empty">No output.</div>{{end}}
            </div>
            <div class="section">
                <h2>Analysis</h2>
                {{if .Session.Analysis}}<pre>{{.Session.Analysis}}</pre>{{else}}<div class="empty">No analysis yet.</div>{{end}}
            </div>
        </div>

        <div class="section">
            <h2>History ({{len .History}})</h2>
            {{if .History}}
            <table>
                <thead>
                    <tr><th>When</th><th>Script</th><th>Args</th><th>Lines</th><th></th></tr>
                </thead>
                <tbody>
                    {{range .History}}
                    <tr>
                        <td>{{formatTime .Timestamp}}</td>
                        <td><code>{{.Script}}</code></td>
                        <td><code>{{truncate .Args 40}}</code></td>
                        <td>{{.LogLines}}{{if .HasAnalysis}} + analysis{{end}}</td>
                        <td>
                            <form method="post" action="/ui/restore">
                                <input type="hidden" name="index" value="{{.Index}}">
                                <button type="submit">Restore</button>
                            </form>
                        </td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            <form method="post" action="/ui/clear" style="margin-top: 16px">
                <input type="text" name="confirm" placeholder="type yes to confirm" style="width: 200px">
                <button type="submit" class="danger">Clear history</button>
            </form>
            {{else}}
            <div class="empty">No runs recorded yet.</div>
            {{end}}
        </div>

        {{if .Schedules}}
        <div class="section">
            <h2>Schedules ({{len .Schedules}})</h2>
            <table>
                <thead>
                    <tr><th>ID</th><th>Schedule</th><th>Script</th><th>Last Run</th><th>Next Run</th><th>Runs / Skipped</th></tr>
                </thead>
                <tbody>
                    {{range .Schedules}}
                    <tr>
                        <td>{{.ID}}</td>
                        <td><code>{{.Schedule}}</code></td>
                        <td><code>{{.Script}}</code></td>
                        <td>{{formatTime .LastRun}}</td>
                        <td>{{formatTime .NextRun}}</td>
                        <td>{{.RunCount}} / {{.Skipped}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>
        {{end}}
    </div>
</body>
</html>
`
