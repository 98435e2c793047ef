package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/irrigation-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"fixed2": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Irrigation Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.fault { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Irrigation Controller{{if .Config.DeviceID}} ({{.Config.DeviceID}}){{end}}</h1>

<h2>Pump</h2>
<table>
<tr><th>Pump</th><td id="pump-state" class="{{if eq .Pump.Label "ON"}}on{{else}}off{{end}}">{{.Pump.Label}}</td></tr>
<tr><th>Last decision</th><td>{{.Intent.Reason}}</td></tr>
<tr><th>Pulses</th><td>{{.Counts.Pulses}}</td></tr>
</table>

<h2>Sensors</h2>
{{if .HasReading}}<table>
<tr><th>Temperature</th><td{{if not .Reading.Valid}} class="fault"{{end}}>{{fixed2 .Reading.TemperatureC}} &deg;C</td></tr>
<tr><th>Humidity</th><td{{if not .Reading.Valid}} class="fault"{{end}}>{{fixed2 .Reading.HumidityPct}} %</td></tr>
<tr><th>Soil (raw)</th><td>{{.Reading.SoilRaw}}</td></tr>
<tr><th>Rain (raw)</th><td>{{.Reading.RainRaw}}</td></tr>
<tr><th>Valid</th><td>{{if .Reading.Valid}}yes{{else}}<span class="fault">sensor fault</span>{{end}}</td></tr>
<tr><th>Read at</th><td>{{.ReadingAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
</table>{{else}}<p>No reading yet.</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Iterations</th><td>{{.Counts.Iterations}}</td></tr>
<tr><th>Sensor faults</th><td>{{.Counts.SensorFaults}}</td></tr>
<tr><th>Reconnects</th><td>{{.Counts.Reconnects}}</td></tr>
<tr><th>Publish errors</th><td>{{.Counts.PublishErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Thresholds</th><td>soil &gt; {{.Config.Thresholds.SoilDry}}, rain &gt; {{.Config.Thresholds.RainDry}}, temp &gt; {{.Config.Thresholds.HotTempC}}, humidity &lt; {{.Config.Thresholds.DryHumidityPct}}</td></tr>
<tr><th>Pulse</th><td>{{.Config.PulseMs}}ms</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownMs}}ms</td></tr>
<tr><th>Idle</th><td>{{.Config.IdleMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
