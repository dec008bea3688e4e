// Package transcript renders closed tickets and delivers the result to the
// configured sinks in the background.
package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"time"

	"github.com/dvloznov/exchange-desk/internal/domain"
)

const timeLayout = "2006-01-02 15:04 UTC"

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Transcript - {{.Title}}</title>
<style>
body{background:#1e1f22;color:#dcddde;font-family:'Segoe UI',Arial,sans-serif;font-size:14px;margin:0}
.header{background:#2b2d31;padding:20px 28px;border-bottom:2px solid #111214}
.header h1{font-size:20px;color:#fff;margin:0}
.header p{font-size:12px;color:#949ba4;margin:3px 0 0}
.info{display:grid;grid-template-columns:repeat(auto-fit,minmax(170px,1fr));gap:10px;background:#2b2d31;margin:14px 18px;padding:14px;border-radius:8px;border-left:4px solid #5865f2}
.item{display:flex;flex-direction:column;gap:2px}
.lbl{font-size:10px;font-weight:700;color:#949ba4;text-transform:uppercase}
.val{font-size:13px;color:#fff}
.status{display:inline-block;padding:2px 10px;border-radius:10px;font-size:11px;font-weight:700;color:#000}
.completed{background:#57f287}.cancelled{background:#ed4245}.open{background:#fee75c}
</style>
</head>
<body>
<div class="header">
<h1>{{.Title}}</h1>
<p>Ticket {{.Ticket.Key}} &middot; generated {{.Generated}}</p>
</div>
<div class="info">
<div class="item"><span class="lbl">Status</span><span class="val"><span class="status {{.Ticket.Status}}">{{.Status}}</span></span></div>
<div class="item"><span class="lbl">Requester</span><span class="val">{{.Ticket.RequesterID}}</span></div>
<div class="item"><span class="lbl">Sending</span><span class="val">{{.Send}}</span></div>
<div class="item"><span class="lbl">Receiving</span><span class="val">{{.Receive}}</span></div>
{{- with .Ticket.Amount}}
<div class="item"><span class="lbl">Amount Sent</span><span class="val">€{{.StringFixed 2}}</span></div>
{{- end}}
{{- with .Ticket.Fee}}
<div class="item"><span class="lbl">Fee ({{.Percent}}%)</span><span class="val">€{{.FeeAmount.StringFixed 2}}</span></div>
<div class="item"><span class="lbl">Amount Received</span><span class="val">€{{.ReceiveAmount.StringFixed 2}}</span></div>
{{- if .Note}}
<div class="item"><span class="lbl">Note</span><span class="val">{{.Note}}</span></div>
{{- end}}
{{- end}}
<div class="item"><span class="lbl">Claimed By</span><span class="val">{{if .Ticket.ClaimedBy}}{{.Ticket.ClaimedBy}}{{else}}Unclaimed{{end}}</span></div>
<div class="item"><span class="lbl">Closed By</span><span class="val">{{.Ticket.ClosedBy}}</span></div>
<div class="item"><span class="lbl">Reason</span><span class="val">{{.Ticket.CloseReason}}</span></div>
<div class="item"><span class="lbl">Opened</span><span class="val">{{.Opened}}</span></div>
<div class="item"><span class="lbl">Closed</span><span class="val">{{.Closed}}</span></div>
</div>
</body>
</html>
`))

type view struct {
	Title     string
	Status    string
	Send      string
	Receive   string
	Opened    string
	Closed    string
	Generated string
	Ticket    domain.Ticket
}

// Render produces the HTML transcript of a closed ticket.
func Render(t domain.Ticket, now time.Time) ([]byte, error) {
	v := view{
		Title:     t.ChannelName,
		Status:    statusLabel(t.Status),
		Send:      t.SendLabel(),
		Receive:   t.ReceiveLabel(),
		Opened:    t.CreatedAt.UTC().Format(timeLayout),
		Closed:    "-",
		Generated: now.UTC().Format(timeLayout),
		Ticket:    t,
	}
	if v.Title == "" {
		v.Title = t.Key
	}
	if t.ClosedAt != nil {
		v.Closed = t.ClosedAt.UTC().Format(timeLayout)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render transcript %s: %w", t.Key, err)
	}
	return buf.Bytes(), nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the object name used by every file-based sink.
func Filename(t domain.Ticket) string {
	name := t.ChannelName
	if name == "" {
		name = "ticket"
	}
	return unsafeName.ReplaceAllString(fmt.Sprintf("transcript-%s-%s.html", name, t.Key), "_")
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusCompleted:
		return "Completed"
	case domain.StatusCancelled:
		return "Cancelled"
	case domain.StatusOpen:
		return "Open"
	}
	return "Unknown"
}
