package email

import "html/template"

// Ortak iskelet: koyu arka plan, ortalanmış kart. Her şablon sadece içeriği doldurur.
const layoutHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="520" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:40px;">
          <tr>
            <td>`

const layoutFoot = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

var resetTmpl = template.Must(template.New("password_reset").Parse(layoutHead + `
              <h2 style="color:#18181b;font-size:18px;margin:0 0 24px 0;">{{.Heading}}</h2>
              <p style="color:#3f3f46;font-size:15px;line-height:1.6;margin:0 0 24px 0;">{{.Body}}</p>
              <p style="margin:0 0 24px 0;">
                <a href="{{.Link}}" style="background-color:#2563eb;color:#ffffff;text-decoration:none;padding:12px 32px;border-radius:6px;font-weight:600;">{{.Button}}</a>
              </p>
              <p style="color:#71717a;font-size:13px;line-height:1.6;margin:0 0 16px 0;">{{.Expiry}}</p>
              <p style="color:#71717a;font-size:12px;word-break:break-all;margin:0;"><a href="{{.Link}}">{{.Link}}</a></p>` + layoutFoot))

var orderTmpl = template.Must(template.New("order_confirmation").Parse(layoutHead + `
              <h2 style="color:#18181b;font-size:18px;margin:0 0 8px 0;">{{.Heading}}</h2>
              <p style="color:#3f3f46;font-size:15px;margin:0 0 24px 0;">{{.Intro}}</p>
              <table width="100%" cellpadding="6" cellspacing="0" style="border-collapse:collapse;font-size:14px;color:#27272a;">
                {{range .Lines}}
                <tr style="border-bottom:1px solid #e4e4e7;">
                  <td>{{.Name}}</td>
                  <td align="center">&times; {{.Quantity}}</td>
                  <td align="right">{{.Total}}</td>
                </tr>
                {{end}}
                <tr><td colspan="2">{{.Labels.Subtotal}}</td><td align="right">{{.Subtotal}}</td></tr>
                <tr><td colspan="2">{{.Labels.Tax}}</td><td align="right">{{.Tax}}</td></tr>
                <tr><td colspan="2">{{.Labels.Shipping}}</td><td align="right">{{.Shipping}}</td></tr>
                <tr><td colspan="2"><strong>{{.Labels.Total}}</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
              </table>
              <p style="margin:24px 0 0 0;"><a href="{{.Link}}" style="color:#2563eb;">{{.Link}}</a></p>` + layoutFoot))

var shipmentTmpl = template.Must(template.New("shipment_update").Parse(layoutHead + `
              <h2 style="color:#18181b;font-size:18px;margin:0 0 16px 0;">{{.Heading}}</h2>
              <p style="color:#3f3f46;font-size:16px;margin:0 0 16px 0;"><strong>{{.Status}}</strong>{{if .Location}} &middot; {{.Location}}{{end}}</p>
              <p style="color:#52525b;font-size:14px;margin:0 0 24px 0;">{{.Carrier}} &middot; {{.Tracking}}</p>
              <p style="margin:0;"><a href="{{.Link}}" style="color:#2563eb;">{{.Link}}</a></p>` + layoutFoot))
