package tmpl

import "storefront.chapter42.de/mailer/internal/data"

type source struct {
	subject string
	text    string
	html    string
}

const itemsText = `{{range .Order.Items}}- {{.Quantity}} x {{.Name}}: {{money .LineTotal $.Order.Currency}}
{{end}}`

const itemsHTML = `<table>
{{range .Order.Items}}<tr><td>{{.Quantity}} x {{.Name}}</td><td>{{money .LineTotal $.Order.Currency}}</td></tr>
{{end}}<tr><td><strong>Gesamt</strong></td><td><strong>{{money .Order.Total .Order.Currency}}</strong></td></tr>
</table>`

var sources = map[data.Kind]source{
	data.KindCustomerConfirmation: {
		subject: `Bestellbestätigung {{.Order.ID}} - {{.StoreName}}`,
		text: `Hallo {{.Order.CustomerName}},

vielen Dank für deine Bestellung bei {{.StoreName}}.

Bestellnummer: {{.Order.ID}}
` + itemsText + `
Gesamt: {{money .Order.Total .Order.Currency}}
{{with .Order.ShippingAddress}}
Lieferadresse:
{{.}}
{{end}}
Wir melden uns, sobald die Bestellung unterwegs ist.
`,
		html: `<p>Hallo {{.Order.CustomerName}},</p>
<p>vielen Dank für deine Bestellung bei {{.StoreName}}.</p>
<p>Bestellnummer: <strong>{{.Order.ID}}</strong></p>
` + itemsHTML + `
{{with .Order.ShippingAddress}}<p>Lieferadresse:<br>{{.}}</p>{{end}}
<p>Wir melden uns, sobald die Bestellung unterwegs ist.</p>`,
	},

	data.KindAdminNotification: {
		subject: `Neue Bestellung {{.Order.ID}} ({{money .Order.Total .Order.Currency}})`,
		text: `Neue Bestellung eingegangen.

Bestellnummer: {{.Order.ID}}
Kunde: {{.Order.CustomerName}} <{{.Order.CustomerEmail}}>
Eingegangen: {{date .Order.CreatedAt}}
` + itemsText + `
Gesamt: {{money .Order.Total .Order.Currency}}
`,
		html: `<h2>Neue Bestellung {{.Order.ID}}</h2>
<p>Kunde: {{.Order.CustomerName}} &lt;{{.Order.CustomerEmail}}&gt;<br>
Eingegangen: {{date .Order.CreatedAt}}</p>
` + itemsHTML,
	},

	data.KindStatusUpdate: {
		subject: `Deine Bestellung {{.Order.ID}}: {{.Order.Status}}`,
		text: `Hallo {{.Order.CustomerName}},

der Status deiner Bestellung {{.Order.ID}} hat sich geändert: {{upper .Order.Status}}

Viele Grüße
{{.StoreName}}
`,
		html: `<p>Hallo {{.Order.CustomerName}},</p>
<p>der Status deiner Bestellung <strong>{{.Order.ID}}</strong> hat sich geändert: <strong>{{upper .Order.Status}}</strong></p>
<p>Viele Grüße<br>{{.StoreName}}</p>`,
	},

	data.KindAlert: {
		subject: `[{{.StoreName}}] Alarm: {{.Subject}}`,
		text: `{{.Subject}}

{{.Details}}

Zeitpunkt: {{date .Now}}
`,
		html: `<h2>{{.Subject}}</h2>
<pre>{{.Details}}</pre>
<p>Zeitpunkt: {{date .Now}}</p>`,
	},
}
