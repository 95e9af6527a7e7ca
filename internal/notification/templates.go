package notification

import (
	"bytes"
	"fmt"
	"text/template"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + ".subject").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Parse(body)),
	}
}

var templates = map[Type]messageTemplate{
	TypeBorrowSubmitted: mustTemplate("submitted",
		`New borrow request #{{.TransactionID}}`,
		`A new borrow request is waiting for review.

Equipment: {{.EquipmentName}}
Quantity: {{.Quantity}}
Return by: {{.ExpectedReturnDate.Format "2006-01-02"}}
`),
	TypeBorrowApproved: mustTemplate("approved",
		`Borrow request #{{.TransactionID}} approved`,
		`Your request for {{.Quantity}} x {{.EquipmentName}} has been approved.

Please return it by {{.ExpectedReturnDate.Format "2006-01-02"}}.
`),
	TypeBorrowRejected: mustTemplate("rejected",
		`Borrow request #{{.TransactionID}} rejected`,
		`Your request for {{.EquipmentName}} was rejected.

Reason: {{.Reason}}
`),
	TypeBorrowReturned: mustTemplate("returned",
		`Return confirmed for request #{{.TransactionID}}`,
		`The return of {{.Quantity}} x {{.EquipmentName}} has been recorded.
{{if gt .PenaltyAmount 0}}
A late penalty of {{.PenaltyFormatted}} is due.
{{end}}`),
	TypeDueSoon: mustTemplate("due_soon",
		`{{.EquipmentName}} is due tomorrow`,
		`Reminder: {{.EquipmentName}} must be returned by {{.ExpectedReturnDate.Format "2006-01-02"}}.
`),
	TypeOverdue: mustTemplate("overdue",
		`{{.EquipmentName}} is overdue`,
		`{{.EquipmentName}} was due on {{.ExpectedReturnDate.Format "2006-01-02"}} and is {{.DaysLate}} day(s) late.

Penalty so far: {{.PenaltyFormatted}}
`),
	TypeReservation: mustTemplate("reservation",
		`Reservation "{{.Title}}" {{.Status}}`,
		`Your reservation "{{.Title}}" is now {{.Status}}.
{{if .Note}}
Note: {{.Note}}
{{end}}`),
}

// render fills the subject and body templates for kind with data, which is
// usually the event struct itself.
func render(kind Type, data interface{}) (string, string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for notification type %s", kind)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, err)
	}
	return subject.String(), body.String(), nil
}
