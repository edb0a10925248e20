package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"hireflow-backend/internal/domain"
)

// Reminder templates raised by scheduled jobs rather than workflow transitions.
const (
	TemplateI9Section2Due  = "i9_section2_due"
	TemplateFinalActionDue = "final_adverse_action_due"
	TemplateI9AuthExpiring = "i9_authorization_expiring"
)

type messageTemplate struct {
	subject string
	body    string
}

var catalog = map[string]messageTemplate{
	"application_rejected": {
		subject: "Update on your application",
		body: `Hello {{.Name}},

Thank you for your interest. After careful review we will not be moving forward with your application.`,
	},
	"approval_requested": {
		subject: "Approval requested for {{.EntityType}} #{{.EntityID}}",
		body: `You are approver #{{index .Data "sequence"}} in the approval chain for {{.EntityType}} #{{.EntityID}}. Please review it.
{{- with index .Data "salary"}} Proposed salary: {{.}}.{{end}}
{{- with index .Data "start_date"}} Start date: {{.}}.{{end}}`,
	},
	"hiring_decision_approval_requested": {
		subject: `Hiring decision awaiting approval: {{index .Data "job_title"}}`,
		body:    `A "{{index .Data "decision"}}" decision for {{index .Data "job_title"}} needs your approval.`,
	},
	"hiring_decision_resolved": {
		subject: `Hiring decision {{index .Data "status"}}`,
		body: `Your hiring decision #{{.EntityID}} was {{index .Data "status"}}.
{{- with index .Data "reason"}}
Reason: {{.}}{{end}}`,
	},
	"i9_initiated": {
		subject: "Form I-9 started",
		body: `Form I-9 verification #{{.EntityID}} has started.
Section 1 is due by {{index .Data "deadline_section1"}}. Section 2 is due by {{index .Data "deadline_section2"}}.`,
	},
	"i9_section1_completed": {
		subject: "Form I-9 Section 1 completed",
		body:    `Section 1 of I-9 verification #{{.EntityID}} is complete. Section 2 is due by {{index .Data "deadline_section2"}}.`,
	},
	"i9_verified": {
		subject: "Form I-9 verified",
		body:    `I-9 verification #{{.EntityID}} is verified.`,
	},
	"i9_everify_pending": {
		subject: "E-Verify case submitted",
		body:    `I-9 verification #{{.EntityID}} was submitted to E-Verify and is awaiting a result.`,
	},
	"i9_everify_tnc": {
		subject: "E-Verify tentative nonconfirmation",
		body: `E-Verify returned a tentative nonconfirmation for I-9 verification #{{.EntityID}}.
The employee may contest the result before any action is taken.`,
	},
	"i9_failed": {
		subject: "Form I-9 verification failed",
		body:    `I-9 verification #{{.EntityID}} received a final nonconfirmation.`,
	},
	"i9_expired": {
		subject: "Work authorization expired",
		body:    `The work authorization for I-9 verification #{{.EntityID}} has expired and needs reverification.`,
	},
	"pre_adverse_action": {
		subject: "Pre-adverse action notice",
		body: `Hello {{.Name}},

Information in your background report may affect our decision. You have until {{index .Data "waiting_period_ends_at"}} to dispute the accuracy or completeness of the report.
A copy of your report and a summary of your rights under the Fair Credit Reporting Act are enclosed.`,
	},
	"adverse_action_disputed": {
		subject: "Adverse action #{{.EntityID}} disputed",
		body:    `The candidate disputed adverse action #{{.EntityID}}. The final notice is on hold until the dispute is reviewed.`,
	},
	"final_adverse_action": {
		subject: "Final adverse action notice",
		body: `Hello {{.Name}},

After reviewing your background report we have made a final decision not to proceed. You have the right to a free copy of your report and to dispute its accuracy with the consumer reporting agency.`,
	},
	TemplateI9Section2Due: {
		subject: `Form I-9 Section 2 due {{index .Data "deadline_section2"}}`,
		body:    `Section 2 of I-9 verification #{{.EntityID}} is due by {{index .Data "deadline_section2"}} and is not complete.`,
	},
	TemplateFinalActionDue: {
		subject: "Adverse action #{{.EntityID}} ready for final notice",
		body:    `The waiting period for adverse action #{{.EntityID}} ended on {{index .Data "waiting_period_ends_at"}}. The final notice can now be sent.`,
	},
	TemplateI9AuthExpiring: {
		subject: `Work authorization expires {{index .Data "valid_until"}}`,
		body:    `The work authorization for I-9 verification #{{.EntityID}} expires on {{index .Data "valid_until"}}. Schedule reverification.`,
	},
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

var parsed = func() map[string]compiled {
	out := make(map[string]compiled, len(catalog))
	for name, t := range catalog {
		out[name] = compiled{
			subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(t.subject)),
			body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(t.body)),
		}
	}
	return out
}()

type renderData struct {
	Name       string
	EntityType string
	EntityID   int32
	Data       map[string]string
}

// Render produces the subject and plain-text body of msg for one recipient.
func Render(msg domain.Message, to domain.Recipient) (string, string, error) {
	t, ok := parsed[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", msg.Template)
	}

	name := to.Name
	if name == "" {
		name = "there"
	}
	data := renderData{
		Name:       name,
		EntityType: strings.ReplaceAll(msg.EntityType, "_", " "),
		EntityID:   msg.EntityID,
		Data:       msg.Data,
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("failed to render subject for %s: %w", msg.Template, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render body for %s: %w", msg.Template, err)
	}
	return strings.TrimSpace(subject.String()), strings.TrimSpace(body.String()), nil
}

// Known reports whether a template is registered.
func Known(name string) bool {
	_, ok := parsed[name]
	return ok
}
