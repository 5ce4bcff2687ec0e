package notification

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/services/markdown"
)

const subjectPrefix = "[Vulntrack]"

var headlines = map[notification.Kind]string{
	notification.KindTreatmentChanged:      "The treatment of a vulnerability changed.",
	notification.KindAcceptanceSubmitted:   "A permanent acceptance is waiting for approval.",
	notification.KindAcceptanceApproved:    "A permanent acceptance was approved.",
	notification.KindAcceptanceRejected:    "A permanent acceptance was rejected and the previous treatment restored.",
	notification.KindAcceptanceReport:      "A permanent acceptance was approved in one of your groups.",
	notification.KindZeroRiskRequested:     "Zero risk was requested for some vulnerabilities.",
	notification.KindZeroRiskConfirmed:     "Zero risk was confirmed.",
	notification.KindZeroRiskRejected:      "Zero risk was rejected; the vulnerabilities stay open.",
	notification.KindVerificationRequested: "A reattack was requested.",
	notification.KindVerificationDone:      "A reattack finished.",
}

// detailFields lists the payload keys shown as a bullet list, in order.
var detailFields = []string{
	"group",
	"finding_title",
	"finding_id",
	"vulnerability_ids",
	"closed_ids",
	"where",
	"specific",
	"previous_status",
	"status",
	"acceptance_status",
	"accepted_until",
	"assigned",
	"modified_by",
}

// textFields hold user-written markdown and get their own section.
var textFields = []string{"justification", "rejection_justification"}

// Message is a rendered notification.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type MessageRenderer struct {
	md *markdown.Renderer
}

func NewMessageRenderer(md *markdown.Renderer) *MessageRenderer {
	return &MessageRenderer{md: md}
}

// Render builds the subject, the sanitized HTML body and a plain-text
// variant for chat.
func (r *MessageRenderer) Render(task *notification.Task) (Message, error) {
	title := cases.Title(language.English)
	subject := fmt.Sprintf("%s %s", subjectPrefix, title.String(strings.ReplaceAll(string(task.Kind), "_", " ")))
	if group := valueString(task.Payload["group"]); group != "" {
		subject += " | " + group
	}

	var md, text strings.Builder
	if h, ok := headlines[task.Kind]; ok {
		md.WriteString(h + "\n\n")
		text.WriteString(h + "\n")
	}
	for _, key := range detailFields {
		v := valueString(task.Payload[key])
		if v == "" {
			continue
		}
		label := title.String(strings.ReplaceAll(key, "_", " "))
		fmt.Fprintf(&md, "- **%s:** %s\n", label, escapeMarkdown(v))
		fmt.Fprintf(&text, "%s: %s\n", label, v)
	}
	for _, key := range textFields {
		v := strings.TrimSpace(valueString(task.Payload[key]))
		if v == "" {
			continue
		}
		label := title.String(strings.ReplaceAll(key, "_", " "))
		fmt.Fprintf(&md, "\n### %s\n\n%s\n", label, v)
		fmt.Fprintf(&text, "%s: %s\n", label, v)
	}

	body, err := r.md.Render(md.String())
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, HTML: body, Text: strings.TrimSpace(text.String())}, nil
}

// valueString flattens payload values. Lists arrive as []any after a trip
// through the queue.
func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
