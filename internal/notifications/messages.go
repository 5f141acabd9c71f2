package notifications

import (
	"fmt"
	"time"
)

const slotTimeFormat = "02/01/2006 15:04"

// renderMessage turns a booking event into the operator-facing text. The
// clinic staff reads Portuguese.
func renderMessage(evt Event, to string) Message {
	when := evt.ScheduledAt.Format(slotTimeFormat)

	switch evt.Kind {
	case KindBooked:
		return Message{
			To:      to,
			Subject: fmt.Sprintf("Nova consulta agendada - %s", when),
			Body: fmt.Sprintf(`Uma nova consulta foi agendada.

Paciente: %s
Telefone: %s
Horario: %s

Por favor confirme a consulta com o paciente.`, evt.PatientName, evt.PatientPhone, when),
		}
	case KindRescheduled:
		old := evt.OldScheduledAt.Format(slotTimeFormat)
		return Message{
			To:      to,
			Subject: fmt.Sprintf("Consulta remarcada - %s", when),
			Body: fmt.Sprintf(`Uma consulta foi remarcada.

Paciente: %s
Telefone: %s
Horario anterior: %s
Novo horario: %s`, evt.PatientName, evt.PatientPhone, old, when),
		}
	case KindCancelled:
		body := fmt.Sprintf(`Uma consulta foi cancelada.

Paciente: %s
Telefone: %s
Horario: %s`, evt.PatientName, evt.PatientPhone, when)
		if evt.Reason != "" {
			body += fmt.Sprintf("\nMotivo: %s", evt.Reason)
		}
		return Message{
			To:      to,
			Subject: fmt.Sprintf("Consulta cancelada - %s", when),
			Body:    body,
		}
	default:
		return Message{
			To:      to,
			Subject: fmt.Sprintf("Evento de agenda - %s", evt.Kind),
			Body:    fmt.Sprintf("Evento %s para a consulta %s em %s.", evt.Kind, evt.AppointmentID, when),
		}
	}
}

// eventAge is how long ago the event happened, for worker logging.
func eventAge(evt Event, now time.Time) time.Duration {
	if evt.OccurredAt.IsZero() {
		return 0
	}
	return now.Sub(evt.OccurredAt)
}
