package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StepPrinterFunc renders replies and errors for a human reader. Node
// lifecycle events are only printed when verbose is set.
func StepPrinterFunc(name string, w io.Writer, verbose bool) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventReply:
			text := p_.Text
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			if name != "" {
				_, err = fmt.Fprintf(w, "%s: %s", name, text)
			} else {
				_, err = fmt.Fprint(w, text)
			}
			return err

		case *EventError:
			_, err = fmt.Fprintf(w, "error: %s\n", p_.ErrorString)
			return err

		case *EventNodeStart:
			if verbose {
				_, err = fmt.Fprintf(w, "[%s] start (%d messages)\n", p_.Metadata_.Node, p_.MessageCount)
			}
			return err

		case *EventNodeEnd:
			if verbose {
				next := p_.Next
				if next == "" {
					next = "END"
				}
				_, err = fmt.Fprintf(w, "[%s] -> %s (%dms)\n", p_.Metadata_.Node, next, p_.DurationMs)
			}
			return err
		}

		return nil
	}
}
