// Package notification provides implementations for various notification services
package notification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/pairwatch/pkg/core"
)

// formatError renders an error alert, with the pair when the error carries one
func formatError(err error) string {
	var sb strings.Builder
	sb.WriteString("🛑 ERROR\n")

	var pairErr *core.PairError
	if errors.As(err, &pairErr) {
		sb.WriteString("-----\n")
		fmt.Fprintf(&sb, "Pair: %s\n", pairErr.Pair)
		sb.WriteString("-----\n")
		sb.WriteString(pairErr.Err.Error())
		return sb.String()
	}

	sb.WriteString("-----\n")
	sb.WriteString(err.Error())
	return sb.String()
}

// Fanout delivers every message to all of its notifiers, in order
type Fanout []core.Notifier

func NewFanout(notifiers ...core.Notifier) Fanout {
	return Fanout(notifiers)
}

func (f Fanout) Notify(text string) {
	for _, n := range f {
		n.Notify(text)
	}
}

func (f Fanout) OnError(err error) {
	for _, n := range f {
		n.OnError(err)
	}
}
