// Package log add logging utilities.
package log

import (
	"strings"
	"time"

	"trivia/internal/pkg/wire"

	"github.com/sirupsen/logrus"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// MessageToFields renders a protocol message as structured log fields.
func MessageToFields(msg wire.Message) logrus.Fields {
	fields := logrus.Fields{
		"cmd":   msg.Cmd,
		"arity": len(msg.Fields),
	}
	// credentials never go to the log
	if msg.Cmd != wire.CmdLogin {
		fields["data"] = strings.Join(msg.Fields, ", ")
	}
	return fields
}
