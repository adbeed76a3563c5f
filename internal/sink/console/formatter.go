package console

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
	"github.com/sirupsen/logrus"

	"firestige.xyz/pktrace/internal/core"
)

// Keys under which Sink stores trace data in a logrus entry.
const (
	keyLayer    = "layer"
	keyDepth    = "depth"
	keySeverity = "severity"
	keyFields   = "fields"
)

// DefaultPattern prints the severity, the layer indented by depth, and the message.
const DefaultPattern = "%level %indent%layer: %msg"

const indentUnit = "  "

// ansi styles per severity
var severityColors = map[core.Severity]string{
	core.SeverityFatal:   "red+b",
	core.SeverityError:   "red",
	core.SeverityWarning: "yellow",
	core.SeverityInfo:    "cyan",
	core.SeverityDebug:   "black+h",
}

type formatter struct {
	pattern string
	time    string
	color   bool
}

// Format supports %time, %level, %indent, %layer, %field and %msg.
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	depth, _ := entry.Data[keyDepth].(int)
	layer, _ := entry.Data[keyLayer].(string)

	output := f.pattern
	output = strings.Replace(output, "%time", entry.Time.Format(f.time), 1)
	output = strings.Replace(output, "%level", f.level(entry), 1)
	output = strings.Replace(output, "%indent", strings.Repeat(indentUnit, depth), 1)
	output = strings.Replace(output, "%layer", layer, 1)
	output = strings.Replace(output, "%field", buildFields(entry), 1)
	output = strings.Replace(output, "%msg", entry.Message, 1)
	return []byte(output + "\n"), nil
}

func (f *formatter) level(entry *logrus.Entry) string {
	sev, ok := entry.Data[keySeverity].(core.Severity)
	if !ok {
		sev = fromLogrus(entry.Level)
	}
	name := fmt.Sprintf("%-7s", sev)
	if f.color {
		return ansi.Color(name, severityColors[sev])
	}
	return name
}

// buildFields renders trace fields in emission order.
func buildFields(entry *logrus.Entry) string {
	fields, _ := entry.Data[keyFields].([]core.Field)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Key + "=" + f.Value
	}
	return strings.Join(parts, ",")
}

func toLogrus(sev core.Severity) logrus.Level {
	switch sev {
	case core.SeverityFatal:
		return logrus.FatalLevel
	case core.SeverityError:
		return logrus.ErrorLevel
	case core.SeverityWarning:
		return logrus.WarnLevel
	case core.SeverityInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

func fromLogrus(l logrus.Level) core.Severity {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return core.SeverityFatal
	case logrus.ErrorLevel:
		return core.SeverityError
	case logrus.WarnLevel:
		return core.SeverityWarning
	case logrus.InfoLevel:
		return core.SeverityInfo
	default:
		return core.SeverityDebug
	}
}
