package stripe

import (
	"go.vocdoni.io/dvote/log"
)

// leveledLogger routes the stripe-go library logs to the service logger.
// stripe-go logs every request at info level, those lines go to debug.
type leveledLogger struct{}

func (*leveledLogger) Debugf(format string, v ...any) {
	log.Debugf("stripe: "+format, v...)
}

func (*leveledLogger) Infof(format string, v ...any) {
	log.Debugf("stripe: "+format, v...)
}

func (*leveledLogger) Warnf(format string, v ...any) {
	log.Warnf("stripe: "+format, v...)
}

func (*leveledLogger) Errorf(format string, v ...any) {
	log.Errorf("stripe: "+format, v...)
}
