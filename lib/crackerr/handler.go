package crackerr

import (
	"github.com/unclesp1d3r/meshcrack/crackstate"
)

// LogAndReturn logs err with message at a level chosen by its Kind and returns err for chaining.
// Rejected candidates are logged at debug level, aborts at info, everything else at error.
func LogAndReturn(message string, err error, keyvals ...any) error {
	if err == nil {
		return nil
	}

	fields := append([]any{"error", err, "kind", KindOf(err).String()}, keyvals...)

	switch KindOf(err) {
	case KindCandidateRejected:
		crackstate.Logger.Debug(message, fields...)
	case KindAborted:
		crackstate.Logger.Info(message, fields...)
	default:
		crackstate.ErrorLogger.Error(message, fields...)
	}

	return err
}
