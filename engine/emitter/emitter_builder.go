package emitter

import "go.uber.org/zap"

// EmitterBuilderOption is a functional option for configuring an Emitter via NewEmitter.
type EmitterBuilderOption func(*emitterImpl)

// WithLogger is an option builder that sets the Emitter's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EmitterBuilderOption: a function that applies the logger option to an emitter
func WithLogger(logger *zap.Logger) EmitterBuilderOption {
	return func(e *emitterImpl) {
		e.logger = logger
	}
}
