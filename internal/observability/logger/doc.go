// Package logger provides the process-wide zap logger and context scoping.
//
// Init is called once from the CLI; everything else obtains a logger through
// From(ctx), which falls back to the singleton when no scoped logger was
// injected by the HTTP middlewares.
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("social.exchange"))
//	log.Warn("unparsable expires_in", logger.Provider(id))
package logger
