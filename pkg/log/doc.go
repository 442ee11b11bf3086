/*
Package log provides structured logging for NebulaStore using zerolog.

It wraps zerolog with a package-level Logger, JSON or console output, and
component-scoped child loggers for the AFS connector layer and GigaMap
instances.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	connLog := log.WithConnector("s3")
	connLog.Info().Str("path", p.FullQualifiedName()).Msg("write-all")

	mapLog := log.WithMap("users")
	mapLog.Warn().Err(err).Msg("constraint violation on update")

Never log secrets (connector credentials, encryption scopes) — pass only
the fields named in this package's With* helpers.
*/
package log
