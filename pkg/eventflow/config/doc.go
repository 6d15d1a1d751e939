/*
Package config loads engine settings for eventflow.

Settings can come from a YAML or JSON file:

	s, err := config.Load("eventflow.yaml")

or from the environment, after optional .env files are applied:

	s, err := config.FromEnv(".env")

Environment variables use the EVENTFLOW_ prefix:

	EVENTFLOW_QUEUES=audit,mail
	EVENTFLOW_MAX_ROUTING_DEPTH=10
	EVENTFLOW_METRICS=true
	EVENTFLOW_TRACING=false
	EVENTFLOW_LOG_LEVEL=info
	EVENTFLOW_FAILURE_STORE=sqlite
	EVENTFLOW_FAILURE_STORE_PATH=/var/lib/app/failures.db

Settings is a validatable configuration object: the engine calls Validate
exactly once, before the first pipeline runs.
*/
package config
