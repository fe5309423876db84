// Package config loads the pedidos configuration.
//
// Configuration is read from a YAML file (pedidos.yaml by default) over the
// built-in defaults, then environment overrides are applied and the result is
// validated with struct tags:
//
//	backend: auto            # auto | xml | sql
//	xml:
//	  path: medicamentos.xml
//	sql:
//	  enabled: true
//	  driver: mysql          # mysql | sqlite
//	  endpoint: tcp(localhost:3306)/drogueria_db
//	  username: root
//	  password: ""
//	  max_reconnect_attempts: 3
//	  reconnect_backoff_ms: 1500
//	  auto_create_database: true
//	logging:
//	  level: info
//	  format: console
//	  output: stderr
//	metrics:
//	  enabled: false
//	  listen_address: ":9090"
//	events:
//	  enabled: true
//	  audit_log: ""          # JSON lines file, empty to disable
//	tracing:
//	  enabled: false
//	  exporter: stdout       # stdout (written to stderr) | otlp | none
//	  endpoint: ""           # OTLP gRPC collector, required for otlp
//	  insecure: false
//	  sampling_rate: 1.0
//
// Environment variables override the file:
//
//	PEDIDOS_BACKEND                      backend
//	PEDIDOS_XML_PATH                     xml.path
//	PEDIDOS_SQL_ENABLED                  sql.enabled
//	PEDIDOS_SQL_DRIVER                   sql.driver
//	PEDIDOS_SQL_ENDPOINT                 sql.endpoint
//	PEDIDOS_SQL_USERNAME                 sql.username
//	PEDIDOS_SQL_PASSWORD                 sql.password
//	PEDIDOS_SQL_MAX_RECONNECT_ATTEMPTS   sql.max_reconnect_attempts
//	PEDIDOS_SQL_RECONNECT_BACKOFF_MS     sql.reconnect_backoff_ms
//	PEDIDOS_SQL_AUTO_CREATE_DATABASE     sql.auto_create_database
//	PEDIDOS_TRACING_ENABLED              tracing.enabled
//	PEDIDOS_TRACING_EXPORTER             tracing.exporter
//	PEDIDOS_TRACING_ENDPOINT             tracing.endpoint
//	LOG_LEVEL                            logging.level
//
// Boolean variables accept the forms understood by strconv.ParseBool.
package config
