package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseQueryFailed   = "database_query_failed"
	ActionExternalServiceFailed = "external_service_failed"

	ActionWSConnect    = "ws_connect"
	ActionWSDisconnect = "ws_disconnect"
	ActionWSAuth       = "ws_auth"
	ActionWSJoin       = "ws_join"
	ActionWSIngest     = "ws_location_ingest"
	ActionWSBroadcast  = "ws_location_broadcast"
)
