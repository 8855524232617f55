package docs

// @title           Parcel Tracking Service API
// @version         1.0
// @description     Live parcel location tracking for the courier-operations dashboard. Agents stream positions over WebSocket or the REST fallback; dashboards subscribe to per-parcel rooms and read recent trails.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:5000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
