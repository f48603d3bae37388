package models

// ConnectionState is the lifecycle state of the realtime stream connection.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateClosed       ConnectionState = "closed"
)

// Role is the signed-in staff role. Admins never receive alert escalations.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNurse  Role = "nurse"
	RoleDoctor Role = "doctor"
)
