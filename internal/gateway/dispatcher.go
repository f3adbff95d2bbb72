package gateway

// Dispatcher is the interface used by services to dispatch events to
// connected WebSocket clients. The concrete Manager implements this interface.
type Dispatcher interface {
	DispatchToWorkspace(workspaceID int64, event string, data any)
	DispatchToUser(userID int64, event string, data any)
}
