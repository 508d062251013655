package interfaces

import "sentiment-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for pushing render frames to the
// rendering widget layer (the gateway server in production).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------

	// Broadcast pushes a frame to all connected rendering clients.
	Broadcast(frame *models.MRenderFrame)

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
