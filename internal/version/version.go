// ABOUTME: Version constants for the controller
// ABOUTME: Used in client identification and logging
package version

const (
	// Version is the controller release version
	Version = "0.1.0"

	// Product is the product name sent during the server handshake
	Product = "MuchFun Controller"

	// Manufacturer identifies the project
	Manufacturer = "MuchFun"
)
