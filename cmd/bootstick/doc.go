// Package main hosts the bootstick CLI entrypoint and command graph.
//
// The default command writes a Windows installation image to a USB device:
// it resolves both inputs, asks for confirmation, erases the device and
// copies the image payload. The remaining commands inspect the environment
// (devices, images, status) or scaffold configuration. Configuration
// resolution and logger construction live here; the run itself is
// delegated to internal/workflow.
package main
