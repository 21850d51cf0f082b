// Package server implements the MCP (Model Context Protocol) server for the dataset tools.
//
// This package provides a JSON-RPC 2.0 server that exposes dataset preparation and
// inspection capabilities through the MCP protocol, so an assistant can look at
// a training set the way the training pipeline will see it.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr, never to stdout.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Dataset Files:
//   - dataset_list_files: List the (image) files of a directory
//   - dataset_class_names: Class names and per-class image counts
//   - dataset_split: Random train/validation split, optionally copied to disk
//   - dataset_show_batch: Grid of one augmented batch, as PNG
//
// Single Images:
//   - image_info: Dimensions, format and file size
//   - image_stats: Channel mean and standard deviation, dominant colors
//   - image_augment: Apply augmentations, as PNG
//   - image_central_crop: Centered square crop, as PNG
//
// Training:
//   - history_plot: Accuracy and loss curves from a JSON history, as PNG
//
// # Configuration
//
// Omitted tool arguments default to the values of the config.Config the server
// was created with: data directory, image size, augmentations, validation
// fraction and seed.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.NewWithConfig(cfg)
//	if err := srv.Run(); err != nil {
//	    klog.Fatal(err)
//	}
package server
